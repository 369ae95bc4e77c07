// Package voting is the C6 VotingCore: the 8-step orchestrator that ties
// MerkleForest root acceptance, Groth16Verifier proof checking, and
// ProposalStore tallying together into one atomic per-unit operation
// (§4.6). It owns the nullifier ledger, since a nullifier's only meaning is
// "has this nullifier already been spent for this unit" — no other
// component needs to see it.
package voting

import (
	"sync"
	"time"

	"github.com/zkdao/corevote/pkg/corerr"
	"github.com/zkdao/corevote/pkg/field"
	"github.com/zkdao/corevote/pkg/groth16verify"
	"github.com/zkdao/corevote/pkg/identity"
	"github.com/zkdao/corevote/pkg/merkle"
	"github.com/zkdao/corevote/pkg/proposal"
)

// Ballot is the input to Vote/Comment: a Groth16 proof over the membership
// circuit plus the public values it was proven against.
type Ballot struct {
	Proof      groth16verify.Proof
	Root       field.Fr
	Nullifier  field.Fr
	VoteChoice int64  // ignored by Comment
	Commitment field.Fr
	Nonce      field.Fr // not read by Vote or Comment; a comment's nonce enters only through its nullifier
}

// Core wires together the four components a vote or comment touches.
type Core struct {
	Identity *identity.Registry
	Forest   *merkle.Forest
	Keys     *groth16verify.KeyStore
	Proposals *proposal.Store

	mu         sync.Mutex
	nullifiers map[uint64]map[field.Fr]bool // unit -> spent nullifiers
}

// New wires a Core from its four component instances.
func New(reg *identity.Registry, forest *merkle.Forest, keys *groth16verify.KeyStore, props *proposal.Store) *Core {
	return &Core{
		Identity:   reg,
		Forest:     forest,
		Keys:       keys,
		Proposals:  props,
		nullifiers: make(map[uint64]map[field.Fr]bool),
	}
}

func (c *Core) reserveNullifier(unit uint64, n field.Fr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.nullifiers[unit]
	if !ok {
		set = make(map[field.Fr]bool)
		c.nullifiers[unit] = set
	}
	if set[n] {
		return corerr.New(corerr.NullifierReused, "nullifier already spent for this unit")
	}
	set[n] = true
	return nil
}

// closedOrExpired reports whether a proposal is no longer admissible for
// votes or comments (§4.5 state machine): either explicitly closed, or past
// its end_time. EndTime == 0 means the proposal carries no expiry.
func closedOrExpired(p proposal.Proposal) bool {
	if !p.Open {
		return true
	}
	return p.EndTime != 0 && time.Now().Unix() >= p.EndTime
}

// acceptedRoot checks a ballot's claimed root against a proposal's
// eligibility rule (§4.3/§4.5): Fixed mode requires an exact match to the
// snapshot taken at proposal creation; Trailing mode accepts any root still
// in the unit's recent-roots window.
func (c *Core) acceptedRoot(unit uint64, p proposal.Proposal, root field.Fr) error {
	switch p.Mode {
	case proposal.Fixed:
		var snapshot field.Fr
		snapshot, err := field.FrFromBytes(p.SnapshotRoot)
		if err != nil {
			return corerr.Wrap(corerr.RootMismatch, "stored snapshot root is invalid", err)
		}
		if !root.Equal(snapshot) {
			return corerr.New(corerr.RootMismatch, "root does not match proposal's fixed snapshot")
		}
		return nil
	case proposal.Trailing:
		known, err := c.Forest.IsKnownRoot(unit, root)
		if err != nil {
			return err
		}
		if !known {
			return corerr.New(corerr.RootUnknown, "root is not within the unit's recent-roots window")
		}
		return nil
	default:
		return corerr.New(corerr.RootUnknown, "unknown vote mode")
	}
}

// Vote executes the 8-step ballot protocol (§4.6):
//  1. look up the proposal; reject ProposalNotFound
//  2. reject ProposalClosed if closed or expired
//  3. validate choice ∈ {0,1}
//  4. validate the ballot's root against the proposal's eligibility rule
//  5. reject NullifierReused if the nullifier is already spent
//  6. load the verifying key pinned to the proposal's vk_version
//  7. verify the Groth16 proof over [root, nullifier, unitId, proposalId, voteChoice, commitment]
//  8. atomically reserve the nullifier and record the vote in the tally
//
// Nullifier-reuse is checked (step 5) before the expensive pairing
// computation (step 7): a resubmission with a spent nullifier is rejected
// as NullifierReused regardless of proof validity, and never pays for a
// verification it cannot use.
//
// Steps happen while holding the unit's per-unit lock (identity.Registry.Lock),
// making the whole operation atomic with respect to other mutations on the
// same unit (§5).
func (c *Core) Vote(unit, proposalID uint64, unitIDField, proposalIDField field.Fr, ballot Ballot) error {
	lock := c.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	p, err := c.Proposals.Get(unit, proposalID)
	if err != nil {
		return err
	}
	if closedOrExpired(p) {
		return corerr.New(corerr.ProposalClosed, "proposal is closed or past its end time")
	}
	if ballot.VoteChoice != 0 && ballot.VoteChoice != 1 {
		return corerr.New(corerr.MalformedProof, "vote choice must be 0 or 1")
	}

	if err := c.acceptedRoot(unit, p, ballot.Root); err != nil {
		return err
	}

	c.mu.Lock()
	spent := c.nullifiers[unit] != nil && c.nullifiers[unit][ballot.Nullifier]
	c.mu.Unlock()
	if spent {
		return corerr.New(corerr.NullifierReused, "nullifier already spent for this unit")
	}

	vk, err := c.Keys.GetVKVersion(unit, groth16verify.TrackVote, p.VkVersion)
	if err != nil {
		return err
	}

	voteChoiceField := field.FrFromUint64(uint64(ballot.VoteChoice))
	publicInputs := []field.Fr{ballot.Root, ballot.Nullifier, unitIDField, proposalIDField, voteChoiceField, ballot.Commitment}
	ok, err := groth16verify.Verify(vk, ballot.Proof, publicInputs)
	if err != nil {
		return err
	}
	if !ok {
		return corerr.New(corerr.ProofInvalid, "proof did not verify")
	}

	if err := c.reserveNullifier(unit, ballot.Nullifier); err != nil {
		return err
	}

	return c.Proposals.RecordVote(unit, proposalID, ballot.VoteChoice)
}

// Comment executes the nullifier-gated anonymous-comment variant of the
// ballot protocol (§4.2): it requires the same root eligibility and proof
// validity as Vote, against the comment-track key pinned to the proposal's
// CommentVkVersion (mirroring how Vote pins to VkVersion), but never mutates
// a proposal's tally — a successful call only proves "this still-eligible
// member has not used this (proposal, nonce) pair before." The per-comment
// nonce is folded into the nullifier by the circuit as a private witness
// (circuits/membership's Nonce field), not as a public input, so the public
// input vector keeps the same 6-element shape Vote uses, with the
// voteChoice slot repurposed as an opaque bound field per §4.6's closing
// paragraph.
func (c *Core) Comment(unit, proposalID uint64, unitIDField, proposalIDField field.Fr, ballot Ballot) error {
	lock := c.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	p, err := c.Proposals.Get(unit, proposalID)
	if err != nil {
		return err
	}
	if closedOrExpired(p) {
		return corerr.New(corerr.ProposalClosed, "proposal is closed or past its end time")
	}

	if err := c.acceptedRoot(unit, p, ballot.Root); err != nil {
		return err
	}

	c.mu.Lock()
	spent := c.nullifiers[unit] != nil && c.nullifiers[unit][ballot.Nullifier]
	c.mu.Unlock()
	if spent {
		return corerr.New(corerr.NullifierReused, "nullifier already spent for this unit")
	}

	vk, err := c.Keys.GetVKVersion(unit, groth16verify.TrackComment, p.CommentVkVersion)
	if err != nil {
		return err
	}

	publicInputs := []field.Fr{ballot.Root, ballot.Nullifier, unitIDField, proposalIDField, field.Zero(), ballot.Commitment}
	ok, err := groth16verify.Verify(vk, ballot.Proof, publicInputs)
	if err != nil {
		return err
	}
	if !ok {
		return corerr.New(corerr.ProofInvalid, "proof did not verify")
	}

	return c.reserveNullifier(unit, ballot.Nullifier)
}
