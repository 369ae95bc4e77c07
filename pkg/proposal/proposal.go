// Package proposal is the C5 ProposalStore component: a unit's proposals
// and their tallies (§4.5). It knows nothing about proofs or nullifiers —
// pkg/voting calls RecordVote only after Groth16Verifier and the nullifier
// ledger have both accepted a ballot.
package proposal

import (
	"sync"

	"github.com/zkdao/corevote/pkg/corerr"
)

// VoteMode controls which roots a proposal accepts membership proofs
// against, mirroring the teacher's Backend iota enum in pkg/setup.
type VoteMode int

const (
	// Fixed snapshots the unit's root at creation time; only proofs against
	// that exact root are accepted for the life of the proposal.
	Fixed VoteMode = iota
	// Trailing accepts proofs against any root still held in the unit's
	// recent-roots ring buffer (config.RingSize), so members who join after
	// proposal creation can still vote.
	Trailing
)

// Proposal is one unit's proposal record (§3 Proposal). VoteChoice is
// binary: 0 = no, 1 = yes (§4.6 step 3).
type Proposal struct {
	ID               uint64
	Unit             uint64
	Title            string
	ContentRef       string // opaque pointer to off-core content (IPFS hash, URL, ...)
	EndTime          int64  // unix seconds; proposal is Expired once now >= EndTime (0 = no expiry)
	Creator          string
	Mode             VoteMode
	SnapshotRoot     [32]byte // only meaningful when Mode == Fixed
	VkVersion        uint64   // pins the vote-track verifier key version this proposal was opened against
	CommentVkVersion uint64   // pins the comment-track verifier key version this proposal was opened against
	Open             bool
	YesVotes         uint64
	NoVotes          uint64
}

type unitProposals struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*Proposal
}

// Store is the process-wide ProposalStore, keyed by unit.
type Store struct {
	mu    sync.Mutex
	units map[uint64]*unitProposals
}

// New returns an empty Store.
func New() *Store {
	return &Store{units: make(map[uint64]*unitProposals)}
}

func (s *Store) getOrCreate(unit uint64) *unitProposals {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unit]
	if !ok {
		u = &unitProposals{nextID: 1, byID: make(map[uint64]*Proposal)}
		s.units[unit] = u
	}
	return u
}

// Create opens a new proposal for a unit and returns its id (§4.5 create).
// vkVersion and commentVkVersion pin the vote- and comment-track verifying
// key versions in effect at creation time, so a later key rotation on either
// track never changes which circuit governs this proposal's ballots.
func (s *Store) Create(unit uint64, title, contentRef string, endTime int64, creator string, mode VoteMode, snapshotRoot [32]byte, vkVersion, commentVkVersion uint64) uint64 {
	u := s.getOrCreate(unit)
	u.mu.Lock()
	defer u.mu.Unlock()

	id := u.nextID
	u.nextID++
	u.byID[id] = &Proposal{
		ID:               id,
		Unit:             unit,
		Title:            title,
		ContentRef:       contentRef,
		EndTime:          endTime,
		Creator:          creator,
		Mode:             mode,
		SnapshotRoot:     snapshotRoot,
		VkVersion:        vkVersion,
		CommentVkVersion: commentVkVersion,
		Open:             true,
	}
	return id
}

// Get returns a copy of a proposal's current state.
func (s *Store) Get(unit, id uint64) (Proposal, error) {
	u := s.getOrCreate(unit)
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.byID[id]
	if !ok {
		return Proposal{}, corerr.New(corerr.ProposalNotFound, "proposal not found")
	}
	return *p, nil
}

// RecordVote increments yes_votes or no_votes for a binary choice on an open
// proposal. Callers (pkg/voting) must have already validated choice ∈
// {0,1}, verified the proof, and reserved the nullifier before calling this
// — it performs no cryptographic checks of its own.
func (s *Store) RecordVote(unit, id uint64, choice int64) error {
	u := s.getOrCreate(unit)
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.byID[id]
	if !ok {
		return corerr.New(corerr.ProposalNotFound, "proposal not found")
	}
	if !p.Open {
		return corerr.New(corerr.ProposalClosed, "proposal is closed")
	}
	switch choice {
	case 0:
		p.NoVotes++
	case 1:
		p.YesVotes++
	default:
		return corerr.New(corerr.MalformedProof, "vote choice must be 0 or 1")
	}
	return nil
}

// Close marks a proposal closed; further votes are rejected.
func (s *Store) Close(unit, id uint64) error {
	u := s.getOrCreate(unit)
	u.mu.Lock()
	defer u.mu.Unlock()
	p, ok := u.byID[id]
	if !ok {
		return corerr.New(corerr.ProposalNotFound, "proposal not found")
	}
	if !p.Open {
		return corerr.New(corerr.ProposalClosed, "proposal already closed")
	}
	p.Open = false
	return nil
}

// Count returns the number of proposals ever created for a unit.
func (s *Store) Count(unit uint64) uint64 {
	u := s.getOrCreate(unit)
	u.mu.Lock()
	defer u.mu.Unlock()
	return uint64(len(u.byID))
}
