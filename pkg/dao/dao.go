// Package dao is the public facade wiring IdentityRegistry, MerkleForest,
// Groth16Verifier, ProposalStore, and VotingCore into the single surface an
// application embeds (§4). It owns no state of its own beyond the five
// component instances and translates between the core's Fr-typed internals
// and the plain Go types callers outside the crypto boundary use.
package dao

import (
	"github.com/zkdao/corevote/pkg/corerr"
	"github.com/zkdao/corevote/pkg/field"
	"github.com/zkdao/corevote/pkg/groth16verify"
	"github.com/zkdao/corevote/pkg/identity"
	"github.com/zkdao/corevote/pkg/merkle"
	"github.com/zkdao/corevote/pkg/proposal"
	"github.com/zkdao/corevote/pkg/voting"
)

// DAO wires the six core components (C1-C6) into the operations spec §4
// lists: unit lifecycle, membership, proposal lifecycle, and voting.
type DAO struct {
	Identity  *identity.Registry
	Forest    *merkle.Forest
	Keys      *groth16verify.KeyStore
	Proposals *proposal.Store
	Voting    *voting.Core
}

// New wires a fresh DAO from empty component instances.
func New() *DAO {
	reg := identity.New()
	forest := merkle.New()
	keys := groth16verify.NewKeyStore()
	props := proposal.New()
	return &DAO{
		Identity:  reg,
		Forest:    forest,
		Keys:      keys,
		Proposals: props,
		Voting:    voting.New(reg, forest, keys, props),
	}
}

// CreateUnit creates a unit and initializes its (empty) Merkle tree.
func (d *DAO) CreateUnit(name string, creator identity.Address, membershipOpen, membersCanPropose bool) (uint64, error) {
	unit, err := d.Identity.CreateUnit(name, creator, membershipOpen, membersCanPropose)
	if err != nil {
		return 0, err
	}
	d.Forest.Init(unit)
	return unit, nil
}

// Register mints addr as a member of unit (admin-gated, or self-join if the
// unit allows it) and appends commitment to the unit's Merkle tree. The two
// steps happen under the unit's single-writer lock so a concurrent Remove
// can never observe a half-registered member.
func (d *DAO) Register(unit uint64, addr, caller identity.Address, commitment field.Fr, selfJoin bool) (int, error) {
	lock := d.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	var err error
	if selfJoin {
		err = d.Identity.SelfJoin(unit, caller)
	} else {
		err = d.Identity.Mint(unit, addr, caller)
	}
	if err != nil {
		return 0, err
	}

	idx, err := d.Forest.Register(unit, commitment)
	if err != nil {
		return 0, err
	}
	return idx, nil
}

// Remove revokes addr's membership and tombstones their Merkle leaf.
func (d *DAO) Remove(unit uint64, addr, caller identity.Address, commitment field.Fr) error {
	lock := d.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	if err := d.Identity.Revoke(unit, addr, caller); err != nil {
		return err
	}
	return d.Forest.Remove(unit, commitment)
}

// Reinstate restores a previously-removed commitment. Admin-only (§5 Open
// Question): membership itself must be re-minted separately since Revoke
// already cleared it.
func (d *DAO) Reinstate(unit uint64, caller identity.Address, commitment field.Fr) error {
	lock := d.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	u, err := d.Identity.Get(unit)
	if err != nil {
		return err
	}
	if u.Admin != caller {
		return corerr.New(corerr.NotAdmin, "only the unit admin may reinstate a commitment")
	}
	return d.Forest.Reinstate(unit, commitment)
}

// SetVotingKey installs a new verifying key for a unit/track. Admin-gated,
// and serialized against register/remove/reinstate/vote/create-proposal via
// the unit's lock (§5).
func (d *DAO) SetVotingKey(unit uint64, caller identity.Address, track groth16verify.Track, vk groth16verify.VerifyingKey) (uint64, error) {
	lock := d.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	u, err := d.Identity.Get(unit)
	if err != nil {
		return 0, err
	}
	if u.Admin != caller {
		return 0, corerr.New(corerr.NotAdmin, "only the unit admin may install a verifying key")
	}
	return d.Keys.SetVK(unit, track, vk)
}

// CreateProposal opens a proposal (§4.5 create), snapshotting the unit's
// current root and vk_version for Fixed mode. Gated by the unit's
// membersCanPropose flag unless caller is the admin. Holds the unit's lock
// for the duration (§5) so the snapshotted root and vk_version are always
// observed together, never interleaved with a concurrent register/set_vk.
func (d *DAO) CreateProposal(unit uint64, caller identity.Address, title, contentRef string, endTime int64, mode proposal.VoteMode) (uint64, error) {
	lock := d.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	u, err := d.Identity.Get(unit)
	if err != nil {
		return 0, err
	}
	if caller != u.Admin {
		canPropose, err := d.Identity.MembersCanPropose(unit)
		if err != nil {
			return 0, err
		}
		if !canPropose || !d.Identity.Has(unit, caller) {
			return 0, corerr.New(corerr.NotMember, "caller may not create proposals for this unit")
		}
	}

	root, err := d.Forest.CurrentRoot(unit)
	if err != nil {
		return 0, err
	}
	_, vkVersion, err := d.Keys.GetVK(unit, groth16verify.TrackVote)
	if err != nil {
		return 0, err
	}
	// Comment-track keys are optional: a unit that never installs one simply
	// can't have its proposals commented on, surfaced as VkNotSet at Comment
	// time rather than blocking proposal creation.
	var commentVkVersion uint64
	if _, v, err := d.Keys.GetVK(unit, groth16verify.TrackComment); err == nil {
		commentVkVersion = v
	}

	return d.Proposals.Create(unit, title, contentRef, endTime, string(caller), mode, root.Bytes(), vkVersion, commentVkVersion), nil
}

// Vote submits a ballot against an open proposal.
func (d *DAO) Vote(unit, proposalID uint64, ballot voting.Ballot) error {
	return d.Voting.Vote(unit, proposalID, field.FrFromUint64(unit), field.FrFromUint64(proposalID), ballot)
}

// Comment submits an anonymous, nullifier-gated comment against an open
// proposal without affecting its tally.
func (d *DAO) Comment(unit, proposalID uint64, ballot voting.Ballot) error {
	return d.Voting.Comment(unit, proposalID, field.FrFromUint64(unit), field.FrFromUint64(proposalID), ballot)
}

// Close closes a proposal. Admin-gated, holding the unit's lock for the
// duration like every other mutating operation (§5).
func (d *DAO) Close(unit, proposalID uint64, caller identity.Address) error {
	lock := d.Identity.Lock(unit)
	lock.Lock()
	defer lock.Unlock()

	u, err := d.Identity.Get(unit)
	if err != nil {
		return err
	}
	if u.Admin != caller {
		return corerr.New(corerr.NotAdmin, "only the unit admin may close a proposal")
	}
	return d.Proposals.Close(unit, proposalID)
}
