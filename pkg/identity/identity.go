// Package identity is the C2 IdentityRegistry: per-unit soul-bound
// membership bookkeeping. It holds no cryptographic material — only the
// admin/member relation that gates MerkleForest mutation (§4.2).
package identity

import (
	"sync"

	"github.com/zkdao/corevote/config"
	"github.com/zkdao/corevote/pkg/corerr"
)

// Address identifies a caller. The core is agnostic to what an address
// actually is (wallet address, DID, ...); callers supply a stable string.
type Address string

// Unit is the membership record for one organizational unit (§3 Unit).
type Unit struct {
	ID                 uint64
	Name               string
	Creator            Address
	Admin              Address
	MembershipOpen     bool
	MembersCanPropose  bool
	MemberCount        uint64
}

type unitState struct {
	unit    Unit
	members map[Address]bool
}

// Registry is the process-wide identity store. All methods are safe for
// concurrent use: each one takes the registry's single internal mutex. They
// do not take the per-unit lock returned by Lock; callers that need the
// per-unit serialization of §5 (pkg/dao, pkg/voting) hold that lock around
// their calls.
type Registry struct {
	mu      sync.Mutex // guards nextID, the units and ulocks maps, and every unit's record and member set
	nextID  uint64
	units   map[uint64]*unitState
	ulocks  map[uint64]*sync.Mutex
}

// New returns an empty Registry with unit ids starting at 1.
func New() *Registry {
	return &Registry{
		nextID: 1,
		units:  make(map[uint64]*unitState),
		ulocks: make(map[uint64]*sync.Mutex),
	}
}

// Lock returns the exclusive per-unit lock used to serialize every
// mutating operation on that unit across IdentityRegistry, MerkleForest,
// ProposalStore, and Groth16Verifier (§5). Callers (pkg/voting, pkg/dao)
// hold this for the duration of a register/remove/reinstate/create/vote/
// set_vk call.
func (r *Registry) Lock(unit uint64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.ulocks[unit]
	if !ok {
		l = &sync.Mutex{}
		r.ulocks[unit] = l
	}
	return l
}

func (r *Registry) get(unit uint64) (*unitState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[unit]
	if !ok {
		return nil, corerr.New(corerr.NotInitialized, "unit not found")
	}
	return u, nil
}

// CreateUnit registers a new unit with creator as its first admin.
func (r *Registry) CreateUnit(name string, creator Address, membershipOpen, membersCanPropose bool) (uint64, error) {
	if len(name) > config.MaxNameLength {
		return 0, corerr.New(corerr.NameTooLong, "unit name exceeds max length")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	r.units[id] = &unitState{
		unit: Unit{
			ID:                id,
			Name:              name,
			Creator:           creator,
			Admin:             creator,
			MembershipOpen:    membershipOpen,
			MembersCanPropose: membersCanPropose,
		},
		members: make(map[Address]bool),
	}
	r.ulocks[id] = &sync.Mutex{}
	return id, nil
}

// TransferAdmin reassigns admin rights; caller must be the current admin.
func (r *Registry) TransferAdmin(unit uint64, newAdmin, caller Address) error {
	u, err := r.get(unit)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.unit.Admin != caller {
		return corerr.New(corerr.NotAdmin, "caller is not the unit admin")
	}
	u.unit.Admin = newAdmin
	return nil
}

// Mint adds `to` as a member; caller must be the unit admin.
func (r *Registry) Mint(unit uint64, to, caller Address) error {
	u, err := r.get(unit)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.unit.Admin != caller {
		return corerr.New(corerr.NotAdmin, "caller is not the unit admin")
	}
	if u.members[to] {
		return corerr.New(corerr.AlreadyMember, "address is already a member")
	}
	u.members[to] = true
	u.unit.MemberCount++
	return nil
}

// SelfJoin adds caller as a member of a unit with open membership.
func (r *Registry) SelfJoin(unit uint64, caller Address) error {
	u, err := r.get(unit)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !u.unit.MembershipOpen {
		return corerr.New(corerr.MembershipClosed, "unit does not allow self-join")
	}
	if u.members[caller] {
		return corerr.New(corerr.AlreadyMember, "address is already a member")
	}
	u.members[caller] = true
	u.unit.MemberCount++
	return nil
}

// Revoke clears addr's membership flag. Authorized either by the unit
// admin, or by addr itself revoking its own membership (self-revoke, used
// by Leave per §4.2). Does not touch the Merkle tree — §4.3 makes that
// MerkleForest's responsibility, invoked separately by the caller
// (typically pkg/dao).
func (r *Registry) Revoke(unit uint64, addr, caller Address) error {
	u, err := r.get(unit)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.unit.Admin != caller && addr != caller {
		return corerr.New(corerr.NotAdmin, "caller is not the unit admin")
	}
	if !u.members[addr] {
		return corerr.New(corerr.NotMember, "address is not a member")
	}
	delete(u.members, addr)
	u.unit.MemberCount--
	return nil
}

// Leave is a self-service Revoke: caller removes its own membership.
func (r *Registry) Leave(unit uint64, caller Address) error {
	return r.Revoke(unit, caller, caller)
}

// Has reports whether addr currently holds membership in unit.
func (r *Registry) Has(unit uint64, addr Address) bool {
	u, err := r.get(unit)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return u.members[addr]
}

// Get returns a copy of the unit's current record.
func (r *Registry) Get(unit uint64) (Unit, error) {
	u, err := r.get(unit)
	if err != nil {
		return Unit{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return u.unit, nil
}

// MembersCanPropose reports whether non-admin members may create proposals.
func (r *Registry) MembersCanPropose(unit uint64) (bool, error) {
	u, err := r.Get(unit)
	if err != nil {
		return false, err
	}
	return u.MembersCanPropose, nil
}
