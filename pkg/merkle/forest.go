// Package merkle is the C3 MerkleForest component: one fixed-depth Poseidon
// Merkle tree per unit, with a recent-roots ring buffer so Trailing-mode
// proposals can accept proofs against any of several still-fresh roots
// (§4.3). Leaves are stored sparsely — only occupied indices are kept, with
// the rest filled in on demand from a precomputed "zero ladder".
package merkle

import (
	"sync"

	"github.com/zkdao/corevote/config"
	"github.com/zkdao/corevote/pkg/corerr"
	"github.com/zkdao/corevote/pkg/field"
)

// zeroLadder[0] is the empty-leaf value 0; zeroLadder[i] is the root of
// an all-empty subtree of height i. Computed once at package init, mirroring
// PrecomputeZeroHashes in the teacher's sparse-tree implementation.
var zeroLadder [config.TreeDepth + 1]field.Fr

func init() {
	zeroLadder[0] = field.Zero()
	for i := 1; i <= config.TreeDepth; i++ {
		zeroLadder[i] = field.Poseidon2(zeroLadder[i-1], zeroLadder[i-1])
	}
}

// Path is an inclusion path of length config.TreeDepth: siblings[i] is the
// sibling hash at level i, and directions[i] is 0 if the node on the path is
// the left child at that level (sibling on the right) or 1 otherwise.
type Path struct {
	Siblings   [config.TreeDepth]field.Fr
	Directions [config.TreeDepth]int
}

// tree is one unit's incremental Poseidon Merkle tree plus its bookkeeping.
type tree struct {
	mu sync.Mutex

	levels    [config.TreeDepth + 1]map[int]field.Fr // levels[0] = leaves
	root      field.Fr
	nextIndex int // next never-used leaf slot

	indexOf map[field.Fr]int // commitment -> leaf index, for leaf_index_of
	zeroed  map[int]bool     // leaf indices currently tombstoned by Remove

	ring     [config.RingSize]field.Fr
	ringLen  int
	ringHead int // index of the most recently written ring slot
}

func newTree() *tree {
	t := &tree{
		indexOf: make(map[field.Fr]int),
		zeroed:  make(map[int]bool),
	}
	for i := range t.levels {
		t.levels[i] = make(map[int]field.Fr)
	}
	t.root = zeroLadder[config.TreeDepth]
	t.pushRoot(t.root)
	return t
}

func (t *tree) pushRoot(r field.Fr) {
	t.ringHead = (t.ringHead + 1) % config.RingSize
	t.ring[t.ringHead] = r
	if t.ringLen < config.RingSize {
		t.ringLen++
	}
}

func (t *tree) isKnownRoot(r field.Fr) bool {
	for i := 0; i < t.ringLen; i++ {
		idx := (t.ringHead - i + config.RingSize) % config.RingSize
		if t.ring[idx].Equal(r) {
			return true
		}
	}
	return false
}

// leafAt returns the stored value at a leaf index, or the zero-ladder value
// if the slot has never been written.
func (t *tree) leafAt(idx int) field.Fr {
	if v, ok := t.levels[0][idx]; ok {
		return v
	}
	return zeroLadder[0]
}

// recomputePath walks from a leaf index up to the root, recomputing every
// node along the way. This mirrors the teacher's single-path update inside
// GetProof/HashNodes rather than the parallel full-gap rebuild in
// checkpoint.go: a live per-unit tree only ever needs one path touched per
// mutation, so the graduated-gap machinery has no work to do here.
func (t *tree) recomputePath(idx int) {
	cur := idx
	for lvl := 0; lvl < config.TreeDepth; lvl++ {
		parent := cur / 2
		var left, right field.Fr
		if cur%2 == 0 {
			left = t.nodeAt(lvl, cur)
			right = t.nodeAt(lvl, cur+1)
		} else {
			left = t.nodeAt(lvl, cur-1)
			right = t.nodeAt(lvl, cur)
		}
		t.levels[lvl+1][parent] = field.Poseidon2(left, right)
		cur = parent
	}
	t.root = t.levels[config.TreeDepth][0]
}

func (t *tree) nodeAt(level, idx int) field.Fr {
	if v, ok := t.levels[level][idx]; ok {
		return v
	}
	return zeroLadder[level]
}

// pathOf reads the current inclusion path for a leaf index without
// mutating the tree.
func (t *tree) pathOf(idx int) Path {
	var p Path
	cur := idx
	for lvl := 0; lvl < config.TreeDepth; lvl++ {
		if cur%2 == 0 {
			p.Siblings[lvl] = t.nodeAt(lvl, cur+1)
			p.Directions[lvl] = 0
		} else {
			p.Siblings[lvl] = t.nodeAt(lvl, cur-1)
			p.Directions[lvl] = 1
		}
		cur /= 2
	}
	return p
}

// Forest owns one tree per unit, created lazily on first Init call.
type Forest struct {
	mu    sync.Mutex
	trees map[uint64]*tree
}

// New returns an empty Forest.
func New() *Forest {
	return &Forest{trees: make(map[uint64]*tree)}
}

func (f *Forest) getOrCreate(unit uint64) *tree {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trees[unit]
	if !ok {
		t = newTree()
		f.trees[unit] = t
	}
	return t
}

func (f *Forest) get(unit uint64) (*tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trees[unit]
	if !ok {
		return nil, corerr.New(corerr.NotInitialized, "unit tree not initialized")
	}
	return t, nil
}

// Init creates an empty tree for a unit. Calling it twice for the same unit
// is a no-op on the existing tree's state.
func (f *Forest) Init(unit uint64) {
	f.getOrCreate(unit)
}

// Register appends commitment as a new leaf and returns its index. Returns
// corerr.Full once the tree's 2^TreeDepth capacity is exhausted, and
// corerr.DuplicateCommitment if the commitment is already present (whether
// live or tombstoned).
func (f *Forest) Register(unit uint64, commitment field.Fr) (int, error) {
	t := f.getOrCreate(unit)
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.indexOf[commitment]; exists {
		return 0, corerr.New(corerr.DuplicateCommitment, "commitment already registered")
	}
	if t.nextIndex >= config.TreeCapacity {
		return 0, corerr.New(corerr.Full, "unit tree is at capacity")
	}

	idx := t.nextIndex
	t.nextIndex++
	t.levels[0][idx] = commitment
	t.indexOf[commitment] = idx
	t.recomputePath(idx)
	t.pushRoot(t.root)
	return idx, nil
}

// Remove tombstones the leaf at commitment's index, replacing its value
// with the zero leaf so future membership proofs against it fail, without
// freeing the index for reuse (§5 Open Question: indices are never
// recycled).
func (f *Forest) Remove(unit uint64, commitment field.Fr) error {
	t, err := f.get(unit)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.indexOf[commitment]
	if !ok || t.zeroed[idx] {
		return corerr.New(corerr.NotMember, "commitment not present in tree")
	}
	t.levels[0][idx] = zeroLadder[0]
	t.zeroed[idx] = true
	t.recomputePath(idx)
	t.pushRoot(t.root)
	return nil
}

// Reinstate restores a previously-removed commitment to its original index.
// Admin-only at the pkg/dao layer (§5 Open Question); the forest itself only
// enforces that the commitment was actually tombstoned.
func (f *Forest) Reinstate(unit uint64, commitment field.Fr) error {
	t, err := f.get(unit)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.indexOf[commitment]
	if !ok || !t.zeroed[idx] {
		return corerr.New(corerr.NotMember, "commitment was not previously removed")
	}
	t.levels[0][idx] = commitment
	delete(t.zeroed, idx)
	t.recomputePath(idx)
	t.pushRoot(t.root)
	return nil
}

// CurrentRoot returns the unit's current root.
func (f *Forest) CurrentRoot(unit uint64) (field.Fr, error) {
	t, err := f.get(unit)
	if err != nil {
		return field.Fr{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root, nil
}

// LeafIndexOf returns the leaf index a commitment was registered at.
func (f *Forest) LeafIndexOf(unit uint64, commitment field.Fr) (int, bool, error) {
	t, err := f.get(unit)
	if err != nil {
		return 0, false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.indexOf[commitment]
	return idx, ok, nil
}

// PathOf returns the current inclusion path for a leaf index.
func (f *Forest) PathOf(unit uint64, leafIndex int) (Path, error) {
	t, err := f.get(unit)
	if err != nil {
		return Path{}, err
	}
	if leafIndex < 0 || leafIndex >= config.TreeCapacity {
		return Path{}, corerr.New(corerr.MalformedProof, "leaf index out of range")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pathOf(leafIndex), nil
}

// IsKnownRoot reports whether r is the current root or one of the
// config.RingSize most recent roots for the unit (Trailing-mode eligibility,
// §4.3/§4.5).
func (f *Forest) IsKnownRoot(unit uint64, r field.Fr) (bool, error) {
	t, err := f.get(unit)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isKnownRoot(r), nil
}

// EmptyRoot returns the root of a tree with no leaves registered, i.e.
// zeroLadder[config.TreeDepth]. Exposed for tests pinning §8 P1.
func EmptyRoot() field.Fr {
	return zeroLadder[config.TreeDepth]
}
