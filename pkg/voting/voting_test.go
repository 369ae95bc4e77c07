package voting

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/zkdao/corevote/pkg/corerr"
	"github.com/zkdao/corevote/pkg/field"
	"github.com/zkdao/corevote/pkg/groth16verify"
	"github.com/zkdao/corevote/pkg/identity"
	"github.com/zkdao/corevote/pkg/merkle"
	"github.com/zkdao/corevote/pkg/proposal"
)

// trivialVK builds a VerifyingKey whose IC entries are all the G1 identity
// element, so vkX collapses to the identity regardless of the public input
// values. Paired with a proof of A=Alpha, B=Beta, C=identity, the pairing
// equation e(-A,B)*e(Alpha,Beta)*e(vkX,Gamma)*e(C,Delta) == 1 holds
// unconditionally. This isolates pkg/voting's orchestration logic (root
// acceptance, vk_version pinning, nullifier bookkeeping, tally mutation)
// from circuit-level soundness, which circuits/membership's own end-to-end
// test already covers against a real compiled circuit.
func trivialVK(numPublicInputs int) (groth16verify.VerifyingKey, groth16verify.Proof) {
	_, _, g1Aff, g2Aff := bn254.Generators()
	alpha := field.G1FromAffine(g1Aff)
	beta := field.G2FromAffine(g2Aff)

	var identityG1 field.G1 // zero value: point at infinity

	ic := make([]field.G1, numPublicInputs+1)
	for i := range ic {
		ic[i] = identityG1
	}

	vk := groth16verify.VerifyingKey{
		Alpha: alpha,
		Beta:  beta,
		Gamma: beta,
		Delta: beta,
		IC:    ic,
	}
	proof := groth16verify.Proof{
		A: alpha,
		B: beta,
		C: identityG1,
	}
	return vk, proof
}

func setupCore(t *testing.T, numPublicInputs int) (*Core, uint64, uint64, field.Fr, field.Fr) {
	t.Helper()
	reg := identity.New()
	forest := merkle.New()
	keys := groth16verify.NewKeyStore()
	props := proposal.New()

	unit, err := reg.CreateUnit("acme", "alice", false, false)
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	forest.Init(unit)

	vk, _ := trivialVK(numPublicInputs)
	if _, err := keys.SetVK(unit, groth16verify.TrackVote, vk); err != nil {
		t.Fatalf("set vote vk: %v", err)
	}
	if _, err := keys.SetVK(unit, groth16verify.TrackComment, vk); err != nil {
		t.Fatalf("set comment vk: %v", err)
	}

	root, err := forest.CurrentRoot(unit)
	if err != nil {
		t.Fatalf("current root: %v", err)
	}
	var rootBytes [32]byte = root.Bytes()

	proposalID := props.Create(unit, "raise dues", "ipfs://x", 0, "alice", proposal.Fixed, rootBytes, 1, 1)

	core := New(reg, forest, keys, props)
	return core, unit, proposalID, field.FrFromUint64(unit), field.FrFromUint64(proposalID)
}

func TestVoteAcceptsValidBallotAndTallies(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)

	root, _ := core.Forest.CurrentRoot(unit)
	ballot := Ballot{
		Proof:      proof,
		Root:       root,
		Nullifier:  field.FrFromUint64(111),
		VoteChoice: 1,
		Commitment: field.FrFromUint64(222),
	}

	if err := core.Vote(unit, propID, unitF, propF, ballot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := core.Proposals.Get(unit, propID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.YesVotes != 1 {
		t.Fatalf("expected yes_votes == 1, got %d", p.YesVotes)
	}
}

func TestVoteRejectsNullifierReuse(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)
	root, _ := core.Forest.CurrentRoot(unit)

	ballot := Ballot{
		Proof:      proof,
		Root:       root,
		Nullifier:  field.FrFromUint64(999),
		VoteChoice: 0,
		Commitment: field.FrFromUint64(333),
	}
	if err := core.Vote(unit, propID, unitF, propF, ballot); err != nil {
		t.Fatalf("unexpected error on first vote: %v", err)
	}

	err := core.Vote(unit, propID, unitF, propF, ballot)
	if !corerr.Is(err, corerr.NullifierReused) {
		t.Fatalf("expected NullifierReused, got %v", err)
	}
}

// TestVoteRejectsStaleFixedRoot covers §8 scenario: a member who joined
// after a Fixed-mode proposal's snapshot cannot vote against the new root.
func TestVoteRejectsStaleFixedRoot(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)

	if _, err := core.Forest.Register(unit, field.FrFromUint64(1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	newRoot, _ := core.Forest.CurrentRoot(unit)

	ballot := Ballot{
		Proof:      proof,
		Root:       newRoot,
		Nullifier:  field.FrFromUint64(42),
		VoteChoice: 1,
		Commitment: field.FrFromUint64(555),
	}
	err := core.Vote(unit, propID, unitF, propF, ballot)
	if !corerr.Is(err, corerr.RootMismatch) {
		t.Fatalf("expected RootMismatch, got %v", err)
	}
}

// TestTrailingModeAcceptsLaterRoot covers §8: Trailing-mode proposals accept
// a root produced by registrations that happened after proposal creation.
func TestTrailingModeAcceptsLaterRoot(t *testing.T) {
	reg := identity.New()
	forest := merkle.New()
	keys := groth16verify.NewKeyStore()
	props := proposal.New()

	unit, _ := reg.CreateUnit("acme", "alice", false, false)
	forest.Init(unit)

	vk, proof := trivialVK(6)
	keys.SetVK(unit, groth16verify.TrackVote, vk)

	var zeroRoot [32]byte
	propID := props.Create(unit, "raise dues", "ipfs://x", 0, "alice", proposal.Trailing, zeroRoot, 1, 0)

	if _, err := forest.Register(unit, field.FrFromUint64(7)); err != nil {
		t.Fatalf("register: %v", err)
	}
	root, _ := forest.CurrentRoot(unit)

	core := New(reg, forest, keys, props)
	ballot := Ballot{
		Proof:      proof,
		Root:       root,
		Nullifier:  field.FrFromUint64(1001),
		VoteChoice: 1,
		Commitment: field.FrFromUint64(2002),
	}
	if err := core.Vote(unit, propID, field.FrFromUint64(unit), field.FrFromUint64(propID), ballot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVoteRejectsClosedProposal(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)
	root, _ := core.Forest.CurrentRoot(unit)

	if err := core.Proposals.Close(unit, propID); err != nil {
		t.Fatalf("close: %v", err)
	}

	ballot := Ballot{Proof: proof, Root: root, Nullifier: field.FrFromUint64(1), VoteChoice: 1, Commitment: field.FrFromUint64(2)}
	err := core.Vote(unit, propID, unitF, propF, ballot)
	if !corerr.Is(err, corerr.ProposalClosed) {
		t.Fatalf("expected ProposalClosed, got %v", err)
	}
}

// TestVoteRejectsExpiredProposal covers §4.5's Open → Expired transition: a
// proposal past its end_time is rejected the same as an explicitly closed
// one, even though Open is still true.
func TestVoteRejectsExpiredProposal(t *testing.T) {
	reg := identity.New()
	forest := merkle.New()
	keys := groth16verify.NewKeyStore()
	props := proposal.New()

	unit, _ := reg.CreateUnit("acme", "alice", false, false)
	forest.Init(unit)
	vk, proof := trivialVK(6)
	keys.SetVK(unit, groth16verify.TrackVote, vk)

	root, _ := forest.CurrentRoot(unit)
	var rootBytes [32]byte = root.Bytes()
	propID := props.Create(unit, "raise dues", "ipfs://x", 1, "alice", proposal.Fixed, rootBytes, 1, 0)

	core := New(reg, forest, keys, props)
	ballot := Ballot{Proof: proof, Root: root, Nullifier: field.FrFromUint64(1), VoteChoice: 1, Commitment: field.FrFromUint64(2)}
	err := core.Vote(unit, propID, field.FrFromUint64(unit), field.FrFromUint64(propID), ballot)
	if !corerr.Is(err, corerr.ProposalClosed) {
		t.Fatalf("expected ProposalClosed for an expired proposal, got %v", err)
	}
}

// TestVoteRejectsOutOfRangeChoice covers §4.6 step 3: choice must be 0 or 1.
func TestVoteRejectsOutOfRangeChoice(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)
	root, _ := core.Forest.CurrentRoot(unit)

	ballot := Ballot{Proof: proof, Root: root, Nullifier: field.FrFromUint64(77), VoteChoice: 2, Commitment: field.FrFromUint64(1)}
	err := core.Vote(unit, propID, unitF, propF, ballot)
	if !corerr.Is(err, corerr.MalformedProof) {
		t.Fatalf("expected MalformedProof for an out-of-range choice, got %v", err)
	}
}

// TestVoteAcceptsPinnedVkVersionAfterRotation covers §3/§4.4's write-once
// per-(unit,version) key invariant: rotating a unit's voting key must not
// invalidate a proposal still pinned to the prior version.
func TestVoteAcceptsPinnedVkVersionAfterRotation(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)
	root, _ := core.Forest.CurrentRoot(unit)

	newVK, _ := trivialVK(6)
	if _, err := core.Keys.SetVK(unit, groth16verify.TrackVote, newVK); err != nil {
		t.Fatalf("rotate vk: %v", err)
	}

	ballot := Ballot{Proof: proof, Root: root, Nullifier: field.FrFromUint64(321), VoteChoice: 1, Commitment: field.FrFromUint64(4)}
	if err := core.Vote(unit, propID, unitF, propF, ballot); err != nil {
		t.Fatalf("expected vote pinned to version 1 to still verify after rotation: %v", err)
	}
}

// TestCommentDoesNotMutateTally covers §4.2: a successful comment still
// consumes a nullifier but leaves the proposal's vote tally untouched.
func TestCommentDoesNotMutateTally(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)
	root, _ := core.Forest.CurrentRoot(unit)

	ballot := Ballot{
		Proof:      proof,
		Root:       root,
		Nullifier:  field.FrFromUint64(88),
		Commitment: field.FrFromUint64(99),
		Nonce:      field.FrFromUint64(1),
	}
	if err := core.Comment(unit, propID, unitF, propF, ballot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, _ := core.Proposals.Get(unit, propID)
	if p.YesVotes != 0 || p.NoVotes != 0 {
		t.Fatal("expected comment to leave the tally empty")
	}

	err := core.Comment(unit, propID, unitF, propF, ballot)
	if !corerr.Is(err, corerr.NullifierReused) {
		t.Fatalf("expected NullifierReused on repeated comment nonce, got %v", err)
	}
}

// TestCommentAcceptsPinnedVkVersionAfterRotation mirrors
// TestVoteAcceptsPinnedVkVersionAfterRotation for the comment track: rotating
// a unit's comment key must not invalidate a proposal still pinned to the
// comment-track version installed at its creation.
func TestCommentAcceptsPinnedVkVersionAfterRotation(t *testing.T) {
	core, unit, propID, unitF, propF := setupCore(t, 6)
	_, proof := trivialVK(6)
	root, _ := core.Forest.CurrentRoot(unit)

	newVK, _ := trivialVK(6)
	if _, err := core.Keys.SetVK(unit, groth16verify.TrackComment, newVK); err != nil {
		t.Fatalf("rotate comment vk: %v", err)
	}

	ballot := Ballot{
		Proof:      proof,
		Root:       root,
		Nullifier:  field.FrFromUint64(654),
		Commitment: field.FrFromUint64(987),
		Nonce:      field.FrFromUint64(1),
	}
	if err := core.Comment(unit, propID, unitF, propF, ballot); err != nil {
		t.Fatalf("expected comment pinned to version 1 to still verify after rotation: %v", err)
	}
}

// TestCrossUnitNullifierReuseAllowed covers §8: the same nullifier value may
// be spent independently in two different units, since nullifier uniqueness
// is scoped per unit.
func TestCrossUnitNullifierReuseAllowed(t *testing.T) {
	reg := identity.New()
	forest := merkle.New()
	keys := groth16verify.NewKeyStore()
	props := proposal.New()

	unitA, _ := reg.CreateUnit("a", "alice", false, false)
	unitB, _ := reg.CreateUnit("b", "bob", false, false)
	forest.Init(unitA)
	forest.Init(unitB)

	vk, proof := trivialVK(6)
	keys.SetVK(unitA, groth16verify.TrackVote, vk)
	keys.SetVK(unitB, groth16verify.TrackVote, vk)

	rootA, _ := forest.CurrentRoot(unitA)
	rootB, _ := forest.CurrentRoot(unitB)
	var rootABytes, rootBBytes [32]byte = rootA.Bytes(), rootB.Bytes()

	propA := props.Create(unitA, "raise dues", "ipfs://x", 0, "alice", proposal.Fixed, rootABytes, 1, 0)
	propB := props.Create(unitB, "raise dues", "ipfs://x", 0, "bob", proposal.Fixed, rootBBytes, 1, 0)

	core := New(reg, forest, keys, props)
	n := field.FrFromUint64(555)

	ballotA := Ballot{Proof: proof, Root: rootA, Nullifier: n, VoteChoice: 1, Commitment: field.FrFromUint64(1)}
	if err := core.Vote(unitA, propA, field.FrFromUint64(unitA), field.FrFromUint64(propA), ballotA); err != nil {
		t.Fatalf("unexpected error voting in unit A: %v", err)
	}

	ballotB := Ballot{Proof: proof, Root: rootB, Nullifier: n, VoteChoice: 1, Commitment: field.FrFromUint64(2)}
	if err := core.Vote(unitB, propB, field.FrFromUint64(unitB), field.FrFromUint64(propB), ballotB); err != nil {
		t.Fatalf("expected same nullifier to be usable in a different unit: %v", err)
	}
}
