// Package membership is the gnark circuit for the core's single ZK
// statement (§4.4): "I hold a commitment registered in the tree with root
// Root, and I am spending it under nullifier Nullifier for unit/proposal
// UnitID/ProposalID with vote VoteChoice." Adapted from the teacher's
// circuits/poi PoICircuit + MerkleProofCircuit — same fixed-depth sparse
// Merkle-path verification shape, generalized from file-chunk inclusion to
// membership-commitment inclusion, and with the VRF/signature machinery
// replaced by the commitment/nullifier relations §4 defines.
//
// The in-circuit Merkle hash uses gnark's own poseidon2 permutation (same
// choice as the teacher), which is NOT bit-identical to the circomlib-exact
// Poseidon pkg/field uses off-circuit for the canonical tree (see
// DESIGN.md) — a production deployment would need a custom in-circuit
// permutation matching circomlib's round constants; no such gadget exists
// in the example pack.
package membership

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"

	"github.com/zkdao/corevote/config"
)

// Circuit proves membership + correct nullifier/commitment derivation for
// one vote or comment. Domain selects which nullifier formula applies:
// DomainVote ignores Nonce; DomainComment folds it in (§4.2 nullifier
// domain separation for repeated anonymous comments).
type Circuit struct {
	// Public inputs, in the spec's normative order (§4.4).
	Root       frontend.Variable `gnark:"root,public"`
	Nullifier  frontend.Variable `gnark:"nullifier,public"`
	UnitID     frontend.Variable `gnark:"unitId,public"`
	ProposalID frontend.Variable `gnark:"proposalId,public"`
	VoteChoice frontend.Variable `gnark:"voteChoice,public"`
	Commitment frontend.Variable `gnark:"commitment,public"`

	// Private inputs.
	Secret     frontend.Variable                        `gnark:"secret"`
	Salt       frontend.Variable                        `gnark:"salt"`
	Domain     frontend.Variable                        `gnark:"domain"` // 0 = vote, 1 = comment
	Nonce      frontend.Variable                        `gnark:"nonce"`  // only meaningful when Domain == 1
	PathProof  [config.TreeDepth]frontend.Variable      `gnark:"pathProof"`
	Directions [config.TreeDepth]frontend.Variable      `gnark:"directions"`
}

func (c *Circuit) Define(api frontend.API) error {
	p, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return err
	}

	// Secret must be non-zero: a zero secret would make the commitment and
	// every nullifier derived from it predictable.
	api.AssertIsEqual(api.IsZero(c.Secret), 0)

	// 1. Commitment = Poseidon2(secret, salt).
	commitHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	commitHasher.Write(c.Secret, c.Salt)
	derivedCommitment := commitHasher.Sum()
	commitHasher.Reset()
	api.AssertIsEqual(c.Commitment, derivedCommitment)

	// 2. Domain must be boolean.
	api.AssertIsBoolean(c.Domain)

	// 3. Nullifier = Poseidon3(secret, unitId, proposalId) for a vote, or
	// Poseidon4(secret, unitId, proposalId, nonce) for a comment.
	voteHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	voteHasher.Write(c.Secret, c.UnitID, c.ProposalID)
	voteNullifier := voteHasher.Sum()
	voteHasher.Reset()

	commentHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	commentHasher.Write(c.Secret, c.UnitID, c.ProposalID, c.Nonce)
	commentNullifier := commentHasher.Sum()
	commentHasher.Reset()

	derivedNullifier := api.Select(c.Domain, commentNullifier, voteNullifier)
	api.AssertIsEqual(c.Nullifier, derivedNullifier)

	// 4. Merkle inclusion of Commitment at root Root, fixed depth
	// config.TreeDepth, direction 0 = current is left child (sibling on the
	// right), 1 = current is right child (sibling on the left) — matching
	// pkg/merkle's off-circuit convention.
	current := c.Commitment
	merkleHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	for i := 0; i < config.TreeDepth; i++ {
		api.AssertIsBoolean(c.Directions[i])
		sibling := c.PathProof[i]
		direction := c.Directions[i]

		left := api.Select(direction, sibling, current)
		right := api.Select(direction, current, sibling)

		merkleHasher.Reset()
		merkleHasher.Write(left, right)
		current = merkleHasher.Sum()
	}
	api.AssertIsEqual(current, c.Root)

	return nil
}
