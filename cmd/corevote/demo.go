package main

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"

	"github.com/zkdao/corevote/circuits/membership"
	"github.com/zkdao/corevote/config"
	"github.com/zkdao/corevote/pkg/dao"
	"github.com/zkdao/corevote/pkg/field"
	"github.com/zkdao/corevote/pkg/groth16verify"
	"github.com/zkdao/corevote/pkg/proposal"
	"github.com/zkdao/corevote/pkg/voting"
)

// circuitHash replicates circuits/membership's in-circuit Poseidon
// permutation off-circuit, the same gnark-crypto poseidon2 primitive the
// teacher's pkg/merkle/merkle.go HashNodes used (see circuit_test.go for
// why this differs from pkg/field's circomlib-exact hash).
func circuitHash(inputs ...*big.Int) *big.Int {
	h := poseidon2.NewMerkleDamgardHasher()
	for _, in := range inputs {
		var e fr.Element
		e.SetBigInt(in)
		b := e.Bytes()
		h.Write(b[:])
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

func singleLeafPath(leaf *big.Int) (siblings []*big.Int, directions []int, root *big.Int) {
	zero := make([]*big.Int, config.TreeDepth+1)
	zero[0] = big.NewInt(0)
	for i := 1; i <= config.TreeDepth; i++ {
		zero[i] = circuitHash(zero[i-1], zero[i-1])
	}

	siblings = make([]*big.Int, config.TreeDepth)
	directions = make([]int, config.TreeDepth)
	cur := leaf
	for i := 0; i < config.TreeDepth; i++ {
		siblings[i] = zero[i]
		directions[i] = 0
		cur = circuitHash(cur, siblings[i])
	}
	return siblings, directions, cur
}

// runDemo walks through §8 scenario 2: create a unit, register its sole
// member, open a Fixed-mode proposal, prove and submit one ballot, and
// print the resulting tally. It runs a real single-party Groth16 setup and
// a real proof, so it exercises the exact verification path production
// code takes, with the toy in-circuit hash standing in for a properly
// provisioned production key.
func runDemo() error {
	fmt.Println("compiling membership circuit...")
	ccs, err := groth16verify.CompileCircuit(&membership.Circuit{})
	if err != nil {
		return fmt.Errorf("compile circuit: %w", err)
	}

	pk, vk, err := groth16verify.DevSetup(&membership.Circuit{})
	if err != nil {
		return fmt.Errorf("dev setup: %w", err)
	}

	secret, err := rand.Int(rand.Reader, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}
	salt, err := rand.Int(rand.Reader, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	commitment := circuitHash(secret, salt)
	siblings, directions, root := singleLeafPath(commitment)

	d := dao.New()
	unit, err := d.CreateUnit("acme-cooperative", "alice", true, true)
	if err != nil {
		return fmt.Errorf("create unit: %w", err)
	}

	if _, err := d.Register(unit, "bob", "bob", field.FrFromBigInt(commitment), true); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	unitID := big.NewInt(int64(unit))
	proposalID := big.NewInt(1)
	voteChoice := big.NewInt(1)
	nullifier := circuitHash(secret, unitID, proposalID)

	assignment := &membership.Circuit{
		Root:       root,
		Nullifier:  nullifier,
		UnitID:     unitID,
		ProposalID: proposalID,
		VoteChoice: voteChoice,
		Commitment: commitment,
		Secret:     secret,
		Salt:       salt,
		Domain:     0,
		Nonce:      0,
	}
	for i := 0; i < config.TreeDepth; i++ {
		assignment.PathProof[i] = siblings[i]
		assignment.Directions[i] = directions[i]
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("create witness: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return fmt.Errorf("prove: %w", err)
	}
	concreteProof, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return fmt.Errorf("unexpected proof type %T", proof)
	}

	vkVersion, err := d.SetVotingKey(unit, "alice", groth16verify.TrackVote, groth16verify.FromGnarkVK(vk))
	if err != nil {
		return fmt.Errorf("install voting key: %w", err)
	}

	// d.CreateProposal would snapshot d.Forest.CurrentRoot, which is hashed
	// with pkg/field's circomlib-exact Poseidon — a different permutation
	// from the in-circuit gnark poseidon2 this demo's proof is built against
	// (see circuits/membership's package doc). The demo proves a real
	// statement over its own toy tree, so it opens the proposal directly
	// against pkg/proposal.Store with that tree's root rather than going
	// through the DAO facade's Forest-backed snapshot.
	propID := d.Proposals.Create(unit, "raise dues", "ipfs://placeholder", 0, "alice", proposal.Fixed, field.FrFromBigInt(root).Bytes(), vkVersion, 0)

	ballot := voting.Ballot{
		Proof:      groth16verify.FromGnarkProof(concreteProof),
		Root:       field.FrFromBigInt(root),
		Nullifier:  field.FrFromBigInt(nullifier),
		VoteChoice: voteChoice.Int64(),
		Commitment: field.FrFromBigInt(commitment),
	}
	if err := d.Vote(unit, propID, ballot); err != nil {
		return fmt.Errorf("vote: %w", err)
	}

	p, err := d.Proposals.Get(unit, propID)
	if err != nil {
		return fmt.Errorf("read proposal: %w", err)
	}
	fmt.Printf("vote accepted. yes_votes=%d no_votes=%d\n", p.YesVotes, p.NoVotes)
	return nil
}
