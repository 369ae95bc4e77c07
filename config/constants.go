package config

// Process-wide constants for the membership forest and voting core. These
// mirror the spec's fixed sizes rather than being tunable per deployment:
// changing TreeDepth or the Poseidon domain tags changes the set of roots a
// prover can produce proofs against, so they are compiled in, not loaded
// from config files.
const (
	// TreeDepth is the fixed depth of every per-unit Poseidon Merkle tree.
	// Capacity is 2^TreeDepth leaves.
	TreeDepth = 18

	// TreeCapacity is the number of leaf slots in a tree of depth TreeDepth.
	TreeCapacity = 1 << TreeDepth

	// RingSize is the number of recent roots retained per unit for
	// Trailing-mode vote eligibility, one per tree revision; a root value
	// that recurs (e.g. after Remove then Reinstate) takes a slot each time.
	// The spec requires >= 32; frozen here.
	RingSize = 32

	// MaxNameLength bounds a unit's display name (§3 Unit).
	MaxNameLength = 24
)

// Domain tags separate the nullifier derivations used for votes and for
// repeated anonymous comments. (The vote/comment verifier key tracks are
// groth16verify.Track, not these tags.)
const (
	// DomainVote selects the 3-input Poseidon nullifier: H(secret, unitId, proposalId).
	DomainVote = 0

	// DomainComment selects the 4-input Poseidon nullifier: H(secret, unitId, proposalId, nonce).
	DomainComment = 1
)
