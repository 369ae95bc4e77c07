// Package field is the C1 FieldOps component: BN254 scalar-field
// arithmetic, circomlib-exact Poseidon(t in {2,3,4}), and the G1/G2 codec
// and pairing check the Groth16 verifier is built on.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/zkdao/corevote/pkg/corerr"
)

// Fr is an element of the BN254 scalar field, always held canonically
// reduced (0 <= x < p).
type Fr struct {
	e fr.Element
}

// modulus is the BN254 scalar field order p, used for the explicit
// overflow check the spec requires on every external Fr input.
var modulus = fr.Modulus()

// FrFromBigInt reduces v into the field. Used internally for values already
// known to be in range (e.g. Poseidon outputs); external byte input must go
// through FrFromBytes instead so overflow is rejected rather than silently
// wrapped.
func FrFromBigInt(v *big.Int) Fr {
	var f Fr
	f.e.SetBigInt(v)
	return f
}

// FrFromUint64 lifts a small integer (DAO/proposal ids, vote choice, domain
// tags) into the field.
func FrFromUint64(v uint64) Fr {
	var f Fr
	f.e.SetUint64(v)
	return f
}

// FrFromBytes parses 32 big-endian bytes as a field element, rejecting any
// value >= p with corerr.FieldOverflow (§4.1).
func FrFromBytes(buf [32]byte) (Fr, error) {
	v := new(big.Int).SetBytes(buf[:])
	if v.Cmp(modulus) >= 0 {
		return Fr{}, corerr.New(corerr.FieldOverflow, "field element >= p")
	}
	var f Fr
	f.e.SetBigInt(v)
	return f, nil
}

// ParseFr is FrFromBytes over a variable-length slice of exactly 32 bytes,
// for callers decoding external wire payloads (§6) where the length itself
// must be validated.
func ParseFr(buf []byte) (Fr, error) {
	if len(buf) != 32 {
		return Fr{}, corerr.New(corerr.MalformedProof, "field element must be 32 bytes")
	}
	var arr [32]byte
	copy(arr[:], buf)
	return FrFromBytes(arr)
}

// Bytes encodes the element as 32 big-endian bytes (§4.1).
func (f Fr) Bytes() [32]byte {
	return f.e.Bytes()
}

// BigInt returns the canonical integer value in [0, p).
func (f Fr) BigInt() *big.Int {
	var out big.Int
	f.e.BigInt(&out)
	return &out
}

// IsZero reports whether f is the additive identity.
func (f Fr) IsZero() bool {
	return f.e.IsZero()
}

// Equal reports whether two elements hold the same value.
func (f Fr) Equal(other Fr) bool {
	return f.e.Equal(&other.e)
}

// Add returns a + b mod p.
func Add(a, b Fr) Fr {
	var out Fr
	out.e.Add(&a.e, &b.e)
	return out
}

// Sub returns a - b mod p.
func Sub(a, b Fr) Fr {
	var out Fr
	out.e.Sub(&a.e, &b.e)
	return out
}

// Mul returns a * b mod p.
func Mul(a, b Fr) Fr {
	var out Fr
	out.e.Mul(&a.e, &b.e)
	return out
}

// Zero is the additive identity of Fr.
func Zero() Fr {
	return Fr{}
}

// poseidonHash is the common tail of Poseidon2/3/4: it feeds the inputs to
// the circomlib-exact Poseidon permutation (iden3/go-iden3-crypto, NOT
// gnark-crypto's poseidon2 package — see DESIGN.md) and reduces the result
// back into Fr.
func poseidonHash(inputs ...Fr) Fr {
	args := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		args[i] = in.BigInt()
	}
	out, err := poseidon.Hash(args)
	if err != nil {
		// poseidon.Hash only errors on an input-count it doesn't support
		// (t outside its supported range); corevote never calls it with
		// more than 4 inputs, so this is an unreachable programmer error,
		// not a data-dependent failure.
		panic("field: poseidon hash: " + err.Error())
	}
	return FrFromBigInt(out)
}

// Poseidon2 computes the t=2 Poseidon permutation over (a, b). Used for
// commitments (C = Poseidon2(secret, salt)) and Merkle internal nodes
// (Poseidon2(left, right)).
func Poseidon2(a, b Fr) Fr {
	return poseidonHash(a, b)
}

// Poseidon3 computes the t=3 Poseidon permutation over (a, b, c). Used for
// vote nullifiers: N = Poseidon3(secret, unitId, proposalId).
func Poseidon3(a, b, c Fr) Fr {
	return poseidonHash(a, b, c)
}

// Poseidon4 computes the t=4 Poseidon permutation over (a, b, c, d). Used
// for repeated-comment nullifiers: N = Poseidon4(secret, unitId, proposalId, nonce).
func Poseidon4(a, b, c, d Fr) Fr {
	return poseidonHash(a, b, c, d)
}
