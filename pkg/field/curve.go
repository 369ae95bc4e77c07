package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/zkdao/corevote/pkg/corerr"
)

// G1 is a BN254 G1 affine point.
type G1 struct {
	pt bn254.G1Affine
}

// G2 is a BN254 G2 affine point.
type G2 struct {
	pt bn254.G2Affine
}

// G1FromAffine wraps a gnark-crypto G1Affine, e.g. one extracted from a
// freshly-generated groth16 proof or verifying key (see pkg/groth16verify's
// gnark VK loader).
func G1FromAffine(p bn254.G1Affine) G1 { return G1{pt: p} }

// G2FromAffine wraps a gnark-crypto G2Affine.
func G2FromAffine(p bn254.G2Affine) G2 { return G2{pt: p} }

// Affine returns the underlying gnark-crypto point.
func (g G1) Affine() bn254.G1Affine { return g.pt }

// Affine returns the underlying gnark-crypto point.
func (g G2) Affine() bn254.G2Affine { return g.pt }

// Bytes encodes the point as 64 big-endian bytes: X || Y (§4.1, §6).
// gnark-crypto's RawBytes already produces this exact uncompressed,
// big-endian encoding, so the codec is a direct pass-through.
func (g G1) Bytes() [64]byte {
	return g.pt.RawBytes()
}

// G1FromBytes parses the 64-byte X||Y big-endian encoding, rejecting points
// that don't lie on the curve (gnark-crypto validates this during
// unmarshalling).
func G1FromBytes(buf [64]byte) (G1, error) {
	var p bn254.G1Affine
	if _, err := p.SetBytes(buf[:]); err != nil {
		return G1{}, corerr.Wrap(corerr.MalformedProof, "parse G1 point", err)
	}
	return G1{pt: p}, nil
}

// Bytes encodes the point as 128 big-endian bytes: X.c1||X.c0||Y.c1||Y.c0
// (§4.1 — imaginary-before-real, the EVM precompile convention).
// gnark-crypto's RawBytes for G2 already uses this exact layout.
func (g G2) Bytes() [128]byte {
	return g.pt.RawBytes()
}

// G2FromBytes parses the 128-byte encoding of §4.1.
func G2FromBytes(buf [128]byte) (G2, error) {
	var p bn254.G2Affine
	if _, err := p.SetBytes(buf[:]); err != nil {
		return G2{}, corerr.Wrap(corerr.MalformedProof, "parse G2 point", err)
	}
	return G2{pt: p}, nil
}

// G1Add returns a + b.
func G1Add(a, b G1) G1 {
	var out bn254.G1Affine
	out.Add(&a.pt, &b.pt)
	return G1{pt: out}
}

// G1ScalarMul returns s * p.
func G1ScalarMul(p G1, s Fr) G1 {
	var out bn254.G1Affine
	out.ScalarMultiplication(&p.pt, s.BigInt())
	return G1{pt: out}
}

// G1Neg returns -p, used to fold e(A,B) into the multi-pairing-equals-one
// form required by §4.4: e(-A,B)*e(alpha,beta)*e(vk_x,gamma)*e(C,delta) == 1.
func G1Neg(p G1) G1 {
	var out bn254.G1Affine
	out.Neg(&p.pt)
	return G1{pt: out}
}

// G2Add returns a + b.
func G2Add(a, b G2) G2 {
	var out bn254.G2Affine
	out.Add(&a.pt, &b.pt)
	return G2{pt: out}
}

// PairingCheck reports whether the product of e(g1s[i], g2s[i]) over all i
// equals 1 in GT. This is the only pairing primitive the Groth16 verifier
// needs (§4.1).
func PairingCheck(g1s []G1, g2s []G2) (bool, error) {
	if len(g1s) != len(g2s) {
		return false, corerr.New(corerr.MalformedProof, "pairing term count mismatch")
	}
	a := make([]bn254.G1Affine, len(g1s))
	b := make([]bn254.G2Affine, len(g2s))
	for i := range g1s {
		a[i] = g1s[i].pt
		b[i] = g2s[i].pt
	}
	ok, err := bn254.PairingCheck(a, b)
	if err != nil {
		return false, corerr.Wrap(corerr.ProofInvalid, "pairing computation failed", err)
	}
	return ok, nil
}

// ScalarFieldModulus returns the BN254 scalar field order p, for callers
// that need to validate raw integers before constructing an Fr.
func ScalarFieldModulus() *big.Int {
	return new(big.Int).Set(modulus)
}
