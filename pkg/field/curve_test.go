package field

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// TestG1RoundTrip covers §8 P8 for G1.
func TestG1RoundTrip(t *testing.T) {
	_, _, g1Aff, _ := bn254.Generators()
	g := G1FromAffine(g1Aff)

	b := g.Bytes()
	g2, err := G1FromBytes(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Affine() != g2.Affine() {
		t.Fatal("G1 round trip mismatch")
	}
}

// TestG2RoundTrip covers §8 P8 for G2.
func TestG2RoundTrip(t *testing.T) {
	_, _, _, g2Aff := bn254.Generators()
	g := G2FromAffine(g2Aff)

	b := g.Bytes()
	g2, err := G2FromBytes(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Affine() != g2.Affine() {
		t.Fatal("G2 round trip mismatch")
	}
}

// TestPairingCheckGeneratorIdentity checks e(g1, g2) * e(-g1, g2) == 1 as a
// sanity test of the multi-pairing primitive the verifier is built on.
func TestPairingCheckGeneratorIdentity(t *testing.T) {
	_, _, g1Aff, g2Aff := bn254.Generators()
	g1 := G1FromAffine(g1Aff)
	g2 := G2FromAffine(g2Aff)

	negG1 := G1Neg(g1)

	ok, err := PairingCheck([]G1{g1, negG1}, []G2{g2, g2})
	if err != nil {
		t.Fatalf("pairing check failed: %v", err)
	}
	if !ok {
		t.Fatal("expected e(g1,g2)*e(-g1,g2) == 1")
	}
}
