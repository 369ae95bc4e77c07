package groth16verify

import (
	"github.com/zkdao/corevote/pkg/corerr"
	"github.com/zkdao/corevote/pkg/field"
)

// Proof is a Groth16 proof over BN254: A, C in G1 and B in G2.
type Proof struct {
	A field.G1
	B field.G2
	C field.G1
}

// Verify checks the Groth16 pairing equation directly (§4.4):
//
//	e(A, B) == e(Alpha, Beta) * e(vkX, Gamma) * e(C, Delta)
//
// where vkX = IC[0] + sum(publicInputs[i] * IC[i+1]). Folded into the
// multi-pairing-equals-one form the PairingCheck primitive expects:
//
//	e(-A, B) * e(Alpha, Beta) * e(vkX, Gamma) * e(C, Delta) == 1
//
// publicInputs must have exactly len(vk.IC)-1 entries, in the normative
// order the spec fixes: [root, nullifier, unitId, proposalId, voteChoice,
// commitment] for a ballot, and the same six-entry order for a comment,
// whose voteChoice slot carries 0.
func Verify(vk VerifyingKey, proof Proof, publicInputs []field.Fr) (bool, error) {
	if len(publicInputs) != len(vk.IC)-1 {
		return false, corerr.New(corerr.MalformedProof, "public input count does not match verifying key")
	}

	vkX := vk.IC[0]
	for i, in := range publicInputs {
		term := field.G1ScalarMul(vk.IC[i+1], in)
		vkX = field.G1Add(vkX, term)
	}

	negA := field.G1Neg(proof.A)

	ok, err := field.PairingCheck(
		[]field.G1{negA, vk.Alpha, vkX, proof.C},
		[]field.G2{proof.B, vk.Beta, vk.Gamma, vk.Delta},
	)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, corerr.New(corerr.ProofInvalid, "pairing equation does not hold")
	}
	return true, nil
}
