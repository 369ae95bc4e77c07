package groth16verify

import (
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/zkdao/corevote/pkg/field"
)

// FromGnarkVK converts a freshly-generated gnark BN254 Groth16 verifying key
// (the output of setup.go's CompileCircuit+groth16.Setup/ceremony path) into
// this package's own VerifyingKey, so the rest of the core never has to
// import gnark's backend types.
func FromGnarkVK(vk *groth16bn254.VerifyingKey) VerifyingKey {
	ic := make([]field.G1, len(vk.G1.K))
	for i, k := range vk.G1.K {
		ic[i] = field.G1FromAffine(k)
	}
	return VerifyingKey{
		Alpha: field.G1FromAffine(vk.G1.Alpha),
		Beta:  field.G2FromAffine(vk.G2.Beta),
		Gamma: field.G2FromAffine(vk.G2.Gamma),
		Delta: field.G2FromAffine(vk.G2.Delta),
		IC:    ic,
	}
}

// FromGnarkProof converts a freshly-generated gnark BN254 Groth16 proof.
func FromGnarkProof(proof *groth16bn254.Proof) Proof {
	return Proof{
		A: field.G1FromAffine(proof.Ar),
		B: field.G2FromAffine(proof.Bs),
		C: field.G1FromAffine(proof.Krs),
	}
}
