package groth16verify

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/bits"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/groth16/bn254/mpcsetup"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	cs_bn254 "github.com/consensys/gnark/constraint/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/rs/zerolog/log"
)

// CompileCircuit compiles a gnark circuit (circuits/membership.Circuit) into
// an R1CS constraint system, adapted from the teacher's pkg/setup — PLONK
// support is dropped since §4.4 is Groth16-only (see DESIGN.md).
func CompileCircuit(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	return ccs, nil
}

// DevSetup performs a single-party trusted setup. Not for production use —
// production deployments should run the Phase 1/2 MPC ceremony below and
// install the resulting key via KeyStore.SetVK.
func DevSetup(circuit frontend.Circuit) (groth16.ProvingKey, *groth16bn254.VerifyingKey, error) {
	log.Warn().Msg("groth16verify: single-party dev setup, do not use in production")

	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return nil, nil, err
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup: %w", err)
	}
	concreteVK, ok := vk.(*groth16bn254.VerifyingKey)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected verifying key type %T", vk)
	}
	return pk, concreteVK, nil
}

// ExportKeys writes the proving and verifying keys to outputDir, named
// <circuitName>_prover.key / <circuitName>_verifier.key.
func ExportKeys(pk groth16.ProvingKey, vk groth16.VerifyingKey, outputDir, circuitName string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	vkPath := filepath.Join(outputDir, circuitName+"_verifier.key")
	if err := saveObject(vkPath, vk); err != nil {
		return err
	}

	pkPath := filepath.Join(outputDir, circuitName+"_prover.key")
	if err := saveObject(pkPath, pk); err != nil {
		return err
	}

	log.Info().Str("prover_key", pkPath).Str("verifier_key", vkPath).Msg("groth16verify: exported keys")
	return nil
}

// LoadKeys loads the proving and verifying keys from the given directory.
func LoadKeys(dir, circuitName string) (groth16.ProvingKey, *groth16bn254.VerifyingKey, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	pkPath := filepath.Join(dir, circuitName+"_prover.key")
	f, err := os.Open(pkPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open proving key: %w", err)
	}
	if _, err := pk.ReadFrom(f); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("read proving key: %w", err)
	}
	f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	vkPath := filepath.Join(dir, circuitName+"_verifier.key")
	f, err = os.Open(vkPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open verifying key: %w", err)
	}
	if _, err := vk.ReadFrom(f); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("read verifying key: %w", err)
	}
	f.Close()

	concreteVK, ok := vk.(*groth16bn254.VerifyingKey)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected verifying key type %T", vk)
	}
	return pk, concreteVK, nil
}

// ─── MPC Ceremony ───────────────────────────────────────────────────────────
//
// Adapted near-verbatim from the teacher's pkg/setup: a unit's production
// verifying key is installed via a Phase 1 (universal) + Phase 2
// (circuit-specific) multi-party ceremony rather than DevSetup's single-party
// shortcut.

// CeremonyDir is the default directory for ceremony transcript files.
const CeremonyDir = "ceremony"

// CeremonyP1Init initializes Phase 1 (Powers of Tau) for a circuit.
func CeremonyP1Init(circuit frontend.Circuit) error {
	if err := ensureCeremonyDir(); err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}

	N := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))
	log.Info().Uint64("domain_size", N).Int("log2", bits.Len64(N)-1).Int("constraints", ccs.GetNbConstraints()).Msg("groth16verify: ceremony phase 1 init")

	p := mpcsetup.NewPhase1(N)
	path := nextContribPath("phase1")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("groth16verify: wrote initial phase 1 state")
	return nil
}

// CeremonyP1Contribute adds a Phase 1 contribution from the latest state.
func CeremonyP1Contribute() error {
	latest, err := latestContrib("phase1")
	if err != nil {
		return err
	}

	var p mpcsetup.Phase1
	if err := loadObject(latest, &p); err != nil {
		return err
	}

	p.Contribute()

	path := nextContribPath("phase1")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("groth16verify: wrote phase 1 contribution")
	return nil
}

// CeremonyP1Verify verifies all Phase 1 contributions and seals the SRS
// commons with a random beacon.
func CeremonyP1Verify(circuit frontend.Circuit, beaconHex string) error {
	beacon, err := parseBeacon(beaconHex)
	if err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	N := ecc.NextPowerOfTwo(uint64(ccs.GetNbConstraints()))

	contribs, err := findContribs("phase1")
	if err != nil {
		return err
	}
	if len(contribs) < 2 {
		return fmt.Errorf("need at least the init file plus one contribution to verify")
	}

	nContribs := len(contribs) - 1
	phases := make([]*mpcsetup.Phase1, nContribs)
	for i, path := range contribs[1:] {
		phases[i] = new(mpcsetup.Phase1)
		if err := loadObject(path, phases[i]); err != nil {
			return err
		}
	}

	commons, err := mpcsetup.VerifyPhase1(N, beacon, phases...)
	if err != nil {
		return fmt.Errorf("phase 1 verification failed: %w", err)
	}

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	if err := saveObject(srsPath, &commons); err != nil {
		return err
	}
	log.Info().Str("path", srsPath).Msg("groth16verify: phase 1 verified and sealed")
	return nil
}

// CeremonyP2Init initializes Phase 2 (circuit-specific) from the sealed SRS.
func CeremonyP2Init(circuit frontend.Circuit) error {
	if err := ensureCeremonyDir(); err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	r1csConcrete, ok := ccs.(*cs_bn254.R1CS)
	if !ok {
		return fmt.Errorf("unexpected constraint system type %T", ccs)
	}

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	var commons mpcsetup.SrsCommons
	if err := loadObject(srsPath, &commons); err != nil {
		return err
	}

	var p mpcsetup.Phase2
	p.Initialize(r1csConcrete, &commons)

	path := nextContribPath("phase2")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("groth16verify: wrote initial phase 2 state")
	return nil
}

// CeremonyP2Contribute adds a Phase 2 contribution from the latest state.
func CeremonyP2Contribute() error {
	latest, err := latestContrib("phase2")
	if err != nil {
		return err
	}

	var p mpcsetup.Phase2
	if err := loadObject(latest, &p); err != nil {
		return err
	}

	p.Contribute()

	path := nextContribPath("phase2")
	if err := saveObject(path, &p); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("groth16verify: wrote phase 2 contribution")
	return nil
}

// CeremonyP2Verify verifies Phase 2 contributions, seals the final keys, and
// exports them to outputDir.
func CeremonyP2Verify(circuit frontend.Circuit, beaconHex, outputDir, circuitName string) error {
	beacon, err := parseBeacon(beaconHex)
	if err != nil {
		return err
	}
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return err
	}
	r1csConcrete, ok := ccs.(*cs_bn254.R1CS)
	if !ok {
		return fmt.Errorf("unexpected constraint system type %T", ccs)
	}

	srsPath := filepath.Join(CeremonyDir, "srs_commons.bin")
	var commons mpcsetup.SrsCommons
	if err := loadObject(srsPath, &commons); err != nil {
		return err
	}

	contribs, err := findContribs("phase2")
	if err != nil {
		return err
	}
	if len(contribs) < 2 {
		return fmt.Errorf("need at least the init file plus one contribution to verify")
	}

	nContribs := len(contribs) - 1
	phases := make([]*mpcsetup.Phase2, nContribs)
	for i, path := range contribs[1:] {
		phases[i] = new(mpcsetup.Phase2)
		if err := loadObject(path, phases[i]); err != nil {
			return err
		}
	}

	pk, vk, err := mpcsetup.VerifyPhase2(r1csConcrete, &commons, beacon, phases...)
	if err != nil {
		return fmt.Errorf("phase 2 verification failed: %w", err)
	}

	if err := ExportKeys(pk, vk, outputDir, circuitName); err != nil {
		return err
	}
	log.Info().Msg("groth16verify: ceremony complete, keys are production-ready")
	return nil
}

// ─── Internal helpers ───────────────────────────────────────────────────────

func ensureCeremonyDir() error {
	return os.MkdirAll(CeremonyDir, 0o755)
}

func saveObject(path string, obj io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := obj.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func loadObject(path string, obj io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := obj.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func parseBeacon(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("invalid beacon hex: %w", err)
	}
	if len(b) < 16 {
		return nil, fmt.Errorf("beacon must be at least 16 bytes for sufficient entropy")
	}
	return b, nil
}

// findContribs returns sorted paths matching ceremony/<prefix>_NNNN.bin.
func findContribs(prefix string) ([]string, error) {
	pattern := filepath.Join(CeremonyDir, prefix+"_????.bin")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func latestContrib(prefix string) (string, error) {
	contribs, err := findContribs(prefix)
	if err != nil {
		return "", err
	}
	if len(contribs) == 0 {
		return "", fmt.Errorf("no %s contributions found in %s/", prefix, CeremonyDir)
	}
	return contribs[len(contribs)-1], nil
}

func nextContribPath(prefix string) string {
	n, _ := findContribs(prefix)
	return filepath.Join(CeremonyDir, fmt.Sprintf("%s_%04d.bin", prefix, len(n)))
}
