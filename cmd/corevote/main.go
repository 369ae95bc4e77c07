// Command corevote is the operator CLI for the voting core, adapted from
// the teacher's cmd/compile dispatcher: "setup" drives the membership
// circuit's Groth16 key lifecycle (dev / ceremony), and "demo" walks through
// a small end-to-end scenario against an in-process DAO.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zkdao/corevote/circuits/membership"
	"github.com/zkdao/corevote/pkg/groth16verify"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "setup":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		handleSetup(os.Args[2:])
	case "demo":
		if err := runDemo(); err != nil {
			log.Fatal().Err(err).Msg("demo failed")
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleSetup(args []string) {
	newCircuit := func() *membership.Circuit { return &membership.Circuit{} }

	switch args[0] {
	case "dev":
		pk, vk, err := groth16verify.DevSetup(newCircuit())
		if err != nil {
			log.Fatal().Err(err).Msg("dev setup failed")
		}
		if err := groth16verify.ExportKeys(pk, vk, ".", "membership"); err != nil {
			log.Fatal().Err(err).Msg("export keys failed")
		}
	case "ceremony":
		if len(args) < 2 {
			printUsage()
			os.Exit(1)
		}
		handleCeremony(args[1:], newCircuit)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleCeremony(args []string, newCircuit func() *membership.Circuit) {
	switch args[0] {
	case "p1-init":
		if err := groth16verify.CeremonyP1Init(newCircuit()); err != nil {
			log.Fatal().Err(err).Msg("phase 1 init failed")
		}
	case "p1-contribute":
		if err := groth16verify.CeremonyP1Contribute(); err != nil {
			log.Fatal().Err(err).Msg("phase 1 contribution failed")
		}
	case "p1-verify":
		if len(args) < 2 {
			log.Fatal().Msg("usage: corevote setup ceremony p1-verify BEACON_HEX")
		}
		if err := groth16verify.CeremonyP1Verify(newCircuit(), args[1]); err != nil {
			log.Fatal().Err(err).Msg("phase 1 verify failed")
		}
	case "p2-init":
		if err := groth16verify.CeremonyP2Init(newCircuit()); err != nil {
			log.Fatal().Err(err).Msg("phase 2 init failed")
		}
	case "p2-contribute":
		if err := groth16verify.CeremonyP2Contribute(); err != nil {
			log.Fatal().Err(err).Msg("phase 2 contribution failed")
		}
	case "p2-verify":
		if len(args) < 2 {
			log.Fatal().Msg("usage: corevote setup ceremony p2-verify BEACON_HEX")
		}
		if err := groth16verify.CeremonyP2Verify(newCircuit(), args[1], ".", "membership"); err != nil {
			log.Fatal().Err(err).Msg("phase 2 verify failed")
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage:
  corevote setup dev                         Single-party dev setup (NOT for production)

  corevote setup ceremony p1-init            Initialize Phase 1 (Powers of Tau)
  corevote setup ceremony p1-contribute      Add a Phase 1 contribution
  corevote setup ceremony p1-verify HEX      Verify Phase 1 & seal with a random beacon

  corevote setup ceremony p2-init            Initialize Phase 2 (circuit-specific)
  corevote setup ceremony p2-contribute      Add a Phase 2 contribution
  corevote setup ceremony p2-verify HEX      Verify Phase 2, seal & export keys

  corevote demo                              Run a small end-to-end scenario in-process

Prefer using the test suite directly for circuit-level checks:
  go test ./circuits/membership/ -v -timeout 5m
  go test ./...`)
}
