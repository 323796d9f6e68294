// gapcheck validates a single prime-gap proof-of-work candidate given on the
// command line and prints its start, end, gap length, merit, difficulty and
// target, followed by a VALID or INVALID line (a single INVALID line when the
// endpoints are rejected). It exercises the pow
// package standalone, mirroring the teacher's pattern of small,
// single-purpose command binaries (alongside the worker daemon,
// cmd/gapsieved).
//
// Usage:
//
//	gapcheck -hash=<le-hex> -shift=<n> -adder=<le-hex> -target-difficulty=<u64> [-testnet]
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/gapcoin-go/gapwork/internal/arith"
	"github.com/gapcoin-go/gapwork/internal/pow"
)

func main() {
	hashHex := flag.String("hash", "", "little-endian hex-encoded 256-bit hash H")
	shift := flag.Int("shift", 0, "shift s")
	adderHex := flag.String("adder", "", "little-endian hex-encoded adder a")
	targetDifficulty := flag.Uint64("target-difficulty", arith.MinDifficulty, "target difficulty D_t, fixed-point scaled by 2^48")
	testnet := flag.Bool("testnet", false, "label the target line as testnet (validity is judged against -target-difficulty either way)")
	maxShift := flag.Uint("max-shift", 0, "optional cap on shift (0 = uncapped)")
	flag.Parse()

	if *hashHex == "" {
		fmt.Fprintln(os.Stderr, "Error: -hash is required")
		flag.Usage()
		os.Exit(1)
	}

	hashBytes, err := hex.DecodeString(*hashHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -hash: %v\n", err)
		os.Exit(1)
	}

	var adderBytes []byte
	if *adderHex != "" {
		adderBytes, err = hex.DecodeString(*adderHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -adder: %v\n", err)
			os.Exit(1)
		}
	}

	core := arith.NewCore()
	p := pow.NewFromBytes(core, hashBytes, uint16(*shift), adderBytes, *targetDifficulty, 0)
	if *maxShift != 0 {
		p.SetMaxShift(uint16(*maxShift))
	}

	start, end, ok := p.Endpoints()
	if !ok {
		fmt.Println("INVALID: endpoints rejected (shift too small, hash not 256 bits, adder too large, or start not probable-prime)")
		os.Exit(1)
	}

	minFloor := "mainnet"
	if *testnet {
		minFloor = "testnet"
	}

	fmt.Printf("start=%s\n", start.String())
	fmt.Printf("end=%s\n", end.String())
	fmt.Printf("gap_len=%d\n", p.GapLen())
	fmt.Printf("merit=%.6f\n", core.ReadableDifficulty(p.Merit()))
	fmt.Printf("difficulty=%.6f\n", core.ReadableDifficulty(p.Difficulty()))
	fmt.Printf("target_difficulty=%.6f (%s floor)\n", core.ReadableDifficulty(*targetDifficulty), minFloor)
	if p.Valid() {
		fmt.Println("VALID")
	} else {
		fmt.Println("INVALID: difficulty below target")
		os.Exit(1)
	}
}
