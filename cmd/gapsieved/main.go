// gapsieved is the prime-gap proof-of-work search worker daemon.
//
// Usage:
//
//	gapsieved --hash=<le-hex> [--threads=4] [--testnet]   Run worker
//	gapsieved --help                                       Show help
package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/gapcoin-go/gapwork/config"
	"github.com/gapcoin-go/gapwork/internal/arith"
	"github.com/gapcoin-go/gapwork/internal/bigle"
	"github.com/gapcoin-go/gapwork/internal/gaplog"
	"github.com/gapcoin-go/gapwork/internal/gapstore"
	"github.com/gapcoin-go/gapwork/internal/pow"
	"github.com/gapcoin-go/gapwork/internal/sieve"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ────────────────────────────────────────────────
	if err := gaplog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := gaplog.WithComponent("worker")

	if cfg.Hash == "" {
		logger.Fatal().Msg("--hash is required")
	}
	hashBytes, err := hex.DecodeString(cfg.Hash)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --hash: expected hex")
	}

	// ── 3. Open gapstore ──────────────────────────────────────────────
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create data directory")
	}
	db, err := gapstore.NewBadgerStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open gapstore")
	}
	defer db.Close()

	logger.Info().
		Str("datadir", cfg.DataDir).
		Int("threads", cfg.Threads).
		Uint16("shift", cfg.Shift).
		Float64("target_difficulty", arith.NewCore().ReadableDifficulty(cfg.TargetDifficulty)).
		Msg("Starting gapsieved")

	core := arith.NewCore()
	processor := &storeProcessor{db: db}

	// ── 4. Spawn one SieveEngine goroutine per thread, disjoint offset
	// ranges; the only state the workers share is the hit processor and its
	// store.
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for t := 0; t < cfg.Threads; t++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()
			runWorker(threadID, cfg, core, hashBytes, processor, stop)
		}(t)
	}

	// ── 5. Wait for shutdown signal ───────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	close(stop)
	wg.Wait()

	logger.Info().
		Uint64("total_hits", processor.count.Load()).
		Msg("gapsieved stopped")
}

// runWorker drives one SieveEngine over successive, disjoint offset
// segments until stop is closed. Each thread's segments are offset by its
// threadID times the segment width so no two threads ever scan the same
// numbers (spec §5's "disjoint offset ranges" requirement).
func runWorker(threadID int, cfg *config.Config, core *arith.Core, hashBytes []byte, processor sieve.Processor, stop <-chan struct{}) {
	logger := gaplog.WithComponent(fmt.Sprintf("worker-%d", threadID))
	engine := sieve.NewEngine(core, processor, cfg.NPrimes, cfg.SieveSize)

	template := pow.NewFromBytes(core, hashBytes, cfg.Shift, nil, cfg.TargetDifficulty, uint32(threadID))

	segment := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		// Each segment covers cfg.SieveSize candidate positions; advancing by
		// a full segment width per step keeps every thread's range disjoint
		// from every other thread's and from its own prior segments.
		segmentIndex := int64(segment)*int64(runtimeThreadCount(cfg)) + int64(threadID)
		offsetVal := new(big.Int).Mul(big.NewInt(segmentIndex), new(big.Int).SetUint64(cfg.SieveSize))
		offset := bigle.ToLEBytes(offsetVal)
		engine.RunSieve(template, offset)

		if segment%64 == 0 {
			logger.Debug().
				Float64("tests_per_sec", engine.TestsPerSecond()).
				Uint64("found_primes", engine.GetFoundPrimes()).
				Msg("telemetry")
		}
		segment++
	}
}

func runtimeThreadCount(cfg *config.Config) int {
	if cfg.Threads < 1 {
		return 1
	}
	return cfg.Threads
}

// storeProcessor persists every valid hit the sieve reports to gapstore and
// logs it via gaplog.
type storeProcessor struct {
	db    *gapstore.BadgerStore
	count atomic.Uint64
}

// Process implements sieve.Processor.
func (s *storeProcessor) Process(p *pow.PoW) bool {
	start, end, ok := p.Endpoints()
	if !ok {
		return true
	}

	hit := gapstore.Hit{
		Hash:        bigle.ToLEBytes(p.GetHash()),
		Shift:       p.GetShift(),
		Adder:       p.GetAdderBytes(),
		Start:       bigle.ToLEBytes(start),
		End:         bigle.ToLEBytes(end),
		Merit:       p.Merit(),
		Difficulty:  p.Difficulty(),
		FoundAtUsec: arith.GettimeUsec(),
	}

	if err := s.db.PutHit(hit); err != nil {
		gaplog.Error().Err(err).Msg("failed to persist hit")
		return true
	}

	s.count.Add(1)
	gaplog.Info().
		Uint64("gap_len", p.GapLen()).
		Uint64("merit", hit.Merit).
		Uint64("difficulty", hit.Difficulty).
		Msg("found valid gap")
	return true
}
