package sieve

import (
	"math/big"
	"testing"

	"github.com/gapcoin-go/gapwork/internal/arith"
	"github.com/gapcoin-go/gapwork/internal/bigle"
	"github.com/gapcoin-go/gapwork/internal/pow"
)

// recordingProcessor collects every PoW passed to Process, snapshotting the
// fields that matter so later calls to RunSieve don't mutate recorded data.
type recordingProcessor struct {
	hits []recordedHit
}

type recordedHit struct {
	start, end *big.Int
	difficulty uint64
}

func (r *recordingProcessor) Process(p *pow.PoW) bool {
	start, end, ok := p.Endpoints()
	if !ok {
		return true
	}
	r.hits = append(r.hits, recordedHit{
		start:      new(big.Int).Set(start),
		end:        new(big.Int).Set(end),
		difficulty: p.Difficulty(),
	})
	return true
}

// lowHash returns the smallest 256-bit hash, 2^255 (only the top bit set).
func lowHash() *big.Int {
	h := new(big.Int).Lsh(big.NewInt(1), 255)
	return h
}

func TestRunSieveFindsAtLeastOneValidHit(t *testing.T) {
	core := arith.NewCore()
	proc := &recordingProcessor{}
	// A low target difficulty keeps target_size small so some offset within
	// the segment is virtually guaranteed to satisfy it.
	targetDifficulty := arith.MinTestDifficulty / 4
	p := pow.New(core, lowHash(), 20, big.NewInt(0), targetDifficulty, 0)

	eng := NewEngine(core, proc, 2000, 1 << 16)
	eng.RunSieve(p, nil)

	if len(proc.hits) == 0 {
		t.Fatal("expected at least one hit over a low-difficulty segment")
	}
	for _, h := range proc.hits {
		if h.difficulty < targetDifficulty {
			t.Fatalf("reported hit difficulty %d below target %d", h.difficulty, targetDifficulty)
		}
		if h.end.Cmp(h.start) <= 0 {
			t.Fatalf("hit end %s not greater than start %s", h.end, h.start)
		}
	}
}

func TestRunSieveHitsAreProbablePrimeBounded(t *testing.T) {
	core := arith.NewCore()
	proc := &recordingProcessor{}
	targetDifficulty := arith.MinTestDifficulty / 4
	p := pow.New(core, lowHash(), 20, big.NewInt(0), targetDifficulty, 0)

	eng := NewEngine(core, proc, 2000, 1 << 16)
	eng.RunSieve(p, nil)

	for _, h := range proc.hits {
		if !bigle.IsProbablePrime(h.start) {
			t.Fatalf("reported start %s is not probable-prime", h.start)
		}
		if !bigle.IsProbablePrime(h.end) {
			t.Fatalf("reported end %s is not probable-prime", h.end)
		}
		// No odd candidate strictly between start and end may itself be
		// probable-prime, else the reported gap would not be maximal.
		for c := new(big.Int).Add(h.start, big.NewInt(2)); c.Cmp(h.end) < 0; c.Add(c, big.NewInt(2)) {
			if bigle.IsProbablePrime(c) {
				t.Fatalf("candidate %s between reported start %s and end %s is prime", c, h.start, h.end)
			}
		}
	}
}

func TestRunSieveRespectsOffsetParity(t *testing.T) {
	core := arith.NewCore()
	proc := &recordingProcessor{}
	p := pow.New(core, lowHash(), 20, big.NewInt(0), arith.MinTestDifficulty, 0)

	eng := NewEngine(core, proc, 500, 1<<14)
	// An odd offset must be treated as if it were offset+1 (forced even), so
	// offsets 7 and 8 must report the same hits.
	oddOffset := bigle.ToLEBytes(big.NewInt(7))
	eng.RunSieve(p, oddOffset)

	evenProc := &recordingProcessor{}
	evenEng := NewEngine(core, evenProc, 500, 1<<14)
	evenEng.RunSieve(p, bigle.ToLEBytes(big.NewInt(8)))

	if len(proc.hits) != len(evenProc.hits) {
		t.Fatalf("offset 7 reported %d hits, offset 8 reported %d", len(proc.hits), len(evenProc.hits))
	}
	for i := range proc.hits {
		if proc.hits[i].start.Cmp(evenProc.hits[i].start) != 0 {
			t.Fatalf("hit %d: offset 7 start %s, offset 8 start %s", i, proc.hits[i].start, evenProc.hits[i].start)
		}
	}
}

func TestNewEngineProducesRequestedPrimeCount(t *testing.T) {
	core := arith.NewCore()
	eng := NewEngine(core, &recordingProcessor{}, 100, 1<<12)
	if len(eng.primes) != 100 {
		t.Fatalf("got %d primes, want 100", len(eng.primes))
	}
	if eng.primes[0] != 2 {
		t.Fatalf("primes[0] = %d, want 2", eng.primes[0])
	}
	// Spot check: the 100th prime is 541.
	if eng.primes[99] != 541 {
		t.Fatalf("primes[99] = %d, want 541 (the 100th prime)", eng.primes[99])
	}
}

func TestTelemetryIntervalResetsOnRead(t *testing.T) {
	core := arith.NewCore()
	proc := &recordingProcessor{}
	p := pow.New(core, lowHash(), 20, big.NewInt(0), arith.MinTestDifficulty, 0)
	eng := NewEngine(core, proc, 500, 1<<14)

	eng.RunSieve(p, nil)
	firstRate := eng.TestsPerSecond()
	if firstRate < 0 {
		t.Fatal("rate should never be negative")
	}
	if !eng.resetStats {
		t.Fatal("reading TestsPerSecond should arm the interval reset")
	}

	eng.RunSieve(p, nil)
	if eng.resetStats {
		t.Fatal("RunSieve should have consumed the pending reset")
	}
}

func TestFermatRejectsEvenNumbers(t *testing.T) {
	if fermat(big.NewInt(10)) {
		t.Fatal("10 should fail the Fermat test")
	}
	if !fermat(big.NewInt(11)) {
		t.Fatal("11 should pass the Fermat test")
	}
}

func TestFermatAgreesWithKnownPrimes(t *testing.T) {
	for _, n := range []int64{997, 1009, 1013, 104729} {
		if !fermat(big.NewInt(n)) {
			t.Fatalf("%d should pass the base-2 Fermat test", n)
		}
	}
	// 341 = 11*31 is the smallest base-2 Fermat pseudoprime; the engine's
	// Fermat filter alone would accept it, which is exactly why Endpoints()
	// gates final acceptance with a real Miller-Rabin test instead.
	if !fermat(big.NewInt(341)) {
		t.Fatal("341 is a known base-2 Fermat pseudoprime and should pass the filter")
	}
	if bigle.IsProbablePrime(big.NewInt(341)) {
		t.Fatal("341 is composite and must not pass Miller-Rabin")
	}
}
