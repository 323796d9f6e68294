// Package sieve implements SieveEngine: a segmented sieve-of-Eratosthenes
// wheel that, given a PoW and a segment offset, scans candidate numbers near
// H*2^s for prime gaps of at least the target size, using a small-prime
// bitset filter followed by a base-2 Fermat probable-prime test.
//
// A SieveEngine is single-threaded and synchronous (spec §5): it owns its
// sieve bitset, starts array, primes table, and scratch big integers
// exclusively, so callers that want to parallelize the search run one
// Engine per goroutine over disjoint offset ranges.
package sieve

import (
	"math"
	"math/big"

	"github.com/gapcoin-go/gapwork/internal/arith"
	"github.com/gapcoin-go/gapwork/internal/bigle"
	"github.com/gapcoin-go/gapwork/internal/pow"
)

// Processor is the sink for valid PoW hits. Process is invoked exactly once
// per valid hit found within a run_sieve call; its boolean return is
// advisory ("continue" = true, "stop" = false) — Engine does not itself
// abort mid-segment on false (spec §6's "simple implementations may ignore
// it"), but a processor may use it to signal an external cancellation path.
type Processor interface {
	Process(p *pow.PoW) bool
}

// Engine is one segmented-sieve search instance.
type Engine struct {
	processor Processor
	core      *arith.Core

	nPrimes   uint64
	sieveSize uint64 // bits, rounded up to a machine-word multiple

	primes  []uint64
	primes2 []uint64
	starts  []uint64
	sieve   bitset

	// lifetime counters
	foundPrimes   uint64
	totalTests    uint64
	totalTimeUsec int64

	// current-interval counters, reset when resetStats is consumed
	intervalFound    uint64
	intervalTests    uint64
	intervalTimeUsec int64
	resetStats       bool
}

// NewEngine constructs a SieveEngine with nPrimes precomputed small primes
// and a sieve segment of sieveSizeBits bits (rounded up to a word).
func NewEngine(core *arith.Core, processor Processor, nPrimes, sieveSizeBits uint64) *Engine {
	primes := firstNPrimes(nPrimes)
	primes2 := make([]uint64, len(primes))
	for i, p := range primes {
		primes2[i] = 2 * p
	}

	size := roundUpWord(sieveSizeBits)
	return &Engine{
		processor: processor,
		core:      core,
		nPrimes:   nPrimes,
		sieveSize: size,
		primes:    primes,
		primes2:   primes2,
		starts:    make([]uint64, len(primes)),
		sieve:     newBitset(size),
	}
}

// SetProcessor replaces the hit sink.
func (e *Engine) SetProcessor(p Processor) {
	e.processor = p
}

// fermat reports whether 2^(p-1) mod p == 1 — a fast composite filter. Final
// acceptance of any reported hit is by PoW.Endpoints' Miller-Rabin test, not
// by this Fermat test alone.
func fermat(p *big.Int) bool {
	if p.Sign() <= 0 {
		return false
	}
	exp := new(big.Int).Sub(p, big.NewInt(1))
	r := new(big.Int).Exp(big.NewInt(2), exp, p)
	return r.Cmp(big.NewInt(1)) == 0
}

// RunSieve scans one segment starting at H*2^s + offset (offset forced
// even), reporting every valid PoW hit found through the processor.
//
// A nil or empty offset means offset 0. The scan, gap-selection, and
// counter-update logic below mirror spec.md §4.3 step for step, including
// the exact reverse-scan "first gap" selection the spec calls out as
// requiring bit-exact reproduction (Design Note 1): run_sieve reports the
// first offset giving a gap >= min_len only once the backward scan from the
// tentative gap end down to the last confirmed prime exhausts without a
// Fermat hit.
func (e *Engine) RunSieve(p *pow.PoW, offset []byte) {
	startTime := arith.GettimeUsec()

	if e.resetStats {
		e.intervalFound = 0
		e.intervalTests = 0
		e.intervalTimeUsec = 0
		e.resetStats = false
	}

	off := bigle.FromLEBytes(offset)
	if off.Bit(0) == 1 {
		off.Add(off, big.NewInt(1))
	}

	mpzStart := new(big.Int).Lsh(p.GetHash(), uint(p.GetShift()))
	mpzStart.Add(mpzStart, off)

	e.sieve.zero()

	// Skip primes[0] == 2: mpzStart is always even, so every odd candidate
	// is automatically coprime to 2.
	for i := 1; i < len(e.primes); i++ {
		pr := e.primes[i]
		r := new(big.Int).Mod(mpzStart, new(big.Int).SetUint64(pr)).Uint64()
		startIdx := pr - r
		if startIdx == pr {
			startIdx = 0
		}
		if startIdx%2 == 0 {
			startIdx += pr
		}
		e.starts[i] = startIdx
	}

	for i := 1; i < len(e.primes); i++ {
		step := e.primes2[i]
		for k := e.starts[i]; k < e.sieveSize; k += step {
			e.sieve.set(k)
		}
	}

	minLen := e.core.TargetSize(mpzStart, p.GetTargetDifficulty())
	minLen &^= 1 // round down to even

	tests := uint64(0)

	// Step 7: scan for the first candidate prime in the segment.
	localStart, foundFirst := e.scanFirstPrime(mpzStart, &tests)
	if !foundFirst {
		e.finishRun(startTime, tests, mpzStart)
		return
	}

	// Step 8: gap search loop. A gap spanning several min_len windows is
	// confirmed once per window; lastReported keeps it to one report.
	lastReported := ^uint64(0)
	i := localStart + minLen
	for i < e.sieveSize {
		j, hit := e.scanBackward(mpzStart, i, localStart, &tests)
		if hit {
			localStart = j
			i = localStart + minLen
			continue
		}

		if localStart != lastReported {
			lastReported = localStart
			adder := new(big.Int).Add(off, new(big.Int).SetUint64(localStart))
			p.SetAdder(adder) //nolint:errcheck // validity is checked by p.Valid(), not by this error
			if p.Valid() {
				e.processor.Process(p)
			}
		}
		i += minLen
	}

	e.finishRun(startTime, tests, mpzStart)
}

// scanFirstPrime walks the odd candidates in the segment until it finds one
// that is not sieved out and passes the Fermat test.
func (e *Engine) scanFirstPrime(mpzStart *big.Int, tests *uint64) (idx uint64, ok bool) {
	for i := uint64(1); i < e.sieveSize; i += 2 {
		if e.sieve.isSet(i) {
			continue
		}
		*tests++
		candidate := new(big.Int).Add(mpzStart, new(big.Int).SetUint64(i))
		if fermat(candidate) {
			return i, true
		}
	}
	return 0, false
}

// scanBackward walks from i down to localStart+2 in steps of -2, testing
// each unfiltered candidate via Fermat. Returns the position of the first
// Fermat-passing candidate found, or ok=false if the scan exhausts without
// a hit (confirming no probable prime exists in (localStart, localStart+
// min_len]).
func (e *Engine) scanBackward(mpzStart *big.Int, i, localStart uint64, tests *uint64) (uint64, bool) {
	if localStart+2 > i {
		return 0, false
	}
	for j := i; j >= localStart+2; j -= 2 {
		if !e.sieve.isSet(j) {
			*tests++
			candidate := new(big.Int).Add(mpzStart, new(big.Int).SetUint64(j))
			if fermat(candidate) {
				return j, true
			}
		}
		if j < 2 {
			break
		}
	}
	return 0, false
}

// finishRun updates lifetime and interval counters after a segment scan.
func (e *Engine) finishRun(startTimeUsec int64, tests uint64, mpzStart *big.Int) {
	var elapsed int64
	endTime := arith.GettimeUsec()
	if startTimeUsec >= 0 && endTime >= 0 {
		elapsed = endTime - startTimeUsec
	}

	lnStart := approxLn(mpzStart)
	var found uint64
	if lnStart > 0 {
		found = uint64(float64(e.sieveSize) / lnStart)
	}

	e.foundPrimes += found
	e.totalTests += tests
	e.totalTimeUsec += elapsed

	e.intervalFound += found
	e.intervalTests += tests
	e.intervalTimeUsec += elapsed
}

// approxLn approximates ln(n) for a large positive big.Int via its
// base-2 logarithm (accurate well beyond what the found_primes estimate
// needs — Design Note 2 treats this counter as advisory).
func approxLn(n *big.Int) float64 {
	if n.Sign() <= 0 {
		return 0
	}
	bits := n.BitLen()
	// Keep only the top 53 bits to fit a float64 exactly, track the shift.
	shift := bits - 53
	if shift < 0 {
		shift = 0
	}
	top := new(big.Int).Rsh(n, uint(shift))
	f, _ := new(big.Float).SetInt(top).Float64()
	return math.Log(f) + float64(shift)*math.Ln2
}

// PrimesPerSec returns the candidate-prime discovery rate over the current
// telemetry interval and marks the interval as consumed: the next RunSieve
// call starts a fresh interval.
func (e *Engine) PrimesPerSec() float64 {
	e.resetStats = true
	return ratePerSec(e.intervalFound, e.intervalTimeUsec)
}

// AvgPrimesPerSec returns the lifetime candidate-prime discovery rate.
func (e *Engine) AvgPrimesPerSec() float64 {
	return ratePerSec(e.foundPrimes, e.totalTimeUsec)
}

// TestsPerSecond returns the Fermat-test rate over the current telemetry
// interval and marks the interval as consumed.
func (e *Engine) TestsPerSecond() float64 {
	e.resetStats = true
	return ratePerSec(e.intervalTests, e.intervalTimeUsec)
}

// AvgTestsPerSecond returns the lifetime Fermat-test rate.
func (e *Engine) AvgTestsPerSecond() float64 {
	return ratePerSec(e.totalTests, e.totalTimeUsec)
}

// GetFoundPrimes returns the lifetime found_primes counter.
func (e *Engine) GetFoundPrimes() uint64 {
	return e.foundPrimes
}

func ratePerSec(count uint64, usec int64) float64 {
	if usec <= 0 {
		return 0
	}
	return float64(count) / (float64(usec) / 1e6)
}
