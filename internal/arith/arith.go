// Package arith implements the fixed-precision logarithm and merit/difficulty
// arithmetic that the gap-search engine is built on (ArithCore). All
// quantities are computed with integer operations over arbitrary-precision
// numbers so that two independent implementations, given the same inputs,
// agree bit-for-bit.
package arith

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/gapcoin-go/gapwork/internal/bigle"
)

// TwoPow48 is 2^48, the fixed-point scale for all difficulty/merit values.
const TwoPow48 = uint64(1) << 48

// MinDifficulty is the minimum mainnet difficulty (16 in human units).
const MinDifficulty = 16 * TwoPow48

// MinTestDifficulty is the minimum testnet difficulty (1 in human units).
const MinTestDifficulty = TwoPow48

// TargetSpacingSec is the desired number of seconds between blocks.
const TargetSpacingSec = 150

// log150x48 is floor(ln(150) * 2^48), precomputed.
const log150x48 = uint64(0x502b8fea053a6)

// hex constants for log2(e) scaled to 112 and 64 fractional bits.
const (
	log2EHex112 = "171547652b82fe1777d0ffda0d23a"
	log2EHex64  = "171547652b82fe177"
)

// Core holds the once-per-instance precomputed constants used by every
// ArithCore operation. Instances are independent and hold no shared mutable
// state (Design Notes §9).
type Core struct {
	l112 *big.Int // floor(log2(e) * 2^112)
	l64  *big.Int // floor(log2(e) * 2^64)
}

// NewCore builds an ArithCore instance, computing L112 and L64 once.
func NewCore() *Core {
	l112, ok := new(big.Int).SetString(log2EHex112, 16)
	if !ok {
		panic("arith: invalid L112 constant")
	}
	l64, ok := new(big.Int).SetString(log2EHex64, 16)
	if !ok {
		panic("arith: invalid L64 constant")
	}
	return &Core{l112: l112, l64: l64}
}

// Log2 returns floor(log2(n) * 2^acc) for positive n, computed iteratively
// over arbitrary-precision integers with acc bits of fractional accuracy.
//
// The integer part is bitlen(n)-1. The fractional bits are extracted one at
// a time by repeatedly squaring the normalized mantissa (kept at exactly
// acc+1 bits, representing a value in [1,2) scaled by 2^acc): squaring
// doubles both the value and the scale, and a carry into the (acc+2)th bit
// means the mantissa just crossed 2, i.e. the next fractional bit is 1.
func (c *Core) Log2(n *big.Int, acc uint) *big.Int {
	if n.Sign() <= 0 {
		return new(big.Int)
	}

	intPart := n.BitLen() - 1
	result := new(big.Int).Lsh(big.NewInt(int64(intPart)), acc)

	// Normalize n to a mantissa m with exactly acc+1 bits: m = n / 2^intPart,
	// scaled up by acc fractional bits.
	m := new(big.Int).Set(n)
	shift := int(acc) - intPart
	if shift >= 0 {
		m.Lsh(m, uint(shift))
	} else {
		m.Rsh(m, uint(-shift))
	}

	one := big.NewInt(1)
	bitVal := new(big.Int)
	for i := int(acc); i > 0; i-- {
		m.Mul(m, m)
		if m.BitLen() > int(2*acc+1) {
			// mantissa crossed 2: this fractional bit is 1.
			bitVal.Lsh(one, uint(i-1))
			result.Add(result, bitVal)
			m.Rsh(m, acc+1)
		} else {
			m.Rsh(m, acc)
		}
	}
	return result
}

// sha256LE hashes the little-endian encodings of a and b concatenated.
func sha256LE(a, b *big.Int) [32]byte {
	buf := append(bigle.ToLEBytes(a), bigle.ToLEBytes(b)...)
	return sha256.Sum256(buf)
}

// Rand returns a deterministic, bit-exact per-gap pseudo-random value
// derived from SHA256(SHA256(LE(start) || LE(end))), folded into 64 bits by
// XOR-ing the four little-endian 64-bit words of the second hash.
func (c *Core) Rand(start, end *big.Int) uint64 {
	h1 := sha256LE(start, end)
	h2 := sha256.Sum256(h1[:])

	var r uint64
	for i := 0; i < 4; i++ {
		r ^= binary.LittleEndian.Uint64(h2[i*8 : i*8+8])
	}
	return r
}

// u64OrZero returns v as a uint64, or 0 if v does not fit (saturate-to-zero
// on overflow, per the core's error-handling design).
func u64OrZero(v *big.Int) uint64 {
	if v.Sign() < 0 || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

// Merit returns ((end-start) * L112) / log2(start, 64), a fixed-point value
// scaled by 2^48. Returns 0 on overflow of 64 bits — callers treat 0 as "no
// merit".
func (c *Core) Merit(start, end *big.Int) uint64 {
	gap := new(big.Int).Sub(end, start)
	logStart := c.Log2(start, 64)
	if logStart.Sign() == 0 {
		return 0
	}
	num := new(big.Int).Mul(gap, c.l112)
	m := new(big.Int).Quo(num, logStart)
	return u64OrZero(m)
}

// meritStep returns the merit-equivalent of a +2 gap-length step: the
// fixed-point distance between adjacent discrete merits at this start value.
func (c *Core) meritStep(start *big.Int) *big.Int {
	logStart := c.Log2(start, 64)
	if logStart.Sign() == 0 {
		return big.NewInt(1)
	}
	two := big.NewInt(2)
	num := new(big.Int).Mul(two, c.l112)
	return new(big.Int).Quo(num, logStart)
}

// Difficulty returns Merit(start, end) plus a hash-derived tie-break in
// [0, meritStep), so that gaps of the same discrete length are ordered by a
// deterministic pseudo-random value without ever reaching the next discrete
// merit step.
func (c *Core) Difficulty(start, end *big.Int) uint64 {
	merit := c.Merit(start, end)
	step := c.meritStep(start)
	if step.Sign() <= 0 {
		step = big.NewInt(1)
	}
	stepU64 := step.Uint64()
	if stepU64 == 0 {
		stepU64 = 1
	}
	r := c.Rand(start, end) % stepU64
	sum := merit + r
	if sum < merit { // overflow
		return ^uint64(0)
	}
	return sum
}

// TargetSize returns floor(D * log2(start, 64) / L112): the minimum gap
// length (in units of 1) whose merit meets D.
func (c *Core) TargetSize(start *big.Int, difficulty uint64) uint64 {
	logStart := c.Log2(start, 64)
	d := new(big.Int).SetUint64(difficulty)
	num := new(big.Int).Mul(d, logStart)
	size := new(big.Int).Quo(num, c.l112)
	return u64OrZero(size)
}

// TargetWork returns floor(e^(D/2^48)) as little-endian bytes: the expected
// number of candidate primes that must be tested to find a gap meeting D.
func (c *Core) TargetWork(difficulty uint64) []byte {
	const workPrecision = 200

	exp := new(big.Float).SetPrec(workPrecision).SetUint64(difficulty)
	exp.Quo(exp, new(big.Float).SetPrec(workPrecision).SetUint64(TwoPow48))

	result := bigExp(exp, workPrecision)
	n, _ := result.Int(nil)
	if n == nil {
		n = new(big.Int)
	}
	return bigle.ToLEBytes(n)
}

// bigExp computes e^x for a big.Float x by argument halving and repeated
// squaring — e^x = (e^(x/2^k))^(2^k), with k the smallest count of halvings
// that brings |x/2^k| down to at most 1 — and a 60-term Taylor series for
// e^(x/2^k).
func bigExp(x *big.Float, prec uint) *big.Float {
	k := 0
	reduced := new(big.Float).SetPrec(prec).Copy(x)
	two := new(big.Float).SetPrec(prec).SetInt64(2)
	bound := new(big.Float).SetPrec(prec).SetInt64(1)
	for reduced.Cmp(bound) > 0 || reduced.Cmp(new(big.Float).SetPrec(prec).Neg(bound)) < 0 {
		reduced.Quo(reduced, two)
		k++
	}

	// Taylor series: sum_{i=0}^{n} reduced^i / i!
	sum := new(big.Float).SetPrec(prec).SetInt64(1)
	term := new(big.Float).SetPrec(prec).SetInt64(1)
	for i := 1; i <= 60; i++ {
		term.Mul(term, reduced)
		term.Quo(term, new(big.Float).SetPrec(prec).SetInt64(int64(i)))
		sum.Add(sum, term)
	}

	for i := 0; i < k; i++ {
		sum.Mul(sum, sum)
	}
	return sum
}

// NextDifficulty computes the next block's difficulty from the previous
// difficulty and the elapsed time of the retarget interval, with asymmetric
// damping: decay is faster (shift 6) when blocks are slower than target,
// and slower (shift 8) when they are faster. Do not symmetrize (Design
// Note 4).
func (c *Core) NextDifficulty(prevDifficulty uint64, actualSpanSec uint64, testnet bool) uint64 {
	lActual := u64OrZero(new(big.Int).Quo(c.Log2(new(big.Int).SetUint64(actualSpanSec), 112), c.l64))

	var shift uint
	if lActual > log150x48 {
		shift = 6
	} else {
		shift = 8
	}

	targetTerm := log150x48 >> shift
	actualTerm := lActual >> shift

	var next uint64
	if actualTerm > targetTerm {
		delta := actualTerm - targetTerm
		if prevDifficulty < delta {
			next = 0
		} else {
			next = prevDifficulty - delta
		}
	} else {
		delta := targetTerm - actualTerm
		sum := prevDifficulty + delta
		if sum < prevDifficulty { // overflow
			next = ^uint64(0)
		} else {
			next = sum
		}
	}

	// Clamp per-block delta to +/- 2^48 (1 human unit).
	if next > prevDifficulty && next-prevDifficulty > TwoPow48 {
		next = prevDifficulty + TwoPow48
	} else if next < prevDifficulty && prevDifficulty-next > TwoPow48 {
		next = prevDifficulty - TwoPow48
	}

	return c.clampMin(next, testnet)
}

// clampMin enforces the minimum difficulty floor for the given network.
func (c *Core) clampMin(d uint64, testnet bool) uint64 {
	min := uint64(MinDifficulty)
	if testnet {
		min = MinTestDifficulty
	}
	if d < min {
		return min
	}
	return d
}

// MaxDifficultyDecrease returns the lowest difficulty reachable after t
// seconds have elapsed without a retarget, used to bound how far difficulty
// can fall behind a stalled chain.
func MaxDifficultyDecrease(difficulty uint64, t int64, testnet bool) uint64 {
	if testnet && t > TargetSpacingSec*100 {
		return MinTestDifficulty
	}

	min := uint64(MinDifficulty)
	if testnet {
		min = MinTestDifficulty
	}

	d := difficulty
	for t > 0 {
		if d < TwoPow48 {
			d = 0
		} else {
			d -= TwoPow48
		}
		t -= 174 * TargetSpacingSec
	}
	if d < min {
		return min
	}
	return d
}

// ReadableDifficulty returns D / 2^48 for display only.
func (c *Core) ReadableDifficulty(difficulty uint64) float64 {
	return float64(difficulty) / float64(TwoPow48)
}

// GapsPerDay estimates the number of qualifying gaps found per day given a
// sustained candidate-test rate (pps: primes/candidates tested per second)
// and a difficulty.
func (c *Core) GapsPerDay(pps float64, difficulty uint64) float64 {
	expected := expFloat64(c.ReadableDifficulty(difficulty))
	if expected == 0 {
		return 0
	}
	return (86400 * pps) / expected
}

// expFloat64 computes e^x for a plain float64 via the same reduction
// technique as bigExp, at double precision — used only for the advisory
// gaps-per-day telemetry estimate, where float64 accuracy is sufficient.
func expFloat64(x float64) float64 {
	k := 0
	r := x
	for r > 1 || r < -1 {
		r /= 2
		k++
	}
	sum := 1.0
	term := 1.0
	for i := 1; i <= 30; i++ {
		term *= r / float64(i)
		sum += term
	}
	for i := 0; i < k; i++ {
		sum *= sum
	}
	return sum
}
