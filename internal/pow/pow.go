// Package pow encapsulates one prime-gap proof-of-work puzzle instance
// (hash, shift, adder, target difficulty) and derives its endpoints,
// merit, difficulty, and validity.
package pow

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gapcoin-go/gapwork/internal/arith"
	"github.com/gapcoin-go/gapwork/internal/bigle"
)

// MinShift is the minimum allowed shift (spec: s >= 14).
const MinShift = 14

// Errors returned by the adder setters. get_end_points itself
// never errors — it returns false per the core's sentinel-return design
// (spec §7); these are only for inputs an API consumer can avoid statically.
var (
	ErrAdderTooLarge = errors.New("pow: adder bit length exceeds shift")
)

// PoW holds one puzzle instance: hash H, shift s, adder a, target difficulty
// D_t, and an opaque nonce. No caching — endpoints are recomputed on every
// call, so callers should call sparingly (Design Notes §9, §4.2).
type PoW struct {
	hash             *big.Int
	shift            uint16
	adder            *big.Int
	targetDifficulty uint64
	nonce            uint32
	maxShift         uint16 // 0 = no cap

	core *arith.Core
}

// New constructs a PoW from native big-integer H and adder.
func New(core *arith.Core, hash *big.Int, shift uint16, adder *big.Int, targetDifficulty uint64, nonce uint32) *PoW {
	return &PoW{
		hash:             new(big.Int).Set(hash),
		shift:            shift,
		adder:            new(big.Int).Set(adder),
		targetDifficulty: targetDifficulty,
		nonce:            nonce,
		core:             core,
	}
}

// NewFromBytes constructs a PoW from little-endian byte-encoded H and adder.
func NewFromBytes(core *arith.Core, hash []byte, shift uint16, adder []byte, targetDifficulty uint64, nonce uint32) *PoW {
	return New(core, bigle.FromLEBytes(hash), shift, bigle.FromLEBytes(adder), targetDifficulty, nonce)
}

// SetMaxShift installs an optional cap on the shift (defense against
// resource exhaustion from huge shifts). 0 disables the cap; there is no
// default (Design Note 3).
func (p *PoW) SetMaxShift(max uint16) {
	p.maxShift = max
}

// Endpoints returns (start, end) and true if this PoW's fields describe a
// valid candidate: s >= 14, s <= MaxShift (if configured), bitlen(H) == 256,
// bitlen(a) <= s, and start is probable-prime to 25 Miller-Rabin rounds. On
// success end = nextprime(start). Failure returns (nil, nil, false) — this
// never panics or errors, per the core's sentinel-return design.
func (p *PoW) Endpoints() (start, end *big.Int, ok bool) {
	if p.shift < MinShift {
		return nil, nil, false
	}
	if p.maxShift != 0 && p.shift > p.maxShift {
		return nil, nil, false
	}
	if p.hash.BitLen() != 256 {
		return nil, nil, false
	}
	if p.adder.BitLen() > int(p.shift) {
		return nil, nil, false
	}

	start = new(big.Int).Lsh(p.hash, uint(p.shift))
	start.Add(start, p.adder)

	if !bigle.IsProbablePrime(start) {
		return nil, nil, false
	}
	end = bigle.NextPrime(start)
	return start, end, true
}

// GetGap writes the little-endian byte encodings of start and end into the
// provided pointers and reports whether the endpoints are valid. Mirrors the
// byte-oriented accessor the original PoW.h exposes alongside the native one
// (supplemented from original_source/src/PoW.h).
func (p *PoW) GetGap(startOut, endOut *[]byte) bool {
	start, end, ok := p.Endpoints()
	if !ok {
		return false
	}
	*startOut = bigle.ToLEBytes(start)
	*endOut = bigle.ToLEBytes(end)
	return true
}

// Difficulty returns the fixed-point difficulty of this PoW's gap, or 0 if
// the endpoints are invalid.
func (p *PoW) Difficulty() uint64 {
	start, end, ok := p.Endpoints()
	if !ok {
		return 0
	}
	return p.core.Difficulty(start, end)
}

// Merit returns the fixed-point merit of this PoW's gap, or 0 if the
// endpoints are invalid.
func (p *PoW) Merit() uint64 {
	start, end, ok := p.Endpoints()
	if !ok {
		return 0
	}
	return p.core.Merit(start, end)
}

// GapLen returns end - start, or 0 if the endpoints are invalid.
func (p *PoW) GapLen() uint64 {
	start, end, ok := p.Endpoints()
	if !ok {
		return 0
	}
	return new(big.Int).Sub(end, start).Uint64()
}

// Valid reports whether this PoW's difficulty meets or exceeds its target.
func (p *PoW) Valid() bool {
	return p.Difficulty() >= p.targetDifficulty
}

// TargetSize returns the minimum gap length whose merit meets this PoW's
// target difficulty, for the given start value.
func (p *PoW) TargetSize(start *big.Int) uint64 {
	return p.core.TargetSize(start, p.targetDifficulty)
}

// GetHash returns a copy of H.
func (p *PoW) GetHash() *big.Int { return new(big.Int).Set(p.hash) }

// SetHash sets H.
func (p *PoW) SetHash(hash *big.Int) { p.hash = new(big.Int).Set(hash) }

// GetShift returns s.
func (p *PoW) GetShift() uint16 { return p.shift }

// SetShift sets s.
func (p *PoW) SetShift(shift uint16) { p.shift = shift }

// GetNonce returns the opaque nonce.
func (p *PoW) GetNonce() uint32 { return p.nonce }

// SetNonce sets the opaque nonce.
func (p *PoW) SetNonce(nonce uint32) { p.nonce = nonce }

// GetTargetDifficulty returns D_t.
func (p *PoW) GetTargetDifficulty() uint64 { return p.targetDifficulty }

// SetTargetDifficulty sets D_t.
func (p *PoW) SetTargetDifficulty(d uint64) { p.targetDifficulty = d }

// GetAdder returns a copy of a.
func (p *PoW) GetAdder() *big.Int { return new(big.Int).Set(p.adder) }

// GetAdderBytes returns a's little-endian byte encoding.
func (p *PoW) GetAdderBytes() []byte { return bigle.ToLEBytes(p.adder) }

// SetAdder sets a from a native big integer. Returns ErrAdderTooLarge if
// bitlen(a) > s; the adder is still stored (Endpoints will then report
// invalid), matching the core's "validation happens at use time" design.
func (p *PoW) SetAdder(adder *big.Int) error {
	p.adder = new(big.Int).Set(adder)
	if p.adder.BitLen() > int(p.shift) {
		return fmt.Errorf("%w: bitlen=%d shift=%d", ErrAdderTooLarge, p.adder.BitLen(), p.shift)
	}
	return nil
}

// SetAdderBytes sets a from its little-endian byte encoding.
func (p *PoW) SetAdderBytes(b []byte) error {
	return p.SetAdder(bigle.FromLEBytes(b))
}

// ToString returns a human-readable summary of this PoW.
func (p *PoW) ToString() string {
	start, end, ok := p.Endpoints()
	if !ok {
		return fmt.Sprintf("PoW{shift=%d, invalid}", p.shift)
	}
	return fmt.Sprintf("PoW{shift=%d, start=%s, gap=%d, merit=%.6f, difficulty=%.6f, valid=%v}",
		p.shift, start.String(), new(big.Int).Sub(end, start).Uint64(),
		p.core.ReadableDifficulty(p.core.Merit(start, end)),
		p.core.ReadableDifficulty(p.core.Difficulty(start, end)),
		p.Valid())
}
