// Package bigle provides the little-endian big-integer byte encoding used
// throughout the gap-search core, plus the small set of number-theoretic
// helpers (probable-primality, nextprime) that the core assumes an
// arbitrary-precision integer facility supplies.
//
// Go's standard math/big is the only arbitrary-precision integer library
// that appears anywhere in the retrieved corpus (see DESIGN.md); it is used
// here in the same role GMP plays in the original C++ implementation.
package bigle

import "math/big"

// ToLEBytes encodes n as little-endian bytes, least significant byte first,
// with no leading (i.e. high-order, trailing-in-the-slice) zero padding
// beyond the minimum needed. A zero value encodes to an empty slice.
func ToLEBytes(n *big.Int) []byte {
	be := n.Bytes() // big-endian, minimal length
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return le
}

// FromLEBytes decodes a little-endian byte slice into a big.Int. A nil or
// empty slice decodes to zero.
func FromLEBytes(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(be)
}

// mrRounds is the number of Miller-Rabin rounds used for probable-primality
// testing of candidate PoW endpoints (spec: 25 rounds).
const mrRounds = 25

// IsProbablePrime reports whether n is probably prime, using mrRounds
// rounds of Miller-Rabin (plus the Baillie-PSW test math/big always runs).
func IsProbablePrime(n *big.Int) bool {
	if n.Sign() <= 0 {
		return false
	}
	return n.ProbablyPrime(mrRounds)
}

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// NextPrime returns the smallest probable prime strictly greater than n.
func NextPrime(n *big.Int) *big.Int {
	c := new(big.Int).Set(n)
	if c.Bit(0) == 0 {
		c.Add(c, one)
	} else {
		c.Add(c, two)
	}
	for !IsProbablePrime(c) {
		c.Add(c, two)
	}
	return c
}
