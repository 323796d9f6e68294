package sieve

import "math"

// wordBits is the machine-word size sieve sizes are rounded up to.
const wordBits = 64

// roundUpWord rounds n up to the next multiple of wordBits.
func roundUpWord(n uint64) uint64 {
	if n%wordBits == 0 {
		return n
	}
	return n - n%wordBits + wordBits
}

// primeTableBoundBits estimates the number of bits needed for a plain
// Eratosthenes pass to contain the first n primes, using the prime number
// theorem bound n*ln(n) + n*ln(ln(n)) (valid for n >= 6), rounded up to a
// machine word.
func primeTableBoundBits(n uint64) uint64 {
	if n < 6 {
		return roundUpWord(64)
	}
	nf := float64(n)
	bound := nf*math.Log(nf) + nf*math.Log(math.Log(nf))
	return roundUpWord(uint64(math.Ceil(bound)) + wordBits)
}

// sieveUpTo returns every prime <= limit via a plain Eratosthenes pass.
func sieveUpTo(limit uint64) []uint64 {
	if limit < 2 {
		limit = 2
	}
	composite := make([]bool, limit+1)
	var primes []uint64
	for i := uint64(2); i <= limit; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, i)
		if i > limit/i {
			continue
		}
		for j := i * i; j <= limit; j += i {
			composite[j] = true
		}
	}
	return primes
}

// firstNPrimes returns the first n primes, primes[0] == 2, growing the
// Eratosthenes bound if the prime-number-theorem estimate undershoots.
func firstNPrimes(n uint64) []uint64 {
	if n == 0 {
		return nil
	}
	bound := primeTableBoundBits(n)
	for {
		primes := sieveUpTo(bound)
		if uint64(len(primes)) >= n {
			return primes[:n]
		}
		bound *= 2
	}
}
