/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bigint collects the arbitrary-precision integer helpers shared by
// the rest of duoplex: modular exponentiation (including negative
// exponents), modular inverse, gcd, and Miller-Rabin primality.
package bigint

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// ErrNotCoprime is returned by ModInverse when gcd(a, m) != 1.
var ErrNotCoprime = errors.New("not coprime: modular inverse does not exist")

// DefaultMillerRabinRounds is the default witness count for MillerRabin,
// giving a false-positive probability below 4^-40.
const DefaultMillerRabinRounds = 40

// ModExp calculates g^x in Z_m*, even if x < 0 (in which case it first
// computes the inverse of g^|x|).
func ModExp(g, x, m *big.Int) *big.Int {
	ret := new(big.Int)
	if x.Sign() == -1 {
		xNeg := new(big.Int).Neg(x)
		ret.Exp(g, xNeg, m)
		ret.ModInverse(ret, m)
	} else {
		ret.Exp(g, x, m)
	}

	return ret
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, a, b)
}

// ModInverse returns a^-1 mod m. It fails with ErrNotCoprime when
// gcd(a, m) != 1, rather than silently returning nil as math/big does.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		return nil, ErrNotCoprime
	}
	return inv, nil
}

// LCM returns the least common multiple of a and b, both assumed positive.
func LCM(a, b *big.Int) *big.Int {
	g := GCD(a, b)
	l := new(big.Int).Div(a, g)
	l.Mul(l, b)
	return l
}

// MillerRabin reports whether n is probably prime, using rounds
// independent witnesses drawn from rng. It matches the semantics of
// math/big's ProbablyPrime but takes the randomness source explicitly so
// callers can supply a deterministic generator (e.g. primegen's
// passphrase-derived keystream) and get identical results across runs.
// rng may be nil, in which case crypto/rand.Reader is used.
func MillerRabin(n *big.Int, rounds int, rng io.Reader) (bool, error) {
	if rounds <= 0 {
		rounds = DefaultMillerRabinRounds
	}

	zero := big.NewInt(0)
	one := big.NewInt(1)
	two := big.NewInt(2)
	three := big.NewInt(3)

	if n.Cmp(two) < 0 {
		return false, nil
	}
	if n.Cmp(two) == 0 || n.Cmp(three) == 0 {
		return true, nil
	}
	if new(big.Int).Mod(n, two).Cmp(zero) == 0 {
		return false, nil
	}

	// write n-1 = 2^s * d with d odd
	nMinusOne := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinusOne)
	s := 0
	for new(big.Int).Mod(d, two).Cmp(zero) == 0 {
		d.Div(d, two)
		s++
	}

	nMinusTwo := new(big.Int).Sub(n, two)
	byteLen := (n.BitLen() + 7) / 8

	for i := 0; i < rounds; i++ {
		a, err := randomWitness(rng, byteLen, nMinusTwo)
		if err != nil {
			return false, err
		}

		x := new(big.Int).Exp(a, d, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinusOne) == 0 {
			continue
		}

		composite := true
		for r := 0; r < s-1; r++ {
			x.Exp(x, two, n)
			if x.Cmp(nMinusOne) == 0 {
				composite = false
				break
			}
		}
		if composite {
			return false, nil
		}
	}

	return true, nil
}

// randomWitness draws a value in [2, n-2] from rng, rejecting out-of-range
// candidates. rng defaults to crypto/rand.Reader when nil.
func randomWitness(rng io.Reader, byteLen int, nMinusTwo *big.Int) (*big.Int, error) {
	if rng == nil {
		rng = rand.Reader
	}
	two := big.NewInt(2)
	buf := make([]byte, byteLen)
	for {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, errors.Wrap(err, "miller-rabin witness draw")
		}
		a := new(big.Int).SetBytes(buf)
		if a.Cmp(two) >= 0 && a.Cmp(nMinusTwo) <= 0 {
			return a, nil
		}
	}
}
