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

// Package primegen generates the primes and Paillier keypairs duoplex
// needs, either from a real randomness source or deterministically from
// a passphrase. The rejection-loop shape (sample candidate, sieve, run
// Miller-Rabin, retry) follows keygen.NewElGamal's GetSafePrime call in
// the teacher library, though the candidate here carries none of that
// function's safe-prime structure: GeneratePrime returns a plain
// bits-bit prime, nothing more.
package primegen

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/duoplex/duoplex/bigint"
	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned for out-of-range bit-length requests.
var ErrInvalidArgument = errors.New("primegen: argument out of range")

// GeneratePrime returns an odd integer of exactly bits bits, high bit
// set, passing Miller-Rabin. The rejection loop samples bits random
// bits, forces the top and bottom bit, sieves by small primes below
// 2000, and runs Miller-Rabin on whatever survives the sieve. rng
// defaults to crypto/rand when nil. Candidate bytes and Miller-Rabin
// witnesses are drawn from rng strictly left-to-right, one candidate at
// a time, because DeriveKeypair depends on this exact consumption order
// to reproduce a keypair byte-for-byte from a passphrase. ctx is
// checked once per outer rejection-loop iteration, so a slow
// large-bit-length generation can be cancelled promptly.
func GeneratePrime(ctx context.Context, bits int, rng io.Reader) (*big.Int, error) {
	if bits < 8 {
		return nil, errors.Wrapf(ErrInvalidArgument, "bits must be >= 8, got %d", bits)
	}
	if rng == nil {
		rng = rand.Reader
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := randomOddCandidate(bits, rng)
		if err != nil {
			return nil, err
		}
		if !passesSmallPrimeSieve(p) {
			continue
		}
		prime, err := bigint.MillerRabin(p, bigint.DefaultMillerRabinRounds, rng)
		if err != nil {
			return nil, err
		}
		if prime {
			return p, nil
		}
	}
}

// randomOddCandidate draws a bits-bit odd integer with the top bit set,
// reading raw bytes from rng in big-endian form.
func randomOddCandidate(bits int, rng io.Reader) (*big.Int, error) {
	byteLen := (bits + 7) / 8
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return nil, errors.Wrap(err, "primegen: reading candidate bytes")
	}

	// force the top bit of the bits-bit value, wherever it falls within
	// the leading byte, and clear anything above it.
	excess := uint(byteLen*8 - bits)
	buf[0] &= 0xFF >> excess
	buf[0] |= 1 << (7 - excess)

	// force the bottom bit (oddness).
	buf[byteLen-1] |= 1

	return new(big.Int).SetBytes(buf), nil
}

func passesSmallPrimeSieve(n *big.Int) bool {
	for _, sp := range smallPrimes {
		p := big.NewInt(int64(sp))
		if n.Cmp(p) == 0 {
			return true
		}
		m := new(big.Int).Mod(n, p)
		if m.Sign() == 0 {
			return false
		}
	}
	return true
}
