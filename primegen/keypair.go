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

package primegen

import (
	"context"
	"io"
	"math/big"

	"github.com/duoplex/duoplex/paillier"
	"github.com/pkg/errors"
)

// fermatMargin returns 2^(halfBits-100), the minimum allowed |p-q|, or 1
// when halfBits is too small for the margin to be meaningful (demo-size
// keys below ~200 bits total).
func fermatMargin(halfBits int) *big.Int {
	shift := halfBits - 100
	if shift <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Lsh(big.NewInt(1), uint(shift))
}

// GenerateKeypair draws two bits/2-bit primes p, q, rejecting pairs
// where p == q or |p-q| is too small to resist Fermat factorisation, and
// assembles the resulting Paillier keypair. rng defaults to crypto/rand
// when nil.
func GenerateKeypair(ctx context.Context, bits int, rng io.Reader) (*paillier.PublicKey, *paillier.PrivateKey, error) {
	if bits < 16 || bits%2 != 0 {
		return nil, nil, errors.Wrapf(ErrInvalidArgument, "bits must be even and >= 16, got %d", bits)
	}

	halfBits := bits / 2
	margin := fermatMargin(halfBits)

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		p, err := GeneratePrime(ctx, halfBits, rng)
		if err != nil {
			return nil, nil, err
		}
		q, err := GeneratePrime(ctx, halfBits, rng)
		if err != nil {
			return nil, nil, err
		}

		if p.Cmp(q) == 0 {
			continue
		}
		diff := new(big.Int).Sub(p, q)
		diff.Abs(diff)
		if diff.Cmp(margin) < 0 {
			continue
		}

		return paillier.NewPrivateKey(p, q)
	}
}

// DeriveKeypair is identical to GenerateKeypair except the randomness
// source is a deterministic keystream seeded from HKDF(passphrase, salt):
// the same passphrase, salt, and bits always produce the same keypair,
// byte for byte, because GenerateKeypair/GeneratePrime consume bytes from
// rng strictly left-to-right (candidate bytes, then Miller-Rabin
// witnesses, then the next candidate). How many bytes each step takes
// depends on the byte values (sieve rejections, witness rejections,
// early composite exits), but those values are themselves fixed by the
// keystream, so the whole sequence repeats exactly.
func DeriveKeypair(passphrase, salt []byte, bits int) (*paillier.PublicKey, *paillier.PrivateKey, error) {
	key, err := derivePRFKey(passphrase, salt)
	if err != nil {
		return nil, nil, err
	}
	rng := newDeterministicReader(key)
	return GenerateKeypair(context.Background(), bits, rng)
}
