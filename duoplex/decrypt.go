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

package duoplex

import (
	"math/big"

	"github.com/duoplex/duoplex/codec"
	"github.com/duoplex/duoplex/container"
	"github.com/duoplex/duoplex/mask"
	"github.com/duoplex/duoplex/paillier"
	"github.com/duoplex/duoplex/router"
)

// Decrypt recovers whichever of the two plaintexts key routes to.
// container.Parse has already verified the integrity tag and both
// masks' seed recomputation before this function ever sees the
// ciphertext streams, so everything below operates on data already
// known not to be tampered with; what remains unverified is only
// whether key itself is the right one.
//
// Mask removal, per-chunk decryption, and length-chunk validation all
// run unconditionally, in that order, regardless of whether an earlier
// one already failed — substituting the wrong key's own (structurally
// valid but useless) output where a real result is missing — and only
// the combined outcome is branched on at the very end, so a caller
// cannot infer from wall-clock time which of the three checks is what
// rejected the wrong key.
func Decrypt(containerBytes []byte, key []byte, opts DecryptOptions) ([]byte, error) {
	c, err := container.Parse(containerBytes)
	if err != nil {
		return nil, err
	}

	label := router.Route(key, c.Salt[:])
	stream, rec := c.Stream0, c.Mask0
	if label == 1 {
		stream, rec = c.Stream1, c.Mask1
	}
	m := &mask.Mask{Kind: mask.Linear, K: rec.K, A: rec.A, Seed: rec.Seed}

	sk, skMatches, err := resolveSK(c, key, opts)
	if err != nil {
		// Caller misuse (a required option was never supplied) rather
		// than a wrong key; there is no secret-dependent branch to hide
		// the timing of, since the caller already knows it omitted the
		// option.
		return nil, err
	}

	unmasked, maskErr := mask.RemoveBatch(sk.PublicKey, stream, m)
	if maskErr != nil {
		unmasked = stream
	}

	plain, decryptErr := decryptChunks(sk, unmasked, opts.Workers)
	if decryptErr != nil {
		plain = placeholderChunks(len(unmasked))
	}

	lengthErr := validateLengthPrefix(plain, int(c.ChunkSize))

	if !skMatches || maskErr != nil || decryptErr != nil || lengthErr != nil {
		return nil, ErrKeyMismatch
	}

	payload, err := codec.Decode(plain[1:], int(plain[0].Int64()), int(c.ChunkSize))
	if err != nil {
		return nil, ErrKeyMismatch
	}

	return payload, nil
}

func decryptChunks(sk *paillier.PrivateKey, cs []*big.Int, workers int) ([]*big.Int, error) {
	return mapChunks(cs, workers, func(c *big.Int) (*big.Int, error) {
		return paillier.Decrypt(sk, c)
	})
}

// placeholderChunks stands in for a decrypted chunk sequence when
// decryption itself failed, so length-chunk validation still runs
// against a slice of the same shape a genuine decryption would have
// produced.
func placeholderChunks(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = big.NewInt(0)
	}
	return out
}

// validateLengthPrefix checks that plain[0], the length-prefix chunk,
// plausibly describes the remaining chunks: non-negative, representable,
// and no larger than the padded payload those chunks could hold.
func validateLengthPrefix(plain []*big.Int, chunkSize int) error {
	if len(plain) == 0 {
		return ErrKeyMismatch
	}
	origLen := plain[0]
	maxLen := (len(plain) - 1) * chunkSize
	if origLen.Sign() < 0 || !origLen.IsInt64() || origLen.Int64() > int64(maxLen) {
		return ErrKeyMismatch
	}
	return nil
}
