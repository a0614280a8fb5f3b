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

// Package codec converts between byte payloads and the chunked integer
// plaintext space a Paillier modulus works over, with random padding so a
// short final chunk does not leak its true length via trailing zero
// bytes. Chunks is a thin named slice of *big.Int, shaped after the
// teacher's data.Vector (data/vector.go), keeping its value-copy
// convention but dropping the inner-product-FE-specific methods (Dot,
// CheckBound against a functional-encryption bound) that have no
// counterpart in a byte codec.
package codec

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

// ErrInvalidArgument is returned when a requested chunk size or bit
// length falls outside the documented bounds.
var ErrInvalidArgument = errors.New("codec: argument out of range")

const (
	minChunkSize = 16
	maxChunkSize = 256
	headroomBits = 128
)

// ChunkSize derives B from the modulus n per spec: floor((bitlen(n) -
// 128) / 8), clamped to [16, 256]. The 128-bit headroom keeps mask-shifted
// values (m*k + a mod n) distinguishable from overflow.
func ChunkSize(n *big.Int) (int, error) {
	bits := n.BitLen()
	if bits <= headroomBits {
		return 0, errors.Wrapf(ErrInvalidArgument, "modulus too small: %d bits", bits)
	}
	b := (bits - headroomBits) / 8
	if b < minChunkSize {
		b = minChunkSize
	}
	if b > maxChunkSize {
		b = maxChunkSize
	}
	return b, nil
}

// Chunks is a sequence of plaintext chunks, each a big-endian integer
// strictly less than 2^(8*B).
type Chunks []*big.Int

// Copy returns a deep copy of c, preserving value semantics when a
// chunk sequence is handed off between encode and encrypt stages.
func (c Chunks) Copy() Chunks {
	out := make(Chunks, len(c))
	for i, v := range c {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// Encode splits payload into B-byte big-endian chunks, padding the final
// chunk with cryptographically random bytes to a full B bytes. It
// returns the chunk sequence and the original (unpadded) byte length.
func Encode(payload []byte, b int, rng io.Reader) (Chunks, int, error) {
	if b < minChunkSize || b > maxChunkSize {
		return nil, 0, errors.Wrapf(ErrInvalidArgument, "chunk size %d out of [%d,%d]", b, minChunkSize, maxChunkSize)
	}
	if rng == nil {
		rng = rand.Reader
	}

	origLen := len(payload)
	n := (origLen + b - 1) / b
	if n == 0 {
		n = 1 // an empty payload still yields one (fully padded) chunk
	}

	chunks := make(Chunks, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, b)
		start := i * b
		end := start + b
		if end > origLen {
			end = origLen
		}
		if start < origLen {
			copy(buf, payload[start:end])
		}
		if end < start+b {
			if _, err := io.ReadFull(rng, buf[end-start:]); err != nil {
				return nil, 0, errors.Wrap(err, "codec: padding final chunk")
			}
		}
		chunks[i] = new(big.Int).SetBytes(buf)
	}

	return chunks, origLen, nil
}

// Decode concatenates the big-endian B-byte representation of each
// chunk and truncates the result to origLen bytes.
func Decode(chunks Chunks, origLen, b int) ([]byte, error) {
	if b < minChunkSize || b > maxChunkSize {
		return nil, errors.Wrapf(ErrInvalidArgument, "chunk size %d out of [%d,%d]", b, minChunkSize, maxChunkSize)
	}
	if origLen < 0 || origLen > len(chunks)*b {
		return nil, errors.Wrapf(ErrInvalidArgument, "origLen %d inconsistent with %d chunks of size %d", origLen, len(chunks), b)
	}

	out := make([]byte, 0, len(chunks)*b)
	for _, c := range chunks {
		buf := make([]byte, b)
		bytes := c.Bytes()
		if len(bytes) > b {
			return nil, errors.Wrapf(ErrInvalidArgument, "chunk value exceeds %d bytes", b)
		}
		copy(buf[b-len(bytes):], bytes)
		out = append(out, buf...)
	}

	return out[:origLen], nil
}
