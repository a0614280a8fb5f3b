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

package container_test

import (
	"math/big"
	"testing"

	"github.com/duoplex/duoplex/container"
	"github.com/duoplex/duoplex/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContainer(t *testing.T) *container.Container {
	t.Helper()

	n := new(big.Int).SetInt64(100000007 * 100000037)
	g := new(big.Int).Add(n, big.NewInt(1))

	var salt [16]byte
	copy(salt[:], []byte("0123456789abcdef"))

	seed0 := hkdfLikeSeed("stream0")
	seed1 := hkdfLikeSeed("stream1")

	m0, err := mask.Derive(seed0, n)
	require.NoError(t, err)
	m1, err := mask.Derive(seed1, n)
	require.NoError(t, err)

	stream := []*big.Int{big.NewInt(12345), big.NewInt(67890)}

	return &container.Container{
		ChunkSize:   16,
		StreamCount: uint32(len(stream)),
		N:           n,
		G:           g,
		Salt:        salt,
		Stream0:     stream,
		Stream1:     stream,
		Mask0:       container.MaskRecord{K: m0.K, A: m0.A, Seed: m0.Seed},
		Mask1:       container.MaskRecord{K: m1.K, A: m1.A, Seed: m1.Seed},
	}
}

func hkdfLikeSeed(s string) [32]byte {
	var out [32]byte
	copy(out[:], []byte(s+"................................"))
	return out
}

func TestMarshalParseRoundTrip(t *testing.T) {
	c := sampleContainer(t)

	raw, err := c.Marshal()
	require.NoError(t, err)

	parsed, err := container.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, c.N, parsed.N)
	assert.Equal(t, c.G, parsed.G)
	assert.Equal(t, c.Salt, parsed.Salt)
	assert.Equal(t, c.StreamCount, parsed.StreamCount)
	assert.Equal(t, c.Stream0, parsed.Stream0)
	assert.Equal(t, c.Stream1, parsed.Stream1)
}

func TestParseCorruptedTag(t *testing.T) {
	c := sampleContainer(t)
	raw, err := c.Marshal()
	require.NoError(t, err)

	raw[len(raw)-1] ^= 0xFF

	_, err = container.Parse(raw)
	assert.ErrorIs(t, err, container.ErrCorrupt)
}

func TestParseCorruptedStreamByte(t *testing.T) {
	c := sampleContainer(t)
	raw, err := c.Marshal()
	require.NoError(t, err)

	// flip a byte of stream_0's first ciphertext: with the 7-byte n and g
	// of sampleContainer, stream_0 starts at offset 48 (count prefix),
	// its first entry's length prefix is at 52, and its value at 54.
	raw[54] ^= 0xFF

	_, err = container.Parse(raw)
	assert.ErrorIs(t, err, container.ErrCorrupt)
}

func TestParseTamperedMaskValues(t *testing.T) {
	c := sampleContainer(t)
	c.Mask0.K = new(big.Int).Add(c.Mask0.K, big.NewInt(1))

	raw, err := c.Marshal()
	require.NoError(t, err)

	_, err = container.Parse(raw)
	assert.ErrorIs(t, err, container.ErrCorrupt)
}

func TestParseTruncated(t *testing.T) {
	c := sampleContainer(t)
	raw, err := c.Marshal()
	require.NoError(t, err)

	_, err = container.Parse(raw[:len(raw)/2])
	assert.ErrorIs(t, err, container.ErrCorrupt)
}

func TestMarshalStreamLengthMismatch(t *testing.T) {
	c := sampleContainer(t)
	c.StreamCount = uint32(len(c.Stream0)) + 1 // lie about the count

	_, err := c.Marshal()
	assert.Error(t, err, "marshal should refuse an inconsistent stream_count")
}
