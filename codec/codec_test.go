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

package codec_test

import (
	"math/big"
	"testing"

	"github.com/duoplex/duoplex/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSize(t *testing.T) {
	n512 := new(big.Int).Lsh(big.NewInt(1), 512)
	b, err := codec.ChunkSize(n512)
	require.NoError(t, err)
	assert.Equal(t, (513-128)/8, b)

	nTiny := new(big.Int).Lsh(big.NewInt(1), 100)
	_, err = codec.ChunkSize(nTiny)
	assert.ErrorIs(t, err, codec.ErrInvalidArgument)

	nHuge := new(big.Int).Lsh(big.NewInt(1), 4096)
	b, err = codec.ChunkSize(nHuge)
	require.NoError(t, err)
	assert.Equal(t, 256, b)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello, dual-plaintext world")
	chunks, origLen, err := codec.Encode(payload, 16, nil)
	require.NoError(t, err)
	assert.Equal(t, len(payload), origLen)

	got, err := codec.Decode(chunks, origLen, 16)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEncodeEmptyPayload(t *testing.T) {
	chunks, origLen, err := codec.Encode(nil, 16, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, origLen)
	assert.Len(t, chunks, 1)

	got, err := codec.Decode(chunks, origLen, 16)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncodeChunkCountMatchesLength(t *testing.T) {
	b := 16
	payload := make([]byte, b*3+1) // spills into a 4th chunk
	chunks, _, err := codec.Encode(payload, b, nil)
	require.NoError(t, err)
	assert.Len(t, chunks, 4)
}

func TestDecodeTruncatesPadding(t *testing.T) {
	payload := []byte("short")
	b := 16
	chunks, origLen, err := codec.Encode(payload, b, nil)
	require.NoError(t, err)

	// the last (only) chunk should differ from a zero-padded version,
	// because padding is random, not zero.
	zeroPadded := make([]byte, b)
	copy(zeroPadded, payload)
	assert.NotEqual(t, new(big.Int).SetBytes(zeroPadded), chunks[0], "padding should be random, not zero")

	got, err := codec.Decode(chunks, origLen, b)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestChunksCopyIsIndependent(t *testing.T) {
	chunks := codec.Chunks{big.NewInt(1), big.NewInt(2)}
	cp := chunks.Copy()
	cp[0].SetInt64(99)
	assert.Equal(t, int64(1), chunks[0].Int64())
}
