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

// Package container implements the on-wire dual-plaintext artifact:
// two masked ciphertext streams, the public key they were encrypted
// under, mask metadata, a salt, and an integrity tag. A Container is a
// tree (no back-references); every field is owned by value.
package container

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/duoplex/duoplex/internal/consttime"
	"github.com/duoplex/duoplex/mask"
	"github.com/pkg/errors"
)

const (
	magic          uint16 = 0xC0DE
	currentVersion uint16 = 1
	saltSize              = 16
	tagSize               = 32
	seedSize              = 32

	// FlagPassphraseDerived marks that the key used to route and derive
	// the private key at decrypt time is a passphrase, not a
	// caller-supplied keypair.
	FlagPassphraseDerived uint32 = 1 << 0
)

// ErrCorrupt is returned for any parse failure, tag mismatch,
// mask-seed recomputation mismatch, or stream-length mismatch.
var ErrCorrupt = errors.New("container: corrupt or tampered data")

// MaskRecord is a mask's on-wire form: k and a plus the seed they were
// derived from. Parsers must recompute (k, a) from seed and treat any
// mismatch as ErrCorrupt; storing k, a at all is redundant with seed
// and exists only so that check can run.
type MaskRecord struct {
	K    *big.Int
	A    *big.Int
	Seed [32]byte
}

// Container holds the full set of on-wire fields.
type Container struct {
	Version     uint16
	Flags       uint32
	ChunkSize   uint16
	StreamCount uint32
	N           *big.Int
	G           *big.Int
	Salt        [16]byte
	Stream0     []*big.Int
	Stream1     []*big.Int
	Mask0       MaskRecord
	Mask1       MaskRecord
}

// Marshal serializes c and appends the integrity tag, HMAC-SHA256 keyed
// by SHA-256(salt) over every preceding byte.
func (c *Container) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	writeUint16(&buf, magic)
	writeUint16(&buf, currentVersion)
	writeUint32(&buf, c.Flags)
	writeUint16(&buf, c.ChunkSize)
	writeUint32(&buf, c.StreamCount)

	if err := writeLenPrefixedInt(&buf, c.N); err != nil {
		return nil, errors.Wrap(err, "container: marshal n")
	}
	if err := writeLenPrefixedInt(&buf, c.G); err != nil {
		return nil, errors.Wrap(err, "container: marshal g")
	}

	buf.Write(c.Salt[:])

	if err := writeStream(&buf, c.Stream0, c.StreamCount); err != nil {
		return nil, errors.Wrap(err, "container: marshal stream_0")
	}
	if err := writeStream(&buf, c.Stream1, c.StreamCount); err != nil {
		return nil, errors.Wrap(err, "container: marshal stream_1")
	}

	if err := writeMask(&buf, c.Mask0); err != nil {
		return nil, errors.Wrap(err, "container: marshal mask_0")
	}
	if err := writeMask(&buf, c.Mask1); err != nil {
		return nil, errors.Wrap(err, "container: marshal mask_1")
	}

	tag := computeTag(c.Salt, buf.Bytes())
	buf.Write(tag)

	return buf.Bytes(), nil
}

// Parse deserializes and fully validates raw: tag verification,
// mask-seed recomputation, and stream-length equality all happen here,
// before the caller ever sees ciphertext. Every check runs to
// completion before any branch on the overall result, so a caller
// cannot time which check failed.
func Parse(raw []byte) (*Container, error) {
	if len(raw) < 2+2+4+2+4+2+2+saltSize+4+4+tagSize {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated")
	}

	body := raw[:len(raw)-tagSize]
	wantTag := raw[len(raw)-tagSize:]

	r := newReader(raw)

	gotMagic, err := r.uint16()
	if err != nil || gotMagic != magic {
		return nil, errors.Wrap(ErrCorrupt, "container: bad magic")
	}
	version, err := r.uint16()
	if err != nil || version != currentVersion {
		return nil, errors.Wrap(ErrCorrupt, "container: unsupported version")
	}
	flags, err := r.uint32()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated flags")
	}
	chunkSize, err := r.uint16()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated chunk_size")
	}
	streamCount, err := r.uint32()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated stream_count")
	}

	n, err := r.lenPrefixedInt()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated n")
	}
	g, err := r.lenPrefixedInt()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated g")
	}

	var salt [saltSize]byte
	if err := r.fixed(salt[:]); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated salt")
	}

	stream0, err := r.stream(streamCount)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated stream_0")
	}
	stream1, err := r.stream(streamCount)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated stream_1")
	}

	mask0, err := r.mask()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated mask_0")
	}
	mask1, err := r.mask()
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, "container: truncated mask_1")
	}

	if !r.exhausted(tagSize) {
		return nil, errors.Wrap(ErrCorrupt, "container: trailing bytes")
	}

	// Every validation below runs regardless of whether an earlier one
	// already failed, and only the accumulated result is branched on at
	// the end, so the overall cost is the same for any failure mode.
	tagOK := consttime.Equal(computeTag(salt, body), wantTag)
	lenOK := len(stream0) == int(streamCount) && len(stream1) == int(streamCount)

	recomputed0, derive0Err := mask.Derive(mask0.Seed, n)
	recomputed1, derive1Err := mask.Derive(mask1.Seed, n)
	mask0OK := derive0Err == nil &&
		consttime.Equal(recomputed0.K.Bytes(), mask0.K.Bytes()) &&
		consttime.Equal(recomputed0.A.Bytes(), mask0.A.Bytes())
	mask1OK := derive1Err == nil &&
		consttime.Equal(recomputed1.K.Bytes(), mask1.K.Bytes()) &&
		consttime.Equal(recomputed1.A.Bytes(), mask1.A.Bytes())

	if !tagOK || !lenOK || !mask0OK || !mask1OK {
		return nil, errors.Wrap(ErrCorrupt, "container: validation failed")
	}

	return &Container{
		Version:     version,
		Flags:       flags,
		ChunkSize:   chunkSize,
		StreamCount: streamCount,
		N:           n,
		G:           g,
		Salt:        salt,
		Stream0:     stream0,
		Stream1:     stream1,
		Mask0:       mask0,
		Mask1:       mask1,
	}, nil
}

func computeTag(salt [saltSize]byte, body []byte) []byte {
	key := sha256.Sum256(salt[:])
	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	return mac.Sum(nil)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeLenPrefixedInt(buf *bytes.Buffer, v *big.Int) error {
	b := v.Bytes()
	if len(b) > 0xFFFF {
		return errors.New("container: integer too large to encode")
	}
	writeUint16(buf, uint16(len(b)))
	buf.Write(b)
	return nil
}

func writeStream(buf *bytes.Buffer, stream []*big.Int, count uint32) error {
	if uint32(len(stream)) != count {
		return errors.New("container: stream length does not match stream_count")
	}
	writeUint32(buf, count)
	for _, c := range stream {
		b := c.Bytes()
		if len(b) > 0xFFFF {
			return errors.New("container: ciphertext too large to encode")
		}
		writeUint16(buf, uint16(len(b)))
		buf.Write(b)
	}
	return nil
}

func writeMask(buf *bytes.Buffer, m MaskRecord) error {
	if err := writeLenPrefixedInt(buf, m.K); err != nil {
		return err
	}
	if err := writeLenPrefixedInt(buf, m.A); err != nil {
		return err
	}
	buf.Write(m.Seed[:])
	return nil
}
