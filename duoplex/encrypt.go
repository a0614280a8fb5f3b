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
	"context"
	"crypto/rand"
	"io"
	"math/big"

	"github.com/duoplex/duoplex/codec"
	"github.com/duoplex/duoplex/container"
	"github.com/duoplex/duoplex/mask"
	"github.com/duoplex/duoplex/paillier"
	"github.com/pkg/errors"
)

var (
	stream0Info = []byte("stream0")
	stream1Info = []byte("stream1")
)

// Encrypt builds a dual-plaintext container: a single
// wire artifact that decrypts to plaintextA under one routing key and
// to plaintextB under another, with no field in the container that
// statically reveals which key maps to which plaintext. It returns the
// freshly acquired private key so a ModeKeypair caller can share it
// with recipients out of band; in ModePassphrase the returned key is
// also reproducible from the passphrase alone via Decrypt.
func Encrypt(ctx context.Context, cfg Config, plaintextA, plaintextB []byte, opts EncryptOptions) ([]byte, *paillier.PrivateKey, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	var salt [16]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, nil, errors.Wrap(err, "duoplex: sampling salt")
	}

	pk, sk, flags, err := acquireKeypair(ctx, cfg, opts, salt)
	if err != nil {
		return nil, nil, err
	}

	b, err := codec.ChunkSize(pk.N)
	if err != nil {
		return nil, nil, err
	}

	padded, err := equalizeLength(plaintextA, plaintextB)
	if err != nil {
		return nil, nil, err
	}

	chunks0, err := encodeStream(padded.a, padded.origLenA, b)
	if err != nil {
		return nil, nil, errors.Wrap(err, "duoplex: encoding plaintext A")
	}
	chunks1, err := encodeStream(padded.b, padded.origLenB, b)
	if err != nil {
		return nil, nil, errors.Wrap(err, "duoplex: encoding plaintext B")
	}

	enc0, err := mapChunks(chunks0, cfg.Workers, func(m *big.Int) (*big.Int, error) {
		return paillier.EncryptRandom(pk, m, nil)
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "duoplex: encrypting stream 0")
	}
	enc1, err := mapChunks(chunks1, cfg.Workers, func(m *big.Int) (*big.Int, error) {
		return paillier.EncryptRandom(pk, m, nil)
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "duoplex: encrypting stream 1")
	}

	seed0, err := subSeed(salt[:], stream0Info, 32)
	if err != nil {
		return nil, nil, err
	}
	seed1, err := subSeed(salt[:], stream1Info, 32)
	if err != nil {
		return nil, nil, err
	}
	var seedArr0, seedArr1 [32]byte
	copy(seedArr0[:], seed0)
	copy(seedArr1[:], seed1)

	m0, err := mask.Derive(seedArr0, pk.N)
	if err != nil {
		return nil, nil, err
	}
	m1, err := mask.Derive(seedArr1, pk.N)
	if err != nil {
		return nil, nil, err
	}

	masked0, err := mask.ApplyBatch(pk, enc0, m0)
	if err != nil {
		return nil, nil, err
	}
	masked1, err := mask.ApplyBatch(pk, enc1, m1)
	if err != nil {
		return nil, nil, err
	}

	c := &container.Container{
		Flags:       flags,
		ChunkSize:   uint16(b),
		StreamCount: uint32(len(masked0)),
		N:           pk.N,
		G:           pk.G,
		Salt:        salt,
		Stream0:     masked0,
		Stream1:     masked1,
		Mask0:       container.MaskRecord{K: m0.K, A: m0.A, Seed: m0.Seed},
		Mask1:       container.MaskRecord{K: m1.K, A: m1.A, Seed: m1.Seed},
	}

	raw, err := c.Marshal()
	if err != nil {
		return nil, nil, err
	}

	return raw, sk, nil
}

type equalized struct {
	a, b               []byte
	origLenA, origLenB int
}

// equalizeLength pads the shorter of a, b with random bytes so both
// inputs to codec.Encode are the same length, which in turn forces both
// streams to contain the same chunk count: a container whose two
// streams differ in length would itself reveal which routing key maps
// to the longer plaintext.
func equalizeLength(a, b []byte) (equalized, error) {
	out := equalized{origLenA: len(a), origLenB: len(b)}
	target := len(a)
	if len(b) > target {
		target = len(b)
	}
	var err error
	if out.a, err = padRandom(a, target); err != nil {
		return equalized{}, err
	}
	if out.b, err = padRandom(b, target); err != nil {
		return equalized{}, err
	}
	return out, nil
}

func padRandom(payload []byte, target int) ([]byte, error) {
	if len(payload) >= target {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}
	out := make([]byte, target)
	copy(out, payload)
	if _, err := io.ReadFull(rand.Reader, out[len(payload):]); err != nil {
		return nil, errors.Wrap(err, "duoplex: padding plaintext")
	}
	return out, nil
}

// encodeStream prepends a single length-prefix chunk carrying origLen so
// Decrypt can recover the true payload length even though both streams
// were padded to the same length.
func encodeStream(payload []byte, origLen, b int) ([]*big.Int, error) {
	chunks, _, err := codec.Encode(payload, b, nil)
	if err != nil {
		return nil, err
	}
	lengthChunk := big.NewInt(int64(origLen))
	return append([]*big.Int{lengthChunk}, chunks...), nil
}
