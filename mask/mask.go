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

// Package mask implements the homomorphic mask layer: a linear
// transform x -> k*x + a mod n applied to a Paillier ciphertext without
// decrypting it, and its inverse. Mask.Kind is a closed enum rather than
// an open type hierarchy: a design this one descends from once grew a
// second "advanced" polynomial mask as an open subclass and got its
// homomorphism wrong (squaring a Paillier ciphertext is not additively
// homomorphic). Keeping Kind closed and switching on it exhaustively
// means a future variant must be handled at every call site instead of
// being silently inherited.
package mask

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/duoplex/duoplex/bigint"
	"github.com/duoplex/duoplex/paillier"
	"github.com/pkg/errors"
)

// Kind identifies a mask variant. Linear is the only member the core
// implements; see the package doc for why it stays that way.
type Kind int

const (
	// Linear is the mask x -> k*x + a mod n.
	Linear Kind = iota
)

var (
	// ErrDerivationFailed is returned in the vanishingly unlikely event
	// that no coprime k is found within the bounded search Derive
	// performs.
	ErrDerivationFailed = errors.New("mask: could not derive a coprime multiplicative factor")
	// ErrUnsupportedKind is returned when a Mask carries a Kind no call
	// site knows how to apply or remove.
	ErrUnsupportedKind = errors.New("mask: unsupported mask kind")
)

const maxKAdjustIterations = 4

// Mask is M = (k, a, seed): the multiplicative factor k, the additive
// offset a, and the 32-byte seed both were derived from. Storing all
// three is redundant (k, a are fully determined by seed and n) but
// required for the verification check in the container format.
type Mask struct {
	Kind Kind
	K    *big.Int
	A    *big.Int
	Seed [32]byte
}

// Derive computes (k, a) from a 32-byte seed and public modulus n:
//
//  1. h1 = H(seed‖0x00), h2 = H(seed‖0x01), each counter-mode expanded
//     to at least bitlen(n)+128 bits so the mod-n reduction in step 2/3
//     below does not bias toward small values.
//  2. a = int(h1) mod n.
//  3. k = (int(h2) mod (n-1)) + 1, incremented until coprime with n
//     (bounded to 4 iterations).
func Derive(seed [32]byte, n *big.Int) (*Mask, error) {
	bits := n.BitLen() + 128
	h1 := expand(seed[:], 0x00, bits)
	h2 := expand(seed[:], 0x01, bits)

	a := new(big.Int).Mod(new(big.Int).SetBytes(h1), n)

	nMinusOne := new(big.Int).Sub(n, big.NewInt(1))
	k := new(big.Int).Mod(new(big.Int).SetBytes(h2), nMinusOne)
	k.Add(k, big.NewInt(1))

	one := big.NewInt(1)
	for i := 0; i < maxKAdjustIterations; i++ {
		if bigint.GCD(k, n).Cmp(one) == 0 {
			return &Mask{Kind: Linear, K: k, A: a, Seed: seed}, nil
		}
		k.Add(k, one)
	}
	if bigint.GCD(k, n).Cmp(one) == 0 {
		return &Mask{Kind: Linear, K: k, A: a, Seed: seed}, nil
	}

	return nil, ErrDerivationFailed
}

// expand extends H(seed || tag) via counter-mode SHA-256 blocks until at
// least neededBits bits of output are available.
func expand(seed []byte, tag byte, neededBits int) []byte {
	neededBytes := (neededBits + 7) / 8
	out := make([]byte, 0, neededBytes+sha256.Size)

	var counter uint32
	for len(out) < neededBytes {
		h := sha256.New()
		h.Write(seed)
		h.Write([]byte{tag})
		var cb [4]byte
		binary.BigEndian.PutUint32(cb[:], counter)
		h.Write(cb[:])
		out = append(out, h.Sum(nil)...)
		counter++
	}

	return out[:neededBytes]
}

// Apply transforms a ciphertext of m into a ciphertext of m*k + a mod n,
// without decrypting.
func Apply(pk *paillier.PublicKey, c *big.Int, m *Mask) (*big.Int, error) {
	switch m.Kind {
	case Linear:
		scaled, err := paillier.MulConst(pk, c, m.K)
		if err != nil {
			return nil, errors.Wrap(err, "mask: apply mul_const")
		}
		shifted, err := paillier.AddConst(pk, scaled, m.A)
		if err != nil {
			return nil, errors.Wrap(err, "mask: apply add_const")
		}
		return shifted, nil
	default:
		return nil, ErrUnsupportedKind
	}
}

// Remove inverts Apply: given a ciphertext of m*k + a, it returns a
// ciphertext of m.
func Remove(pk *paillier.PublicKey, c *big.Int, m *Mask) (*big.Int, error) {
	switch m.Kind {
	case Linear:
		negA := new(big.Int).Neg(m.A)
		negA.Mod(negA, pk.N)
		shifted, err := paillier.AddConst(pk, c, negA)
		if err != nil {
			return nil, errors.Wrap(err, "mask: remove add_const")
		}
		kInv, err := bigint.ModInverse(m.K, pk.N)
		if err != nil {
			return nil, errors.Wrap(err, "mask: inverting k")
		}
		unscaled, err := paillier.MulConst(pk, shifted, kInv)
		if err != nil {
			return nil, errors.Wrap(err, "mask: remove mul_const")
		}
		return unscaled, nil
	default:
		return nil, ErrUnsupportedKind
	}
}

// ApplyBatch applies m to every ciphertext in cs, preserving order.
func ApplyBatch(pk *paillier.PublicKey, cs []*big.Int, m *Mask) ([]*big.Int, error) {
	out := make([]*big.Int, len(cs))
	for i, c := range cs {
		masked, err := Apply(pk, c, m)
		if err != nil {
			return nil, errors.Wrapf(err, "mask: apply batch index %d", i)
		}
		out[i] = masked
	}
	return out, nil
}

// RemoveBatch inverts ApplyBatch, preserving order.
func RemoveBatch(pk *paillier.PublicKey, cs []*big.Int, m *Mask) ([]*big.Int, error) {
	out := make([]*big.Int, len(cs))
	for i, c := range cs {
		unmasked, err := Remove(pk, c, m)
		if err != nil {
			return nil, errors.Wrapf(err, "mask: remove batch index %d", i)
		}
		out[i] = unmasked
	}
	return out, nil
}
