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

// Package paillier implements the additively-homomorphic Paillier
// cryptosystem with g = n+1 (the standard simplification), plus the
// scalar homomorphic operations (Add, AddConst, MulConst) the mask layer
// composes over.
//
// This is grounded on the encryption/decryption equations of
// innerprod/fullysec.Paillier, re-cut here for single-message
// encryption instead of vector inner-product evaluation.
package paillier

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/duoplex/duoplex/bigint"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned when a public argument falls outside
	// its documented range, e.g. a plaintext m >= n.
	ErrInvalidArgument = errors.New("paillier: argument out of range")
	// ErrInvalidCiphertext is returned by Decrypt when c is not a member
	// of Z_n^2*.
	ErrInvalidCiphertext = errors.New("paillier: ciphertext out of range")
)

// PublicKey is PK = (n, g) with g = n+1.
type PublicKey struct {
	N       *big.Int
	NSquare *big.Int
	G       *big.Int
}

// NewPublicKey builds a PublicKey from n, precomputing n^2 and g = n+1.
func NewPublicKey(n *big.Int) *PublicKey {
	nSquare := new(big.Int).Mul(n, n)
	g := new(big.Int).Add(n, big.NewInt(1))
	return &PublicKey{N: n, NSquare: nSquare, G: g}
}

// PrivateKey is SK = (lambda, mu), bound to exactly one PublicKey.
type PrivateKey struct {
	PublicKey *PublicKey
	Lambda    *big.Int
	Mu        *big.Int
}

// NewPrivateKey builds a PrivateKey from the two distinct primes p, q,
// computing n, g, lambda = lcm(p-1,q-1), and mu = lambda^-1 mod n.
func NewPrivateKey(p, q *big.Int) (*PublicKey, *PrivateKey, error) {
	n := new(big.Int).Mul(p, q)
	pk := NewPublicKey(n)

	one := big.NewInt(1)
	pMinusOne := new(big.Int).Sub(p, one)
	qMinusOne := new(big.Int).Sub(q, one)
	lambda := bigint.LCM(pMinusOne, qMinusOne)

	mu, err := bigint.ModInverse(lambda, n)
	if err != nil {
		return nil, nil, errors.Wrap(err, "paillier: computing mu")
	}

	return pk, &PrivateKey{PublicKey: pk, Lambda: lambda, Mu: mu}, nil
}

// Zeroize overwrites the private exponents so they do not linger in
// memory once the key is no longer needed. The caller is responsible for
// invoking it; the core never calls it implicitly.
func (sk *PrivateKey) Zeroize() {
	for _, x := range []*big.Int{sk.Lambda, sk.Mu} {
		if x == nil {
			continue
		}
		words := x.Bits()
		for i := range words {
			words[i] = 0
		}
		x.SetInt64(0)
	}
}

// Encrypt returns c = g^m * r^n mod n^2 = (1 + m*n) * r^n mod n^2, for
// caller-supplied randomness r. Explicit r is exposed so callers (and
// tests) can reproduce a ciphertext deterministically.
func Encrypt(pk *PublicKey, m, r *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pk.N) >= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "m must satisfy 0 <= m < n")
	}
	if r.Sign() <= 0 || bigint.GCD(r, pk.N).Cmp(big.NewInt(1)) != 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "r must be in Z_n*")
	}

	t1 := new(big.Int).Mul(m, pk.N)
	t1.Add(t1, big.NewInt(1))
	t2 := new(big.Int).Exp(r, pk.N, pk.NSquare)
	c := t1.Mul(t1, t2)
	c.Mod(c, pk.NSquare)

	return c, nil
}

// EncryptRandom encrypts m under freshly sampled randomness r, drawn
// uniformly from [1, n) and rejected until coprime with n.
func EncryptRandom(pk *PublicKey, m *big.Int, rng io.Reader) (*big.Int, error) {
	if rng == nil {
		rng = rand.Reader
	}
	for {
		r, err := rand.Int(rng, pk.N)
		if err != nil {
			return nil, errors.Wrap(err, "paillier: sampling r")
		}
		if r.Sign() == 0 {
			continue
		}
		if bigint.GCD(r, pk.N).Cmp(big.NewInt(1)) != 0 {
			continue
		}
		return Encrypt(pk, m, r)
	}
}

// l is the L function from the Paillier decryption equation:
// L(u) = (u - 1) / n, exact integer division.
func l(u, n *big.Int) *big.Int {
	t := new(big.Int).Sub(u, big.NewInt(1))
	return t.Div(t, n)
}

// Decrypt returns m = L(c^lambda mod n^2) * mu mod n.
func Decrypt(sk *PrivateKey, c *big.Int) (*big.Int, error) {
	n := sk.PublicKey.N
	nSquare := sk.PublicKey.NSquare

	if c.Sign() <= 0 || c.Cmp(nSquare) >= 0 {
		return nil, errors.Wrapf(ErrInvalidCiphertext, "c must satisfy 0 < c < n^2")
	}
	if bigint.GCD(c, n).Cmp(big.NewInt(1)) != 0 {
		return nil, errors.Wrapf(ErrInvalidCiphertext, "c must be coprime with n")
	}

	u := new(big.Int).Exp(c, sk.Lambda, nSquare)
	m := l(u, n)
	m.Mul(m, sk.Mu)
	m.Mod(m, n)

	return m, nil
}

// Add returns c1 * c2 mod n^2, so that Dec(Add(Enc(m1), Enc(m2))) =
// (m1 + m2) mod n.
func Add(pk *PublicKey, c1, c2 *big.Int) (*big.Int, error) {
	if err := checkCiphertextRange(pk, c1); err != nil {
		return nil, err
	}
	if err := checkCiphertextRange(pk, c2); err != nil {
		return nil, err
	}
	c := new(big.Int).Mul(c1, c2)
	c.Mod(c, pk.NSquare)
	return c, nil
}

// AddConst returns c * g^a mod n^2 = c * (1 + a*n) mod n^2, so that
// Dec(AddConst(Enc(m), a)) = (m + a) mod n. a may be negative;
// bigint.ModExp handles that.
func AddConst(pk *PublicKey, c, a *big.Int) (*big.Int, error) {
	if err := checkCiphertextRange(pk, c); err != nil {
		return nil, err
	}
	ga := bigint.ModExp(pk.G, a, pk.NSquare)
	out := new(big.Int).Mul(c, ga)
	out.Mod(out, pk.NSquare)
	return out, nil
}

// MulConst returns c^k mod n^2, so that Dec(MulConst(Enc(m), k)) =
// (m * k) mod n. k may be negative; bigint.ModExp handles that.
// mask.Remove passes the already-inverted k^-1 mod n, a positive value.
func MulConst(pk *PublicKey, c, k *big.Int) (*big.Int, error) {
	if err := checkCiphertextRange(pk, c); err != nil {
		return nil, err
	}
	return bigint.ModExp(c, k, pk.NSquare), nil
}

func checkCiphertextRange(pk *PublicKey, c *big.Int) error {
	if c.Sign() <= 0 || c.Cmp(pk.NSquare) >= 0 {
		return errors.Wrapf(ErrInvalidCiphertext, "c must satisfy 0 < c < n^2")
	}
	return nil
}
