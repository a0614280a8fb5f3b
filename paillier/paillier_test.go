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

package paillier_test

import (
	"math/big"
	"testing"

	"github.com/duoplex/duoplex/paillier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// small, fixed prime pair for fast arithmetic tests. These are not safe
// primes (Paillier correctness does not need them), just distinct
// 74-bit primes.
var (
	testP, _ = new(big.Int).SetString("16357897499336320658701", 10)
	testQ, _ = new(big.Int).SetString("13842607235828485645327", 10)
)

func testKeypair(t *testing.T) (*paillier.PublicKey, *paillier.PrivateKey) {
	t.Helper()
	pk, sk, err := paillier.NewPrivateKey(testP, testQ)
	require.NoError(t, err)
	return pk, sk
}

func TestEncryptDecryptCorrectness(t *testing.T) {
	pk, sk := testKeypair(t)

	m := big.NewInt(424242)
	r := big.NewInt(7) // small, but coprime with n for this test's n

	c, err := paillier.Encrypt(pk, m, r)
	require.NoError(t, err)

	got, err := paillier.Decrypt(sk, c)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestEncryptRandomRoundTrip(t *testing.T) {
	pk, sk := testKeypair(t)
	m := big.NewInt(123456789)

	c, err := paillier.EncryptRandom(pk, m, nil)
	require.NoError(t, err)

	got, err := paillier.Decrypt(sk, c)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestAdditiveHomomorphism(t *testing.T) {
	pk, sk := testKeypair(t)
	m1 := big.NewInt(111)
	m2 := big.NewInt(222)

	c1, err := paillier.EncryptRandom(pk, m1, nil)
	require.NoError(t, err)
	c2, err := paillier.EncryptRandom(pk, m2, nil)
	require.NoError(t, err)

	sum, err := paillier.Add(pk, c1, c2)
	require.NoError(t, err)

	got, err := paillier.Decrypt(sk, sum)
	require.NoError(t, err)

	want := new(big.Int).Add(m1, m2)
	want.Mod(want, pk.N)
	assert.Equal(t, want, got)
}

func TestScalarHomomorphism(t *testing.T) {
	pk, sk := testKeypair(t)
	m := big.NewInt(77)
	k := big.NewInt(5)
	a := big.NewInt(13)

	c, err := paillier.EncryptRandom(pk, m, nil)
	require.NoError(t, err)

	c, err = paillier.MulConst(pk, c, k)
	require.NoError(t, err)
	c, err = paillier.AddConst(pk, c, a)
	require.NoError(t, err)

	got, err := paillier.Decrypt(sk, c)
	require.NoError(t, err)

	want := new(big.Int).Mul(m, k)
	want.Add(want, a)
	want.Mod(want, pk.N)
	assert.Equal(t, want, got)
}

func TestEncryptInvalidArgument(t *testing.T) {
	pk, _ := testKeypair(t)

	_, err := paillier.Encrypt(pk, pk.N, big.NewInt(1))
	assert.ErrorIs(t, err, paillier.ErrInvalidArgument)

	_, err = paillier.Encrypt(pk, big.NewInt(-1), big.NewInt(1))
	assert.ErrorIs(t, err, paillier.ErrInvalidArgument)
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	pk, sk := testKeypair(t)

	_, err := paillier.Decrypt(sk, big.NewInt(0))
	assert.ErrorIs(t, err, paillier.ErrInvalidCiphertext)

	_, err = paillier.Decrypt(sk, new(big.Int).Set(pk.NSquare))
	assert.ErrorIs(t, err, paillier.ErrInvalidCiphertext)
}

func TestPrivateKeyZeroize(t *testing.T) {
	_, sk := testKeypair(t)
	sk.Zeroize()
	assert.Equal(t, int64(0), sk.Lambda.Int64())
	assert.Equal(t, int64(0), sk.Mu.Int64())
}
