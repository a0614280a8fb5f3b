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

package bigint_test

import (
	"math/big"
	"testing"

	"github.com/duoplex/duoplex/bigint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModExp(t *testing.T) {
	m := big.NewInt(101)
	g := big.NewInt(7)

	positive := bigint.ModExp(g, big.NewInt(5), m)
	assert.Equal(t, new(big.Int).Exp(g, big.NewInt(5), m), positive)

	negative := bigint.ModExp(g, big.NewInt(-5), m)
	inv := new(big.Int).ModInverse(positive, m)
	assert.Equal(t, inv, negative, "g^-x should be the modular inverse of g^x")
}

func TestModInverse(t *testing.T) {
	m := big.NewInt(1000000007)
	a := big.NewInt(123456)

	inv, err := bigint.ModInverse(a, m)
	require.NoError(t, err)

	check := new(big.Int).Mul(a, inv)
	check.Mod(check, m)
	assert.Equal(t, big.NewInt(1), check)
}

func TestModInverseNotCoprime(t *testing.T) {
	m := big.NewInt(100)
	a := big.NewInt(10)

	_, err := bigint.ModInverse(a, m)
	assert.ErrorIs(t, err, bigint.ErrNotCoprime)
}

func TestLCM(t *testing.T) {
	assert.Equal(t, big.NewInt(12), bigint.LCM(big.NewInt(4), big.NewInt(6)))
}

func TestMillerRabinKnownPrimes(t *testing.T) {
	primes := []int64{2, 3, 5, 7, 11, 104729, 1000000007}
	for _, p := range primes {
		ok, err := bigint.MillerRabin(big.NewInt(p), 40, nil)
		require.NoError(t, err)
		assert.Truef(t, ok, "%d should be reported prime", p)
	}
}

func TestMillerRabinKnownComposites(t *testing.T) {
	composites := []int64{1, 4, 6, 9, 15, 100, 1000000011}
	for _, c := range composites {
		ok, err := bigint.MillerRabin(big.NewInt(c), 40, nil)
		require.NoError(t, err)
		assert.Falsef(t, ok, "%d should be reported composite", c)
	}
}

type countingReader struct {
	calls int
}

func (c *countingReader) Read(buf []byte) (int, error) {
	c.calls++
	for i := range buf {
		buf[i] = byte(i + c.calls)
	}
	return len(buf), nil
}

func TestMillerRabinDeterministicRNG(t *testing.T) {
	rng := &countingReader{}

	ok, err := bigint.MillerRabin(big.NewInt(104729), 10, rng)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, rng.calls, 0)
}
