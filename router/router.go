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

// Package router implements the key-routing predicate: given a caller
// key and a container's salt, it selects which of the two streams in a
// container that key decrypts. The selection combines several
// HMAC-derived features by XOR so no single feature decides the
// outcome, and every comparison runs through internal/consttime so
// execution time does not correlate with the resulting label.
package router

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/bits"

	"github.com/duoplex/duoplex/internal/consttime"
)

// Route maps (key, salt) to a label in {0, 1} selecting which container
// stream key decrypts:
//
//  1. H = HMAC-SHA256(salt, key).
//  2. v1, v2 are H's first two big-endian uint32 words; w is the
//     popcount of H's first 16 bytes.
//  3. f1 = (v1 ^ (v1>>4)) mod 256; f2 = (v2 ^ (v2>>2)) mod 256; f3 = w mod 2.
//  4. t = HMAC-SHA256(salt, "threshold")[0].
//  5. label = ((f1 < t) XOR (f2 >= 128) XOR f3) & 1.
func Route(key, salt []byte) int {
	h := hmacSum(salt, key)

	v1 := binary.BigEndian.Uint32(h[0:4])
	v2 := binary.BigEndian.Uint32(h[4:8])
	w := popcount(h[0:16])

	f1 := int(byte(v1 ^ (v1 >> 4)))
	f2 := int(byte(v2 ^ (v2 >> 2)))
	f3 := w % 2

	t := int(threshold(salt))

	// f1 < t  <=>  f1+1 <= t, expressed without a data-dependent branch.
	lt := consttime.LessOrEqual(f1+1, t)
	// f2 >= 128  <=>  128 <= f2.
	ge := consttime.LessOrEqual(128, f2)

	label := (lt ^ ge ^ f3) & 1
	return label
}

func hmacSum(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}

var thresholdMessage = []byte("threshold")

func threshold(salt []byte) byte {
	return hmacSum(salt, thresholdMessage)[0]
}

// popcount counts the set bits across buf without any data-dependent
// branch; math/bits.OnesCount8 is implemented as a branchless
// population-count (hardware POPCNT when available, a word-parallel
// bit-trick fallback otherwise).
func popcount(buf []byte) int {
	total := 0
	for _, b := range buf {
		total += bits.OnesCount8(b)
	}
	return total
}
