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

// Package consttime isolates the handful of constant-time primitives
// duoplex's router and container verification depend on: route
// selection and the tag and mask-record comparisons go through this
// narrow interface backed by a vetted constant-time primitive. The
// length-chunk check in duoplex's Decrypt does not use it; that check
// compares the decrypted length prefix with ordinary big.Int
// operations. It is a thin wrapper over crypto/subtle; nothing here
// branches on secret data.
package consttime

import "crypto/subtle"

// Equal reports whether a and b are equal, in time independent of where
// they first differ. Unlike bytes.Equal it does not early-exit on a
// length mismatch's content, though the length check itself is not
// secret-dependent since lengths are public here (tag size, seed size).
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// LessOrEqual returns 1 if a <= b, 0 otherwise, without branching on a
// or b.
func LessOrEqual(a, b int) int {
	return subtle.ConstantTimeLessOrEq(a, b)
}

// Select returns a if cond == 1, b if cond == 0.
func Select(cond, a, b int) int {
	return subtle.ConstantTimeSelect(cond, a, b)
}
