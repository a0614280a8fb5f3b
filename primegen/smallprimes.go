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

package primegen

// smallPrimes lists the primes below 2000, used to sieve out obviously
// composite candidates before paying for a Miller-Rabin pass.
var smallPrimes = sieveBelow(2000)

func sieveBelow(limit int) []uint32 {
	composite := make([]bool, limit)
	var primes []uint32
	for n := 2; n < limit; n++ {
		if composite[n] {
			continue
		}
		primes = append(primes, uint32(n))
		for m := n * n; m < limit; m += n {
			composite[m] = true
		}
	}
	return primes
}
