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
	"math/big"
	"sync"
)

// mapChunks applies fn to each element of in, writing results to the
// same index in the output so per-stream chunk order is preserved
// regardless of completion order. workers <= 1 runs
// sequentially with no goroutines at all, which keeps the common small
// message case (a handful of chunks) free of scheduling overhead.
func mapChunks(in []*big.Int, workers int, fn func(*big.Int) (*big.Int, error)) ([]*big.Int, error) {
	out := make([]*big.Int, len(in))

	if workers <= 1 || len(in) <= 1 {
		for i, v := range in {
			r, err := fn(v)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	errs := make([]error, len(in))

	for i, v := range in {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v *big.Int) {
			defer wg.Done()
			defer func() { <-sem }()
			r, err := fn(v)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = r
		}(i, v)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}
