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

package router_test

import (
	"crypto/rand"
	"testing"

	"github.com/duoplex/duoplex/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteIsDeterministic(t *testing.T) {
	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)

	label1 := router.Route(key, salt)
	label2 := router.Route(key, salt)
	assert.Equal(t, label1, label2)
}

func TestRouteLabelIsBinary(t *testing.T) {
	salt := make([]byte, 16)
	key := make([]byte, 32)
	_, _ = rand.Read(salt)
	_, _ = rand.Read(key)

	label := router.Route(key, salt)
	assert.True(t, label == 0 || label == 1)
}

func TestRouteBalance(t *testing.T) {
	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	const trials = 10000
	zeros := 0
	for i := 0; i < trials; i++ {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)
		if router.Route(key, salt) == 0 {
			zeros++
		}
	}

	frac := float64(zeros) / float64(trials)
	assert.InDelta(t, 0.5, frac, 0.02, "label balance should be within 2%% of 0.5")
}

func TestRouteTwoKeysCanDisagree(t *testing.T) {
	salt := make([]byte, 16)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	// search a small pool of random keys for one of each label; with
	// balanced routing this terminates quickly with overwhelming
	// probability.
	var sawZero, sawOne bool
	for i := 0; i < 1000 && !(sawZero && sawOne); i++ {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)
		if router.Route(key, salt) == 0 {
			sawZero = true
		} else {
			sawOne = true
		}
	}
	assert.True(t, sawZero && sawOne, "expected to observe both labels")
}
