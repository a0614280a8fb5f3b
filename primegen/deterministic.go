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

import (
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/salsa20"
)

// derivePRFKey turns a passphrase and salt into a 32-byte salsa20 key via
// HKDF-SHA256 (extract, then expand). duoplex's own sub-seeding uses
// only the HKDF-Expand step, with the salt as the pseudorandom key.
func derivePRFKey(passphrase, salt []byte) (*[32]byte, error) {
	h := hkdf.New(sha256.New, passphrase, salt, []byte("duoplex-keygen-prf"))
	var key [32]byte
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, errors.Wrap(err, "primegen: deriving PRF key")
	}
	return &key, nil
}

// deterministicReader is an io.Reader producing the same byte sequence
// every time for a given key: a salsa20 keystream under a fixed
// all-zero nonce, re-derived over a growing zero-input buffer so that
// repeated Read calls continue the same stream rather than restarting
// it. Earlier deterministic big.Int sampling in this codebase ran
// XORKeyStream once over a zero-filled input sized for a single value
// under a fixed key and nonce; deterministicReader generalises that
// one-shot pattern into a resumable stream for an unbounded rejection
// loop.
type deterministicReader struct {
	key      *[32]byte
	consumed int
}

func newDeterministicReader(key *[32]byte) *deterministicReader {
	return &deterministicReader{key: key}
}

var zeroNonce = make([]byte, 8)

func (d *deterministicReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	need := d.consumed + len(p)
	in := make([]byte, need)
	out := make([]byte, need)
	salsa20.XORKeyStream(out, in, zeroNonce, d.key)

	n := copy(p, out[d.consumed:need])
	d.consumed += n
	return n, nil
}
