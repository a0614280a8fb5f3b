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

// Package duoplex is the orchestrator: it composes bigint, primegen,
// paillier, mask, codec, router, and container into the two public
// operations callers actually use, Encrypt and Decrypt. No global
// configuration or singletons are used anywhere in the package; every
// tunable is threaded explicitly through a Config value, the same
// shape a scheme's knobs are grouped into elsewhere in this codebase
// (paillier.PublicKey/PrivateKey, primegen's explicit bits argument).
package duoplex

import "github.com/pkg/errors"

// Mode selects how the Paillier keypair backing a container is
// established.
type Mode int

const (
	// ModeKeypair uses an explicit (or freshly generated) keypair; the
	// private key is never stored in the container and must be shared
	// with decrypting recipients out of band.
	ModeKeypair Mode = iota
	// ModePassphrase derives the keypair deterministically from a
	// passphrase via primegen.DeriveKeypair, so any recipient who knows
	// the passphrase can reconstruct the private key themselves.
	ModePassphrase
)

// ErrInvalidArgument is returned when Config or the Encrypt/Decrypt
// options are missing a field their mode requires.
var ErrInvalidArgument = errors.New("duoplex: argument out of range")

// ErrKeyMismatch is returned when the supplied key (and, in keypair
// mode, private key) does not match the container: wrong passphrase,
// wrong externally-supplied private key, or a corrupted stream that
// decrypts to an implausible length prefix. The three causes are
// deliberately folded into one error and computed after every
// intermediate step has run to completion, so a caller cannot infer
// which check failed from timing or error identity.
var ErrKeyMismatch = errors.New("duoplex: key does not match container")

// Config carries the tunables GenerateKeypair/DeriveKeypair and the
// per-chunk worker pool need. There is no default global state; callers
// construct a Config explicitly for every Encrypt call, and Decrypt in
// passphrase mode must be given, through DecryptOptions.Bits, the same
// Bits that Encrypt used (the wire format does not carry the original bit length
// separately from n's byte length, which is not always exactly
// recoverable from n alone — see DESIGN.md's Open Question on this).
type Config struct {
	// Bits is the total Paillier modulus bit length (p and q are each
	// Bits/2 bits). Must be even and >= 16; demonstration-grade sizes
	// (512-1024) are expected — production-grade key sizes and
	// side-channel-hardened arithmetic are out of scope for this module.
	Bits int
	// Workers bounds how many chunks are encrypted concurrently by the
	// per-chunk Paillier encryption in Encrypt. 0 or 1 run sequentially.
	// Mask application always runs sequentially.
	Workers int
}

// DefaultConfig returns a demonstration-grade configuration: a 1024-bit
// modulus and sequential (unparallelized) chunk processing.
func DefaultConfig() Config {
	return Config{Bits: 1024, Workers: 0}
}

func (c Config) validate() error {
	if c.Bits < 16 || c.Bits%2 != 0 {
		return errors.Wrapf(ErrInvalidArgument, "Bits must be even and >= 16, got %d", c.Bits)
	}
	return nil
}
