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
	"context"
	"crypto/sha256"
	"io"
	"math/big"

	"github.com/duoplex/duoplex/container"
	"github.com/duoplex/duoplex/paillier"
	"github.com/duoplex/duoplex/primegen"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// skDeriveInfo distinguishes the sub-seed used to derive the private key
// in passphrase mode from the sub-seeds used for the two stream masks
// (subSeed(salt, "stream0"/"stream1")), all drawn from the same salt.
var skDeriveInfo = []byte("sk-derive")

// subSeed derives an n-byte sub-seed from salt via HKDF-Expand(salt,
// tag, n): salt plays the role of the already-extracted pseudorandom
// key, tag is the HKDF info parameter, so a single salt yields several
// independent sub-seeds (one per tag) without needing to store them.
func subSeed(salt []byte, tag []byte, n int) ([]byte, error) {
	h := hkdf.Expand(sha256.New, salt, tag)
	out := make([]byte, n)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, errors.Wrap(err, "duoplex: expanding sub-seed")
	}
	return out, nil
}

// EncryptOptions selects how Encrypt establishes the Paillier keypair a
// container is built on.
type EncryptOptions struct {
	Mode Mode
	// Passphrase is required when Mode == ModePassphrase.
	Passphrase []byte
	// PublicKey/PrivateKey are used when Mode == ModeKeypair. If both
	// are nil, Encrypt generates a fresh keypair using Config.Bits. If
	// both are set, they are used as-is (the caller's own keypair).
	PublicKey  *paillier.PublicKey
	PrivateKey *paillier.PrivateKey
}

// acquireKeypair resolves the Paillier keypair a container is built on:
// either derived deterministically from a passphrase, or supplied (or
// freshly generated) as an explicit keypair. It returns the keypair and
// the container flags word recording which mode produced it.
func acquireKeypair(ctx context.Context, cfg Config, opts EncryptOptions, salt [16]byte) (*paillier.PublicKey, *paillier.PrivateKey, uint32, error) {
	switch opts.Mode {
	case ModePassphrase:
		if len(opts.Passphrase) == 0 {
			return nil, nil, 0, errors.Wrap(ErrInvalidArgument, "passphrase mode requires a non-empty passphrase")
		}
		sub, err := subSeed(salt[:], skDeriveInfo, 32)
		if err != nil {
			return nil, nil, 0, err
		}
		pk, sk, err := primegen.DeriveKeypair(opts.Passphrase, sub, cfg.Bits)
		if err != nil {
			return nil, nil, 0, err
		}
		return pk, sk, container.FlagPassphraseDerived, nil

	case ModeKeypair:
		if opts.PublicKey != nil && opts.PrivateKey != nil {
			return opts.PublicKey, opts.PrivateKey, 0, nil
		}
		pk, sk, err := primegen.GenerateKeypair(ctx, cfg.Bits, nil)
		if err != nil {
			return nil, nil, 0, err
		}
		return pk, sk, 0, nil

	default:
		return nil, nil, 0, errors.Wrapf(ErrInvalidArgument, "unknown mode %d", opts.Mode)
	}
}

// DecryptOptions supplies whichever secret material Decrypt's key
// acquisition needs beyond the routing key itself.
type DecryptOptions struct {
	// PrivateKey is required when the container was produced in
	// ModeKeypair; it is never derived from the routing key in that
	// mode; it must be shared out of band by the producer.
	PrivateKey *paillier.PrivateKey
	// Bits is required when the container was produced in
	// ModePassphrase: the same Config.Bits value Encrypt used, needed
	// to re-run DeriveKeypair identically.
	Bits int
	// Workers bounds per-chunk decryption concurrency, mirroring
	// Config.Workers. 0 or 1 run sequentially.
	Workers int
}

// resolveSK recovers the private key Decrypt needs to open the routed
// stream. It never falls back from one mode to the other: the
// container's own flags say which mode produced it, matching what
// Encrypt recorded.
//
// The returned bool reports whether the recovered key's modulus
// actually matches the container's; resolveSK itself never branches on
// that comparison, so a wrong key still comes back with a usable (if
// useless) private key and Decrypt can run every remaining step on it
// before deciding anything. The error return is reserved for caller
// misuse — an option Decrypt's contract requires that was never
// supplied — which is safe to surface immediately since it carries no
// information about the key being guessed.
func resolveSK(c *container.Container, key []byte, opts DecryptOptions) (*paillier.PrivateKey, bool, error) {
	if c.Flags&container.FlagPassphraseDerived != 0 {
		if opts.Bits == 0 {
			return nil, false, errors.Wrap(ErrInvalidArgument, "passphrase-derived container requires DecryptOptions.Bits")
		}
		sub, err := subSeed(c.Salt[:], skDeriveInfo, 32)
		if err != nil {
			return nil, false, err
		}
		_, sk, err := primegen.DeriveKeypair(key, sub, opts.Bits)
		if err != nil {
			return nil, false, err
		}
		return sk, sameModulus(sk.PublicKey.N, c.N), nil
	}

	if opts.PrivateKey == nil {
		return nil, false, errors.Wrap(ErrInvalidArgument, "keypair-mode container requires DecryptOptions.PrivateKey")
	}
	return opts.PrivateKey, sameModulus(opts.PrivateKey.PublicKey.N, c.N), nil
}

func sameModulus(a, b *big.Int) bool {
	return a.Cmp(b) == 0
}
