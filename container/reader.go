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

package container

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// reader is a minimal bounds-checked cursor over the wire format; every
// method returns an error instead of panicking on truncated input.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

var errTruncated = errors.New("container: truncated field")

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) fixed(dst []byte) error {
	b, err := r.take(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

func (r *reader) lenPrefixedInt() (*big.Int, error) {
	n, err := r.uint16()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (r *reader) stream(count uint32) ([]*big.Int, error) {
	declared, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if declared != count {
		return nil, errors.New("container: stream count prefix mismatch")
	}

	out := make([]*big.Int, declared)
	for i := range out {
		v, err := r.lenPrefixedInt()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *reader) mask() (MaskRecord, error) {
	k, err := r.lenPrefixedInt()
	if err != nil {
		return MaskRecord{}, err
	}
	a, err := r.lenPrefixedInt()
	if err != nil {
		return MaskRecord{}, err
	}
	var seed [seedSize]byte
	if err := r.fixed(seed[:]); err != nil {
		return MaskRecord{}, err
	}
	return MaskRecord{K: k, A: a, Seed: seed}, nil
}

// exhausted reports whether exactly tagBytes bytes remain unread, i.e.
// the reader has consumed the whole body and only the trailing tag is
// left in the original slice.
func (r *reader) exhausted(tagBytes int) bool {
	return len(r.buf)-r.pos == tagBytes
}
