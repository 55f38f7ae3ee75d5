// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/go-crypt/x/blake2b"
)

// fingerprintChunkSize bounds the read buffer so large payloads are
// never held in memory as one block during hashing.
const fingerprintChunkSize = 64 * 1024

// ContentFingerprint is the durable, content-derived identity of a
// source item, independent of its name. Two items with equal
// fingerprints are the same content regardless of filename.
type ContentFingerprint [32]byte

// String returns the lowercase hex encoding of the fingerprint.
func (f ContentFingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether the fingerprint is unset.
func (f ContentFingerprint) IsZero() bool {
	return f == ContentFingerprint{}
}

// ParseFingerprint decodes a hex fingerprint produced by String.
func ParseFingerprint(s string) (ContentFingerprint, error) {
	var fp ContentFingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}
	if len(raw) != len(fp) {
		return fp, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFingerprint, len(fp), len(raw))
	}
	copy(fp[:], raw)
	return fp, nil
}

// FingerprintReader computes the BLAKE2b-256 digest of everything
// readable from r, in fixed-size chunks.
func FingerprintReader(r io.Reader) (ContentFingerprint, error) {
	var fp ContentFingerprint

	h, err := blake2b.New(len(fp), nil)
	if err != nil {
		return fp, err
	}

	buf := make([]byte, fingerprintChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return fp, err
	}

	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// FingerprintBytes computes the fingerprint of an in-memory payload.
func FingerprintBytes(payload []byte) ContentFingerprint {
	fp, _ := FingerprintReader(bytes.NewReader(payload))
	return fp
}
