// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-secretstream.
//
// go-secretstream is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package rand is the secure random source used by this library. It is
// consumed in exactly two places: key generation and the random 24-byte
// nonce created on every one-shot seal.
//
// The source is the operating system CSPRNG via crypto/rand. A short
// read is treated as a failure; callers never receive a partially
// filled buffer.
package rand

import (
	"crypto/rand"
	"fmt"
)

// Fill fills dst with cryptographically secure random bytes. On error
// dst is wiped before returning and must not be used.
func Fill(dst []byte) error {
	if _, err := rand.Read(dst); err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return fmt.Errorf("rand: failed to read random source: %w", err)
	}
	return nil
}

// Bytes returns n cryptographically secure random bytes.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := Fill(b); err != nil {
		return nil, err
	}
	return b, nil
}
