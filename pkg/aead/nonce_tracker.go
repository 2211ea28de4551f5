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

package aead

import (
	"encoding/hex"
	"errors"
	"sync"
)

// ErrNonceReuse is returned by NonceTracker when a nonce is seen twice
// under the same key. Reusing a nonce with ChaCha20 reuses the
// keystream and reveals the XOR of the two plaintexts; if this error
// ever fires outside of tests the key should be rotated immediately.
//
// This error is deliberately distinct from types.ErrCryptoFailure: the
// tracker is caller-side misuse detection, not a cryptographic
// operation, and the caller needs to know exactly what went wrong.
var ErrNonceReuse = errors.New("aead: nonce reuse detected")

// NonceTracker records nonces used with a single key and rejects
// repeats. Seal never needs it, since its nonces are random 24-byte
// values, but callers driving the lower-level chacha20poly1305 or
// xchacha20poly1305 packages with their own nonce scheme can use a
// tracker as a safety net during development and testing.
//
// Memory grows by one entry per recorded nonce, so this is not meant to
// run unbounded in production; rotate the key (and the tracker) instead.
type NonceTracker struct {
	mu     sync.Mutex
	nonces map[string]struct{}
}

// NewNonceTracker returns an empty tracker.
func NewNonceTracker() *NonceTracker {
	return &NonceTracker{nonces: make(map[string]struct{})}
}

// Record checks nonce against everything seen so far and records it.
// Safe for concurrent use.
func (t *NonceTracker) Record(nonce []byte) error {
	k := hex.EncodeToString(nonce)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.nonces[k]; seen {
		return ErrNonceReuse
	}
	t.nonces[k] = struct{}{}
	return nil
}

// Len reports the number of recorded nonces.
func (t *NonceTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nonces)
}
