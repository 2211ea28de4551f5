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

// Package types defines the value types shared by every cipher package in
// this library: the 256-bit SecretKey and the single opaque error returned
// by all cryptographic operations.
package types

import (
	"github.com/jeremyhahn/go-secretstream/internal/mem"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/rand"
)

// SecretKeySize is the size in bytes of a SecretKey. ChaCha20, XChaCha20
// and every construction built on them use 256-bit keys.
const SecretKeySize = 32

// SecretKey holds 32 bytes of key material. The bytes are owned by the
// SecretKey and are overwritten with zeros when Zeroize is called.
//
// SecretKey deliberately implements no Equal method and must never be
// compared with reflect.DeepEqual or bytes.Equal: comparing key material
// with a short-circuiting comparison leaks timing information. There is
// no legitimate reason to compare two secret keys.
type SecretKey struct {
	data [SecretKeySize]byte
}

// NewSecretKey constructs a SecretKey from an exactly 32-byte slice.
// The bytes are copied; the caller should wipe its own copy when done.
func NewSecretKey(b []byte) (*SecretKey, error) {
	if len(b) != SecretKeySize {
		return nil, ErrCryptoFailure
	}
	k := new(SecretKey)
	copy(k.data[:], b)
	return k, nil
}

// GenerateSecretKey returns a SecretKey filled from the secure random
// source. This is the only safe way to create a fresh key.
func GenerateSecretKey() (*SecretKey, error) {
	k := new(SecretKey)
	if err := rand.Fill(k.data[:]); err != nil {
		return nil, ErrCryptoFailure
	}
	return k, nil
}

// Bytes returns the raw key material. The returned slice aliases the
// key's backing array: it must not be modified by callers other than the
// cipher packages in this module, and must not be retained past the
// lifetime of the SecretKey.
func (k *SecretKey) Bytes() []byte {
	return k.data[:]
}

// Zeroize overwrites the key material with zeros. The key is unusable
// afterwards. Callers should Zeroize every key as soon as it is no
// longer needed.
func (k *SecretKey) Zeroize() {
	mem.Wipe(k.data[:])
}
