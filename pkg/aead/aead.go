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

// Package aead is the high-level one-shot authenticated encryption
// entry point: XChaCha20-Poly1305 with an automatically generated
// random nonce and no associated data.
//
// Seal produces nonce(24) ∥ ciphertext ∥ tag(16); Open consumes the
// same layout. Because the nonce is 24 bytes and random there is no
// counter management and no state between calls. This is the API to
// reach for when encrypting independent messages under one key. For an
// ordered sequence of related messages use the secretstream package.
package aead

import (
	"github.com/jeremyhahn/go-secretstream/internal/mem"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/rand"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/xchacha20poly1305"
	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

const (
	// NonceSize is the size of the nonce prefixed to every sealed
	// payload.
	NonceSize = xchacha20poly1305.NonceSize

	// TagSize is the size of the authentication tag appended to every
	// sealed payload.
	TagSize = xchacha20poly1305.TagSize

	// Overhead is the total size added to the plaintext by Seal.
	Overhead = NonceSize + TagSize

	// minOpenSize guarantees a non-empty plaintext is recoverable.
	minOpenSize = Overhead + 1
)

// Seal encrypts and authenticates a non-empty plaintext under key,
// returning nonce(24) ∥ ciphertext ∥ tag(16). A fresh random nonce is
// generated on every call; it is never derived from the message or a
// counter.
func Seal(key *types.SecretKey, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, types.ErrCryptoFailure
	}

	out := make([]byte, NonceSize+len(plaintext)+TagSize)
	if err := rand.Fill(out[:NonceSize]); err != nil {
		return nil, types.ErrCryptoFailure
	}

	if err := xchacha20poly1305.Seal(key, out[:NonceSize], plaintext, nil, out[NonceSize:]); err != nil {
		mem.Wipe(out)
		return nil, err
	}
	return out, nil
}

// Open authenticates and decrypts a payload produced by Seal. Inputs
// shorter than 41 bytes (nonce, tag and at least one plaintext byte)
// are rejected outright. On any failure no plaintext is returned, not
// even partially.
func Open(key *types.SecretKey, input []byte) ([]byte, error) {
	if len(input) < minOpenSize {
		return nil, types.ErrCryptoFailure
	}

	plaintext := make([]byte, len(input)-Overhead)
	if err := xchacha20poly1305.Open(key, input[:NonceSize], input[NonceSize:], nil, plaintext); err != nil {
		mem.Wipe(plaintext)
		return nil, err
	}
	return plaintext, nil
}
