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

// Package xchacha20poly1305 implements the XChaCha20-Poly1305 AEAD: the
// RFC 8439 construction keyed through HChaCha20 so that a 24-byte
// random nonce can be used.
//
// Each call derives a per-message subkey from the first 16 nonce bytes,
// maps the remaining 8 bytes into the IETF nonce space, and delegates
// to the chacha20poly1305 package. No state is held between calls.
package xchacha20poly1305

import (
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/chacha20"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/chacha20poly1305"
	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

const (
	// KeySize is the AEAD key size in bytes.
	KeySize = chacha20.KeySize

	// NonceSize is the XChaCha20 nonce size in bytes.
	NonceSize = 24

	// TagSize is the Poly1305 tag size in bytes.
	TagSize = chacha20poly1305.TagSize
)

// subParams derives the per-message subkey and IETF nonce from a
// 24-byte XChaCha20 nonce. The caller owns zeroizing the subkey.
func subParams(key *types.SecretKey, nonce []byte) (*types.SecretKey, [chacha20.NonceSize]byte, error) {
	var ietfNonce [chacha20.NonceSize]byte
	if len(nonce) != NonceSize {
		return nil, ietfNonce, types.ErrCryptoFailure
	}
	subKey, err := chacha20.HChaCha20(key, nonce[:chacha20.HNonceSize])
	if err != nil {
		return nil, ietfNonce, err
	}
	copy(ietfNonce[4:], nonce[chacha20.HNonceSize:])
	return subKey, ietfNonce, nil
}

// Seal encrypts and authenticates plaintext under (key, nonce), writing
// ciphertext ∥ tag(16) into dst. The nonce must be 24 bytes and may be
// chosen at random; the plaintext must be non-empty.
func Seal(key *types.SecretKey, nonce, plaintext, associatedData, dst []byte) error {
	subKey, ietfNonce, err := subParams(key, nonce)
	if err != nil {
		return err
	}
	defer subKey.Zeroize()
	return chacha20poly1305.Seal(subKey, ietfNonce[:], plaintext, associatedData, dst)
}

// Open verifies and decrypts ciphertext ∥ tag(16) under (key, nonce),
// writing the plaintext into dst. On authentication failure no
// plaintext bytes are released.
func Open(key *types.SecretKey, nonce, ciphertextWithTag, associatedData, dst []byte) error {
	subKey, ietfNonce, err := subParams(key, nonce)
	if err != nil {
		return err
	}
	defer subKey.Zeroize()
	return chacha20poly1305.Open(subKey, ietfNonce[:], ciphertextWithTag, associatedData, dst)
}
