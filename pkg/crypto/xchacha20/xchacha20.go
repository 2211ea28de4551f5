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

// Package xchacha20 implements the XChaCha20 stream cipher: IETF
// ChaCha20 extended to a 192-bit nonce via HChaCha20.
//
// The first 16 bytes of the nonce derive a per-message subkey with
// HChaCha20; the remaining 8 bytes become the low bytes of the IETF
// nonce, with the leading 4 bytes zero (they serve as counter space for
// constructions layered on top). A 24-byte nonce is large enough to be
// generated at random for every message, which is the whole point of
// the extension.
//
// Like package chacha20 this is an unauthenticated primitive; prefer
// xchacha20poly1305 or secretstream.
package xchacha20

import (
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/chacha20"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/rand"
	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

// NonceSize is the XChaCha20 nonce size in bytes.
const NonceSize = 24

// Encrypt XORs plaintext with the XChaCha20 keystream for (key, nonce)
// starting at initialCounter and writes the result to dst. The same
// input rules as chacha20.Encrypt apply; dst may alias plaintext.
func Encrypt(key *types.SecretKey, nonce []byte, initialCounter uint32, plaintext, dst []byte) error {
	if len(nonce) != NonceSize {
		return types.ErrCryptoFailure
	}
	subKey, err := chacha20.HChaCha20(key, nonce[:chacha20.HNonceSize])
	if err != nil {
		return err
	}
	defer subKey.Zeroize()

	var ietfNonce [chacha20.NonceSize]byte
	copy(ietfNonce[4:], nonce[chacha20.HNonceSize:])
	return chacha20.Encrypt(subKey, ietfNonce[:], initialCounter, plaintext, dst)
}

// Decrypt is Encrypt, as with plain ChaCha20.
func Decrypt(key *types.SecretKey, nonce []byte, initialCounter uint32, ciphertext, dst []byte) error {
	return Encrypt(key, nonce, initialCounter, ciphertext, dst)
}

// GenerateNonce returns a fresh random 24-byte nonce.
func GenerateNonce() ([]byte, error) {
	n, err := rand.Bytes(NonceSize)
	if err != nil {
		return nil, types.ErrCryptoFailure
	}
	return n, nil
}
