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

// Package chacha20poly1305 implements the IETF ChaCha20-Poly1305 AEAD
// construction from RFC 8439 section 2.8.
//
// The one-time Poly1305 key is the first 32 bytes of keystream block 0;
// the ciphertext is produced starting at block 1. The tag authenticates
// the associated data and the ciphertext, each zero-padded to a 16-byte
// boundary, followed by their little-endian 64-bit lengths.
//
// Callers must guarantee nonce uniqueness per key at this layer. For
// random nonces use the xchacha20poly1305 package instead.
package chacha20poly1305

import (
	"crypto/subtle"
	"encoding/binary"

	"golang.org/x/crypto/poly1305"

	"github.com/jeremyhahn/go-secretstream/internal/mem"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/chacha20"
	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

const (
	// KeySize is the AEAD key size in bytes.
	KeySize = chacha20.KeySize

	// NonceSize is the IETF nonce size in bytes.
	NonceSize = chacha20.NonceSize

	// TagSize is the Poly1305 tag size in bytes.
	TagSize = poly1305.TagSize

	// oneTimeKeySize is the Poly1305 one-time key size: 32 bytes taken
	// from the front of keystream block 0, per RFC 8439 section 2.6.
	oneTimeKeySize = 32
)

// padLen returns the number of zero bytes needed to pad n up to the
// next 16-byte boundary. The wrapping subtraction keeps the computation
// free of data-dependent branches.
func padLen(n uint64) uint64 {
	return (16 - n) & 15
}

// oneTimeKey derives the per-message Poly1305 key from keystream
// block 0 of (key, nonce).
func oneTimeKey(key *types.SecretKey, nonce []byte) (*[oneTimeKeySize]byte, error) {
	block, err := chacha20.KeystreamBlock(key, nonce, 0)
	if err != nil {
		return nil, err
	}
	var otk [oneTimeKeySize]byte
	copy(otk[:], block[:oneTimeKeySize])
	mem.Wipe(block)
	return &otk, nil
}

// authTag computes the RFC 8439 tag over associatedData and ciphertext
// with the given one-time key.
func authTag(otk *[oneTimeKeySize]byte, associatedData, ciphertext []byte) [TagSize]byte {
	var zeroPad [16]byte
	var lens [8]byte

	mac := poly1305.New(otk)
	if len(associatedData) > 0 {
		mac.Write(associatedData)
	}
	mac.Write(zeroPad[:padLen(uint64(len(associatedData)))])
	mac.Write(ciphertext)
	mac.Write(zeroPad[:padLen(uint64(len(ciphertext)))])
	binary.LittleEndian.PutUint64(lens[:], uint64(len(associatedData)))
	mac.Write(lens[:])
	binary.LittleEndian.PutUint64(lens[:], uint64(len(ciphertext)))
	mac.Write(lens[:])

	var tag [TagSize]byte
	mac.Sum(tag[:0])
	return tag
}

// Seal encrypts and authenticates plaintext, writing
// ciphertext ∥ tag(16) into dst. The plaintext must be non-empty and
// dst must hold at least len(plaintext)+TagSize bytes.
func Seal(key *types.SecretKey, nonce, plaintext, associatedData, dst []byte) error {
	if len(plaintext) == 0 || len(dst) < len(plaintext)+TagSize {
		return types.ErrCryptoFailure
	}

	otk, err := oneTimeKey(key, nonce)
	if err != nil {
		return err
	}
	defer mem.Wipe(otk[:])

	// Ciphertext starts at block 1; block 0 is reserved for the
	// one-time key above.
	if err := chacha20.Encrypt(key, nonce, 1, plaintext, dst[:len(plaintext)]); err != nil {
		return err
	}

	tag := authTag(otk, associatedData, dst[:len(plaintext)])
	copy(dst[len(plaintext):], tag[:])
	return nil
}

// Open verifies and decrypts input of the form ciphertext ∥ tag(16),
// writing the plaintext into dst. The tag comparison is constant time
// and on any failure no plaintext bytes are released.
func Open(key *types.SecretKey, nonce, ciphertextWithTag, associatedData, dst []byte) error {
	if len(ciphertextWithTag) < TagSize+1 {
		return types.ErrCryptoFailure
	}
	ctLen := len(ciphertextWithTag) - TagSize
	if len(dst) < ctLen {
		return types.ErrCryptoFailure
	}
	ciphertext := ciphertextWithTag[:ctLen]
	wireTag := ciphertextWithTag[ctLen:]

	otk, err := oneTimeKey(key, nonce)
	if err != nil {
		return err
	}
	defer mem.Wipe(otk[:])

	tag := authTag(otk, associatedData, ciphertext)
	if subtle.ConstantTimeCompare(tag[:], wireTag) != 1 {
		mem.Wipe(tag[:])
		return types.ErrCryptoFailure
	}

	return chacha20.Decrypt(key, nonce, 1, ciphertext, dst[:ctLen])
}
