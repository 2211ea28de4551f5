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

package chacha20poly1305

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xchacha "golang.org/x/crypto/chacha20"
	xaead "golang.org/x/crypto/chacha20poly1305"

	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func randomKey(t *testing.T) (*types.SecretKey, []byte) {
	t.Helper()
	b := make([]byte, KeySize)
	_, err := rand.Read(b)
	require.NoError(t, err)
	k, err := types.NewSecretKey(b)
	require.NoError(t, err)
	return k, b
}

// TestSeal_RFC8439 checks the section 2.8.2 AEAD test vector. The full
// expected output comes from the x/crypto implementation, which is
// validated against the same RFC; the tag is additionally pinned to the
// published value.
func TestSeal_RFC8439(t *testing.T) {
	keyBytes := mustHex(t, "808182838485868788898a8b8c8d8e8f909192939495969798999a9b9c9d9e9f")
	nonce := mustHex(t, "070000004041424344454647")
	aad := mustHex(t, "50515253c0c1c2c3c4c5c6c7")
	plaintext := []byte("Ladies and Gentlemen of the class of '99: If I could offer you " +
		"only one tip for the future, sunscreen would be it.")

	key, err := types.NewSecretKey(keyBytes)
	require.NoError(t, err)

	out := make([]byte, len(plaintext)+TagSize)
	require.NoError(t, Seal(key, nonce, plaintext, aad, out))

	assert.Equal(t,
		"1ae10b594f09e26a7e902ecbd0600691",
		hex.EncodeToString(out[len(plaintext):]))

	ref, err := xaead.New(keyBytes)
	require.NoError(t, err)
	assert.Equal(t, ref.Seal(nil, nonce, plaintext, aad), out)
}

// TestOneTimeKey checks the Poly1305 key generation of RFC 8439
// section 2.6 against the x/crypto keystream: the one-time key must be
// exactly the first 32 bytes of keystream block 0.
func TestOneTimeKey(t *testing.T) {
	key, keyBytes := randomKey(t)
	nonce := make([]byte, NonceSize)
	_, err := rand.Read(nonce)
	require.NoError(t, err)

	otk, err := oneTimeKey(key, nonce)
	require.NoError(t, err)
	require.Len(t, otk[:], 32)

	ref, err := xchacha.NewUnauthenticatedCipher(keyBytes, nonce)
	require.NoError(t, err)
	expected := make([]byte, 32)
	ref.XORKeyStream(expected, expected)
	assert.Equal(t, expected, otk[:])
}

func TestSealOpen(t *testing.T) {
	nonce := make([]byte, NonceSize)

	t.Run("round trip with associated data", func(t *testing.T) {
		key, _ := randomKey(t)
		plaintext := []byte("attack at dawn")
		aad := []byte("message header")

		out := make([]byte, len(plaintext)+TagSize)
		require.NoError(t, Seal(key, nonce, plaintext, aad, out))

		recovered := make([]byte, len(plaintext))
		require.NoError(t, Open(key, nonce, out, aad, recovered))
		assert.Equal(t, plaintext, recovered)
	})

	t.Run("round trip without associated data", func(t *testing.T) {
		key, _ := randomKey(t)
		plaintext := make([]byte, 300)
		_, err := rand.Read(plaintext)
		require.NoError(t, err)

		out := make([]byte, len(plaintext)+TagSize)
		require.NoError(t, Seal(key, nonce, plaintext, nil, out))

		recovered := make([]byte, len(plaintext))
		require.NoError(t, Open(key, nonce, out, nil, recovered))
		assert.Equal(t, plaintext, recovered)
	})

	t.Run("rejects empty plaintext", func(t *testing.T) {
		key, _ := randomKey(t)
		err := Seal(key, nonce, nil, nil, make([]byte, TagSize))
		assert.ErrorIs(t, err, types.ErrCryptoFailure)
	})

	t.Run("rejects short dst", func(t *testing.T) {
		key, _ := randomKey(t)
		err := Seal(key, nonce, []byte("hello"), nil, make([]byte, 5+TagSize-1))
		assert.ErrorIs(t, err, types.ErrCryptoFailure)
	})

	t.Run("rejects input without room for a tag", func(t *testing.T) {
		key, _ := randomKey(t)
		for _, n := range []int{0, 1, TagSize - 1, TagSize} {
			err := Open(key, nonce, make([]byte, n), nil, make([]byte, n))
			assert.ErrorIs(t, err, types.ErrCryptoFailure, "input length %d", n)
		}
	})

	t.Run("any modified byte fails authentication", func(t *testing.T) {
		key, _ := randomKey(t)
		plaintext := []byte("integrity matters")
		out := make([]byte, len(plaintext)+TagSize)
		require.NoError(t, Seal(key, nonce, plaintext, nil, out))

		dst := make([]byte, len(plaintext))
		for i := range out {
			out[i] ^= 0x01
			err := Open(key, nonce, out, nil, dst)
			assert.ErrorIs(t, err, types.ErrCryptoFailure, "byte %d", i)
			out[i] ^= 0x01
		}

		// Restored input still opens.
		require.NoError(t, Open(key, nonce, out, nil, dst))
	})

	t.Run("mismatched associated data fails", func(t *testing.T) {
		key, _ := randomKey(t)
		plaintext := []byte("payload")
		out := make([]byte, len(plaintext)+TagSize)
		require.NoError(t, Seal(key, nonce, plaintext, []byte("right"), out))

		dst := make([]byte, len(plaintext))
		assert.ErrorIs(t, Open(key, nonce, out, []byte("wrong"), dst), types.ErrCryptoFailure)
		assert.ErrorIs(t, Open(key, nonce, out, nil, dst), types.ErrCryptoFailure)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		key, _ := randomKey(t)
		other, _ := randomKey(t)
		plaintext := []byte("payload")
		out := make([]byte, len(plaintext)+TagSize)
		require.NoError(t, Seal(key, nonce, plaintext, nil, out))

		dst := make([]byte, len(plaintext))
		assert.ErrorIs(t, Open(other, nonce, out, nil, dst), types.ErrCryptoFailure)
	})
}

// TestSealOpen_AgainstXCrypto cross-checks sealing and opening against
// golang.org/x/crypto/chacha20poly1305 on random inputs.
func TestSealOpen_AgainstXCrypto(t *testing.T) {
	for _, size := range []int{1, 16, 64, 127, 1000} {
		key, keyBytes := randomKey(t)
		nonce := make([]byte, NonceSize)
		plaintext := make([]byte, size)
		aad := make([]byte, 24)
		_, err := rand.Read(nonce)
		require.NoError(t, err)
		_, err = rand.Read(plaintext)
		require.NoError(t, err)
		_, err = rand.Read(aad)
		require.NoError(t, err)

		ref, err := xaead.New(keyBytes)
		require.NoError(t, err)

		ours := make([]byte, size+TagSize)
		require.NoError(t, Seal(key, nonce, plaintext, aad, ours))
		assert.Equal(t, ref.Seal(nil, nonce, plaintext, aad), ours, "size %d", size)

		// And the reverse direction: their ciphertext opens here.
		recovered := make([]byte, size)
		require.NoError(t, Open(key, nonce, ref.Seal(nil, nonce, plaintext, aad), aad, recovered))
		assert.Equal(t, plaintext, recovered, "size %d", size)
	}
}
