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

package xchacha20

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xchacha "golang.org/x/crypto/chacha20"

	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

func TestEncryptDecrypt(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		key, err := types.GenerateSecretKey()
		require.NoError(t, err)
		nonce, err := GenerateNonce()
		require.NoError(t, err)

		for _, size := range []int{1, 64, 65, 500} {
			plaintext := make([]byte, size)
			_, err := rand.Read(plaintext)
			require.NoError(t, err)

			ciphertext := make([]byte, size)
			require.NoError(t, Encrypt(key, nonce, 0, plaintext, ciphertext))
			assert.NotEqual(t, plaintext, ciphertext)

			recovered := make([]byte, size)
			require.NoError(t, Decrypt(key, nonce, 0, ciphertext, recovered))
			assert.Equal(t, plaintext, recovered)
		}
	})

	t.Run("rejects bad nonce lengths", func(t *testing.T) {
		key, err := types.GenerateSecretKey()
		require.NoError(t, err)
		buf := make([]byte, 16)
		for _, n := range []int{0, 12, 16, 23, 25} {
			err := Encrypt(key, make([]byte, n), 0, buf, buf)
			assert.ErrorIs(t, err, types.ErrCryptoFailure, "nonce length %d", n)
		}
	})

	t.Run("rejects empty plaintext", func(t *testing.T) {
		key, err := types.GenerateSecretKey()
		require.NoError(t, err)
		err = Encrypt(key, make([]byte, NonceSize), 0, nil, make([]byte, 16))
		assert.ErrorIs(t, err, types.ErrCryptoFailure)
	})

	t.Run("different nonces give different ciphertexts", func(t *testing.T) {
		key, err := types.GenerateSecretKey()
		require.NoError(t, err)
		n1, err := GenerateNonce()
		require.NoError(t, err)
		n2, err := GenerateNonce()
		require.NoError(t, err)
		require.NotEqual(t, n1, n2)

		plaintext := []byte("nonce separation")
		c1 := make([]byte, len(plaintext))
		c2 := make([]byte, len(plaintext))
		require.NoError(t, Encrypt(key, n1, 0, plaintext, c1))
		require.NoError(t, Encrypt(key, n2, 0, plaintext, c2))
		assert.NotEqual(t, c1, c2)
	})
}

// TestEncrypt_AgainstXCrypto cross-checks against golang.org/x/crypto,
// which accepts 24-byte nonces directly and applies the same HChaCha20
// extension internally.
func TestEncrypt_AgainstXCrypto(t *testing.T) {
	for _, size := range []int{1, 64, 129, 1024} {
		keyBytes := make([]byte, 32)
		nonce := make([]byte, NonceSize)
		plaintext := make([]byte, size)
		_, err := rand.Read(keyBytes)
		require.NoError(t, err)
		_, err = rand.Read(nonce)
		require.NoError(t, err)
		_, err = rand.Read(plaintext)
		require.NoError(t, err)

		key, err := types.NewSecretKey(keyBytes)
		require.NoError(t, err)
		ours := make([]byte, size)
		require.NoError(t, Encrypt(key, nonce, 3, plaintext, ours))

		ref, err := xchacha.NewUnauthenticatedCipher(keyBytes, nonce)
		require.NoError(t, err)
		ref.SetCounter(3)
		theirs := make([]byte, size)
		ref.XORKeyStream(theirs, plaintext)

		assert.Equal(t, theirs, ours, "size %d", size)
	}
}

func TestGenerateNonce(t *testing.T) {
	n1, err := GenerateNonce()
	require.NoError(t, err)
	assert.Len(t, n1, NonceSize)

	n2, err := GenerateNonce()
	require.NoError(t, err)
	assert.NotEqual(t, n1, n2)
}
