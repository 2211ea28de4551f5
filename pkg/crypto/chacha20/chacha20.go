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

// Package chacha20 implements the IETF ChaCha20 stream cipher from
// RFC 8439 together with the HChaCha20 subkey derivation function used
// by XChaCha20.
//
// Everything in this package is a raw, unauthenticated primitive. It
// provides no integrity whatsoever: flipping a ciphertext bit flips the
// corresponding plaintext bit. Unless a raw keystream is genuinely
// required, use the xchacha20poly1305 or secretstream packages instead.
//
// Nonce discipline is the caller's responsibility at this layer. A
// (key, nonce) pair must never be used twice: reuse reveals the XOR of
// the two plaintexts and destroys confidentiality for everything
// encrypted under that key. Only XChaCha20's 24-byte nonce is large
// enough to be generated at random; the 12-byte IETF nonce must come
// from a counter or equivalent unique source.
//
// The IETF and HChaCha20 block functions are intentionally represented
// as two distinct state types. They differ structurally: the IETF
// variant carries a block counter in state word 12 and adds the input
// state back into the working state after the rounds ("feed-forward"),
// while HChaCha20 has no counter, skips the feed-forward, and keeps
// only words 0..3 and 12..15 of the result. Separate types make the
// invalid combinations (a counter for HChaCha20, a missing counter for
// IETF) impossible to express rather than merely checked at runtime.
package chacha20

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/jeremyhahn/go-secretstream/internal/mem"
	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

const (
	// KeySize is the ChaCha20 key size in bytes.
	KeySize = 32

	// NonceSize is the IETF ChaCha20 nonce size in bytes.
	NonceSize = 12

	// HNonceSize is the HChaCha20 nonce size in bytes.
	HNonceSize = 16

	// BlockSize is the size in bytes of one ChaCha20 keystream block.
	BlockSize = 64

	// HChaCha20KeySize is the size in bytes of the subkey produced by
	// HChaCha20.
	HChaCha20KeySize = 32
)

// The four constant words of the ChaCha state, the little-endian words
// of "expand 32-byte k".
const (
	sigma0 uint32 = 0x61707865
	sigma1 uint32 = 0x3320646e
	sigma2 uint32 = 0x79622d32
	sigma3 uint32 = 0x6b206574
)

// quarterRound shuffles four state words. All additions wrap mod 2^32
// and all rotations are left rotations, per RFC 8439 section 2.1.
func quarterRound(a, b, c, d uint32) (uint32, uint32, uint32, uint32) {
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 16)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 12)
	a += b
	d ^= a
	d = bits.RotateLeft32(d, 8)
	c += d
	b ^= c
	b = bits.RotateLeft32(b, 7)
	return a, b, c, d
}

// rounds runs the 10 double-rounds (20 rounds) shared by ChaCha20 and
// HChaCha20 over the working state: four column quarter-rounds followed
// by four diagonal quarter-rounds per double-round.
func rounds(ws *[16]uint32) {
	for i := 0; i < 10; i++ {
		// Column rounds.
		ws[0], ws[4], ws[8], ws[12] = quarterRound(ws[0], ws[4], ws[8], ws[12])
		ws[1], ws[5], ws[9], ws[13] = quarterRound(ws[1], ws[5], ws[9], ws[13])
		ws[2], ws[6], ws[10], ws[14] = quarterRound(ws[2], ws[6], ws[10], ws[14])
		ws[3], ws[7], ws[11], ws[15] = quarterRound(ws[3], ws[7], ws[11], ws[15])
		// Diagonal rounds.
		ws[0], ws[5], ws[10], ws[15] = quarterRound(ws[0], ws[5], ws[10], ws[15])
		ws[1], ws[6], ws[11], ws[12] = quarterRound(ws[1], ws[6], ws[11], ws[12])
		ws[2], ws[7], ws[8], ws[13] = quarterRound(ws[2], ws[7], ws[8], ws[13])
		ws[3], ws[4], ws[9], ws[14] = quarterRound(ws[3], ws[4], ws[9], ws[14])
	}
}

// ietfState is the IETF ChaCha20 block engine: 4 constant words, 8 key
// words, the block counter in word 12 and 3 nonce words in words 13..15.
type ietfState struct {
	input [16]uint32

	// blocks counts keystream blocks produced by this state. Producing
	// more than 2^32-1 blocks from one state would exhaust the
	// keystream; the state refuses further use instead of wrapping.
	blocks uint32
}

func newIETFState(key *types.SecretKey, nonce []byte) (*ietfState, error) {
	if key == nil || len(nonce) != NonceSize {
		return nil, types.ErrCryptoFailure
	}
	st := new(ietfState)
	st.input[0] = sigma0
	st.input[1] = sigma1
	st.input[2] = sigma2
	st.input[3] = sigma3
	kb := key.Bytes()
	for i := 0; i < 8; i++ {
		st.input[4+i] = binary.LittleEndian.Uint32(kb[4*i:])
	}
	for i := 0; i < 3; i++ {
		st.input[13+i] = binary.LittleEndian.Uint32(nonce[4*i:])
	}
	return st, nil
}

// keystreamBlock serializes the 64-byte keystream block for the given
// counter into dst. The input state is left unchanged apart from the
// counter word and the invocation count.
func (st *ietfState) keystreamBlock(counter uint32, dst *[BlockSize]byte) error {
	if st.blocks == math.MaxUint32 {
		// Keystream exhausted; this state must not produce more blocks.
		return types.ErrCryptoFailure
	}
	st.blocks++
	st.input[12] = counter

	ws := st.input
	rounds(&ws)
	for i := range ws {
		ws[i] += st.input[i] // feed-forward
	}
	for i, w := range ws {
		binary.LittleEndian.PutUint32(dst[4*i:], w)
	}
	mem.WipeWords(ws[:])
	return nil
}

func (st *ietfState) zeroize() {
	mem.WipeWords(st.input[:])
}

// hchachaState is the HChaCha20 block engine. The 16-byte nonce fills
// words 12..15; there is no counter slot.
type hchachaState struct {
	input  [16]uint32
	blocks uint32
}

func newHChaChaState(key *types.SecretKey, nonce []byte) (*hchachaState, error) {
	if key == nil || len(nonce) != HNonceSize {
		return nil, types.ErrCryptoFailure
	}
	st := new(hchachaState)
	st.input[0] = sigma0
	st.input[1] = sigma1
	st.input[2] = sigma2
	st.input[3] = sigma3
	kb := key.Bytes()
	for i := 0; i < 8; i++ {
		st.input[4+i] = binary.LittleEndian.Uint32(kb[4*i:])
	}
	for i := 0; i < 4; i++ {
		st.input[12+i] = binary.LittleEndian.Uint32(nonce[4*i:])
	}
	return st, nil
}

// subkey writes the 32-byte HChaCha20 output into dst. Unlike the IETF
// block function there is no feed-forward, and only words 0..3 and
// 12..15 of the working state are serialized; the middle words carried
// key material and are discarded.
func (st *hchachaState) subkey(dst *[HChaCha20KeySize]byte) error {
	if st.blocks == math.MaxUint32 {
		return types.ErrCryptoFailure
	}
	st.blocks++

	ws := st.input
	rounds(&ws)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(dst[4*i:], ws[i])
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(dst[16+4*i:], ws[12+i])
	}
	mem.WipeWords(ws[:])
	return nil
}

func (st *hchachaState) zeroize() {
	mem.WipeWords(st.input[:])
}

// Encrypt XORs plaintext with the ChaCha20 keystream for (key, nonce),
// starting at initialCounter, and writes the result to dst. dst may be
// longer than plaintext; only len(plaintext) bytes are written. dst may
// alias plaintext exactly, which encrypts in place.
//
// The whole call fails up front, before any output is produced, if the
// plaintext is empty, dst is too short, the nonce is not 12 bytes, or
// encrypting len(plaintext) bytes would advance the 32-bit block
// counter past its maximum.
//
// An empty plaintext is rejected rather than treated as a no-op: a
// zero-length ciphertext in a caller-supplied buffer is too easy to
// mistake for a successful encryption of real data.
func Encrypt(key *types.SecretKey, nonce []byte, initialCounter uint32, plaintext, dst []byte) error {
	if len(plaintext) == 0 || len(dst) < len(plaintext) {
		return types.ErrCryptoFailure
	}
	numBlocks := uint64(len(plaintext)+BlockSize-1) / BlockSize
	if uint64(initialCounter)+numBlocks-1 > math.MaxUint32 {
		// The per-chunk counter would overflow mid-stream.
		return types.ErrCryptoFailure
	}

	st, err := newIETFState(key, nonce)
	if err != nil {
		return err
	}
	defer st.zeroize()

	var block [BlockSize]byte
	defer mem.Wipe(block[:])

	for i := 0; i < len(plaintext); i += BlockSize {
		counter := initialCounter + uint32(i/BlockSize)
		if err := st.keystreamBlock(counter, &block); err != nil {
			return err
		}
		n := len(plaintext) - i
		if n > BlockSize {
			n = BlockSize
		}
		for j := 0; j < n; j++ {
			dst[i+j] = plaintext[i+j] ^ block[j]
		}
	}
	return nil
}

// Decrypt is Encrypt: the ChaCha20 keystream XOR is its own inverse.
func Decrypt(key *types.SecretKey, nonce []byte, initialCounter uint32, ciphertext, dst []byte) error {
	return Encrypt(key, nonce, initialCounter, ciphertext, dst)
}

// KeystreamBlock returns the raw 64-byte keystream block for
// (key, nonce, counter). It performs exactly one block computation and
// never increments anything, so there is no counter-overflow condition
// here; callers doing their own chunking own that bookkeeping.
func KeystreamBlock(key *types.SecretKey, nonce []byte, counter uint32) ([]byte, error) {
	st, err := newIETFState(key, nonce)
	if err != nil {
		return nil, err
	}
	defer st.zeroize()

	var block [BlockSize]byte
	if err := st.keystreamBlock(counter, &block); err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	copy(out, block[:])
	mem.Wipe(block[:])
	return out, nil
}

// HChaCha20 derives a 32-byte subkey from key and a 16-byte nonce, per
// the XChaCha20 draft RFC. The derivation is purely functional: the
// same (key, nonce) pair always produces the same subkey.
func HChaCha20(key *types.SecretKey, nonce []byte) (*types.SecretKey, error) {
	st, err := newHChaChaState(key, nonce)
	if err != nil {
		return nil, err
	}
	defer st.zeroize()

	var out [HChaCha20KeySize]byte
	if err := st.subkey(&out); err != nil {
		return nil, err
	}
	sub, err := types.NewSecretKey(out[:])
	mem.Wipe(out[:])
	return sub, err
}
