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

// Package secretstream implements the libsodium secretstream
// construction over XChaCha20-Poly1305: a long-lived session that seals
// and opens an ordered sequence of messages under one key, with
// per-message framing tags and deterministic key ratcheting.
//
// A Stream is created from a key and a random 24-byte header nonce. The
// header derives a session subkey via HChaCha20; the last 8 header
// bytes seed a rolling "inner nonce" that is XORed with the first 8 MAC
// bytes after every message. Together with a 32-bit message counter
// this yields a fresh IETF nonce per message that depends on the entire
// preceding ciphertext history, so a reordered, dropped or replayed
// message cannot decrypt.
//
// Rekey derives fresh subkey and inner-nonce material from the current
// state. It runs automatically when a message carries the rekey bit or
// the message counter wraps, and may be invoked explicitly for forward
// secrecy: once old state is gone, previously sent messages cannot be
// recovered even if the current state leaks.
//
// Each wire message is tag(1) ∥ ciphertext ∥ mac(16). The plaintext may
// be empty (a bare tag is a valid message). The tag byte is encrypted
// under the message keystream before being authenticated, and on Pull
// the decrypted tag is only acted on after the MAC over the encrypted
// wire byte verifies.
//
// A Stream must not be used concurrently, and must not be copied: two
// copies would ratchet apart while reusing the same nonces, which is a
// keystream-reuse catastrophe, not a data race. Serialize access and
// call Zeroize when the stream is finished.
package secretstream

import (
	"crypto/subtle"
	"encoding/binary"

	"golang.org/x/crypto/poly1305"

	"github.com/jeremyhahn/go-secretstream/internal/mem"
	"github.com/jeremyhahn/go-secretstream/pkg/crypto/chacha20"
	"github.com/jeremyhahn/go-secretstream/pkg/types"
)

const (
	// KeySize is the stream key size in bytes.
	KeySize = chacha20.KeySize

	// HeaderSize is the size in bytes of the stream header nonce.
	HeaderSize = 24

	// MACSize is the size in bytes of the per-message Poly1305 MAC.
	MACSize = poly1305.TagSize

	// Overhead is the number of bytes added to each message: the framing
	// tag byte plus the MAC.
	Overhead = 1 + MACSize

	counterSize    = 4
	innerNonceSize = 8

	// oneTimeKeySize is the Poly1305 one-time key size: 32 bytes taken
	// from the front of keystream block 0, per RFC 8439 section 2.6.
	oneTimeKeySize = 32
)

// Tag is the framing byte carried by every stream message.
type Tag byte

const (
	// TagMessage marks an ordinary message with no special meaning.
	TagMessage Tag = 0

	// TagPush marks the end of a set of messages; the receiving side
	// can start acting on the data received so far.
	TagPush Tag = 1

	// TagRekey forces a ratchet: the session derives a new subkey and
	// forgets the one used up to and including this message.
	TagRekey Tag = 2

	// TagFinish marks the end of the stream. It implies both Push and
	// Rekey semantics.
	TagFinish Tag = TagPush | TagRekey
)

// DecodeTag converts a raw wire byte into a Tag. Any bit pattern other
// than the four defined values is a decode failure, never silently
// treated as TagMessage.
func DecodeTag(b byte) (Tag, error) {
	if b > byte(TagFinish) {
		return 0, types.ErrCryptoFailure
	}
	return Tag(b), nil
}

// Stream is a secretstream session. All fields are secret except the
// counter, and all are wiped by Zeroize.
type Stream struct {
	key     *types.SecretKey
	counter uint32
	rNonce  [innerNonceSize]byte
}

// New creates a Stream from a key and a 24-byte header nonce. The
// header is public and must accompany the stream to the receiving side,
// which passes the same values to its own New.
func New(key *types.SecretKey, header []byte) (*Stream, error) {
	s := new(Stream)
	if err := s.Init(key, header); err != nil {
		return nil, err
	}
	return s, nil
}

// Init (re)initializes the session, fully replacing any existing state;
// reusing a Stream via Init is equivalent to starting a new logical
// stream. The session subkey is HChaCha20(key, header[:16]), the inner
// nonce starts as header[16:24], and the message counter starts at 1.
func (s *Stream) Init(key *types.SecretKey, header []byte) error {
	if len(header) != HeaderSize {
		return types.ErrCryptoFailure
	}
	subKey, err := chacha20.HChaCha20(key, header[:chacha20.HNonceSize])
	if err != nil {
		return err
	}
	if s.key != nil {
		s.key.Zeroize()
	}
	s.key = subKey
	copy(s.rNonce[:], header[chacha20.HNonceSize:])
	s.counter = 1
	return nil
}

// nonce builds the 12-byte IETF nonce for the current message:
// little-endian counter followed by the rolling inner nonce.
func (s *Stream) nonce() [chacha20.NonceSize]byte {
	var n [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint32(n[:counterSize], s.counter)
	copy(n[counterSize:], s.rNonce[:])
	return n
}

// padLen for a 16-byte Poly1305 boundary, branch-free.
func padLen(n uint64) uint64 {
	return (16 - n) & 15
}

// macKey derives the one-time Poly1305 key for the current message from
// keystream block 0 and wipes the rest of the block.
func (s *Stream) macKey(nonce []byte) (*[oneTimeKeySize]byte, error) {
	block, err := chacha20.KeystreamBlock(s.key, nonce, 0)
	if err != nil {
		return nil, err
	}
	var otk [oneTimeKeySize]byte
	copy(otk[:], block[:oneTimeKeySize])
	mem.Wipe(block)
	return &otk, nil
}

// ratchet folds the first 8 MAC bytes into the inner nonce, advances
// the message counter and triggers a rekey when the message carried the
// rekey bit or the counter wrapped to zero.
func (s *Stream) ratchet(mac []byte, tag Tag) error {
	for i := 0; i < innerNonceSize; i++ {
		s.rNonce[i] ^= mac[i]
	}
	s.counter++
	if tag&TagRekey != 0 || s.counter == 0 {
		return s.Rekey()
	}
	return nil
}

// Push seals plaintext (which may be empty) with the given tag and
// writes tag(1) ∥ ciphertext ∥ mac(16) into dst. dst must hold at least
// len(plaintext)+Overhead bytes. The session state advances; a
// different message results from pushing the same plaintext twice.
func (s *Stream) Push(plaintext, associatedData, dst []byte, tag Tag) error {
	if _, err := DecodeTag(byte(tag)); err != nil {
		return err
	}
	msgLen := len(plaintext)
	if len(dst) < msgLen+Overhead {
		return types.ErrCryptoFailure
	}
	nonce := s.nonce()

	otk, err := s.macKey(nonce[:])
	if err != nil {
		return err
	}
	defer mem.Wipe(otk[:])
	mac := poly1305.New(otk)

	var zeroPad [16]byte
	var lens [8]byte
	if len(associatedData) > 0 {
		mac.Write(associatedData)
	}
	mac.Write(zeroPad[:padLen(uint64(len(associatedData)))])

	// The tag byte rides in the first byte of a keystream-encrypted
	// block at counter 1; the remaining 63 bytes are pure keystream.
	// Authenticating this whole block binds the tag to the keystream.
	var block [chacha20.BlockSize]byte
	defer mem.Wipe(block[:])
	block[0] = byte(tag)
	if err := chacha20.Encrypt(s.key, nonce[:], 1, block[:], block[:]); err != nil {
		return err
	}
	mac.Write(block[:])
	dst[0] = block[0]

	if msgLen > 0 {
		if err := chacha20.Encrypt(s.key, nonce[:], 2, plaintext, dst[1:1+msgLen]); err != nil {
			return err
		}
	}
	mac.Write(dst[1 : 1+msgLen])
	mac.Write(zeroPad[:(16+uint64(msgLen)-chacha20.BlockSize)&15])
	binary.LittleEndian.PutUint64(lens[:], uint64(len(associatedData)))
	mac.Write(lens[:])
	binary.LittleEndian.PutUint64(lens[:], chacha20.BlockSize+uint64(msgLen))
	mac.Write(lens[:])

	out := mac.Sum(dst[1+msgLen : 1+msgLen])
	return s.ratchet(out[:], tag)
}

// Pull opens a message produced by Push, writing the plaintext into dst
// and returning the validated tag. The MAC is recomputed and compared
// in constant time before any decryption happens; on mismatch, or on a
// tag byte that does not decode, nothing is written to dst and the
// session state does not advance.
func (s *Stream) Pull(ciphertext, associatedData, dst []byte) (Tag, error) {
	if len(ciphertext) < Overhead {
		return 0, types.ErrCryptoFailure
	}
	msgLen := len(ciphertext) - Overhead
	if len(dst) < msgLen {
		return 0, types.ErrCryptoFailure
	}
	nonce := s.nonce()

	otk, err := s.macKey(nonce[:])
	if err != nil {
		return 0, err
	}
	defer mem.Wipe(otk[:])
	mac := poly1305.New(otk)

	var zeroPad [16]byte
	var lens [8]byte
	if len(associatedData) > 0 {
		mac.Write(associatedData)
	}
	mac.Write(zeroPad[:padLen(uint64(len(associatedData)))])

	// Decrypt the tag byte by re-deriving the keystream block it rode
	// in, then restore the wire byte for the MAC transcript: the MAC
	// must cover exactly what was sent, while the tag we act on is the
	// decrypted one.
	var block [chacha20.BlockSize]byte
	defer mem.Wipe(block[:])
	block[0] = ciphertext[0]
	if err := chacha20.Encrypt(s.key, nonce[:], 1, block[:], block[:]); err != nil {
		return 0, err
	}
	tag, err := DecodeTag(block[0])
	if err != nil {
		return 0, err
	}
	block[0] = ciphertext[0]
	mac.Write(block[:])

	mac.Write(ciphertext[1 : 1+msgLen])
	mac.Write(zeroPad[:(16+uint64(msgLen)-chacha20.BlockSize)&15])
	binary.LittleEndian.PutUint64(lens[:], uint64(len(associatedData)))
	mac.Write(lens[:])
	binary.LittleEndian.PutUint64(lens[:], chacha20.BlockSize+uint64(msgLen))
	mac.Write(lens[:])

	var computed [MACSize]byte
	mac.Sum(computed[:0])
	if subtle.ConstantTimeCompare(computed[:], ciphertext[1+msgLen:]) != 1 {
		mem.Wipe(computed[:])
		return 0, types.ErrCryptoFailure
	}

	if msgLen > 0 {
		if err := chacha20.Decrypt(s.key, nonce[:], 2, ciphertext[1:1+msgLen], dst[:msgLen]); err != nil {
			return 0, err
		}
	}
	if err := s.ratchet(computed[:], tag); err != nil {
		return 0, err
	}
	return tag, nil
}

// Rekey derives a fresh subkey and inner nonce by encrypting the
// current subkey ∥ inner nonce under the current state at counter 0,
// then resets the message counter to 1. The derivation is deterministic
// from the current state; both sides of a stream stay in sync as long
// as they rekey at the same points.
func (s *Stream) Rekey() error {
	var buf [KeySize + innerNonceSize]byte
	defer mem.Wipe(buf[:])

	copy(buf[:KeySize], s.key.Bytes())
	copy(buf[KeySize:], s.rNonce[:])

	nonce := s.nonce()
	if err := chacha20.Encrypt(s.key, nonce[:], 0, buf[:], buf[:]); err != nil {
		return err
	}

	copy(s.key.Bytes(), buf[:KeySize])
	copy(s.rNonce[:], buf[KeySize:])
	s.counter = 1
	return nil
}

// Zeroize wipes the session subkey and inner nonce. The stream is
// unusable afterwards until Init is called again.
func (s *Stream) Zeroize() {
	if s.key != nil {
		s.key.Zeroize()
	}
	mem.Wipe(s.rNonce[:])
	s.counter = 0
}
