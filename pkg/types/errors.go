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

package types

import "errors"

// ErrCryptoFailure is the single error returned by every fallible
// operation in this library: malformed lengths, nonce/mode mismatches,
// counter overflow, RNG failure and authentication failure all surface
// as this one value.
//
// The lack of differentiation is intentional. Telling a caller (or an
// attacker observing the caller) whether a decryption failed because of
// a bad length or a bad tag turns the API into a misuse oracle. Callers
// that need to react differently must do so based on what they attempted,
// not on which failure they got back.
var ErrCryptoFailure = errors.New("crypto: operation failed")
