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

// Package mem provides best-effort wiping of sensitive buffers. Every
// key, derived subkey, one-time MAC key and intermediate keystream block
// in this library is passed through these helpers as soon as it is no
// longer needed, including on error paths.
package mem

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WipeWords overwrites w with zeros.
func WipeWords(w []uint32) {
	for i := range w {
		w[i] = 0
	}
}
