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

package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	Wipe(b)
	assert.Equal(t, make([]byte, 5), b)

	Wipe(nil) // must not panic
}

func TestWipeWords(t *testing.T) {
	w := []uint32{0xdeadbeef, 0xcafebabe}
	WipeWords(w)
	assert.Equal(t, []uint32{0, 0}, w)
}
