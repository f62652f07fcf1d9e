// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageState(t *testing.T) {
	tests := []struct {
		name    string
		state   PageState
		online  bool
		deleted bool
	}{
		{"offline", StateOffline, false, false},
		{"online", StateOnline, true, false},
		{"hidden", StateHidden, false, false},
		{"online hidden", StateOnline | StateHidden, true, false},
		{"deleted", StateDeleted, false, true},
		{"deleted online", StateDeleted | StateOnline, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.online, tt.state.IsOnline())
			assert.Equal(t, tt.deleted, tt.state.IsDeleted())
		})
	}
}

func TestPageState_Has(t *testing.T) {
	s := StateOnline | StateHidden
	assert.True(t, s.Has(StateOnline))
	assert.True(t, s.Has(StateHidden))
	assert.False(t, s.Has(StateDeleted))
}
