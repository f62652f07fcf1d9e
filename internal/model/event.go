// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryTree      = "tree"
	EventCategoryLinks     = "links"
	EventCategoryIntegrity = "integrity"
	EventCategoryTransfer  = "transfer"
	EventCategoryCache     = "cache"
	EventCategorySystem    = "system"
)

// Event is a persisted log record of a notable taxonomy occurrence.
type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Actor     string    `json:"actor,omitempty"`
	Metadata  string    `json:"metadata"` // JSON object
	CreatedAt time.Time `json:"created_at"`
}

// ValidEventLevel reports whether level is a known event level.
func ValidEventLevel(level string) bool {
	switch level {
	case EventLevelInfo, EventLevelWarning, EventLevelError:
		return true
	}
	return false
}
