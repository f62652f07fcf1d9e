// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"errors"
	"fmt"
	"log/slog"
)

// Error taxonomy. Callers test with errors.Is.
var (
	// ErrInvalidReference is returned when an operation needs owning content that was not supplied.
	ErrInvalidReference = errors.New("taxonomy: missing content reference")
	// ErrTypeMismatch is returned when a value is not a category element.
	ErrTypeMismatch = errors.New("taxonomy: not a category element")
	// ErrIntegrity signals a corrupted tree, e.g. a non-root node without root.
	ErrIntegrity = errors.New("taxonomy: tree integrity violation")
	// ErrBackend wraps store failures of read operations that still return an empty result.
	ErrBackend = errors.New("taxonomy: backend failure")
	// ErrEmptyLabel is returned when a label is empty after sanitizing.
	ErrEmptyLabel = errors.New("taxonomy: empty label")
	// ErrInvalidSort is returned for an unknown child sort field or direction.
	ErrInvalidSort = errors.New("taxonomy: invalid sort")
)

// readFailure logs a recovered read failure and wraps it with ErrBackend.
func readFailure(logger *slog.Logger, op string, err error) error {
	logger.Warn("taxonomy read failed, returning empty result",
		"category", "taxonomy",
		"op", op,
		"error", err,
	)
	return fmt.Errorf("%s: %w: %w", op, ErrBackend, err)
}
