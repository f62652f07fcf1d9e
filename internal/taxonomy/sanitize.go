// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package taxonomy

import (
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var labelStripper = strings.NewReplacer("/", "", `"`, "")

// SanitizeLabel strips slashes and double quotes and trims surrounding whitespace.
func SanitizeLabel(label string) string {
	return strings.TrimSpace(labelStripper.Replace(label))
}

// LabelKey returns the identity of a label: sanitized, NFC-composed and
// lowercased. Case is folded, accents are kept, so "café" and "CAFÉ" share a
// key while "cafe" does not.
func LabelKey(label string) string {
	// A Caser is stateful and must not be shared between goroutines.
	lower := cases.Lower(language.Und)
	return lower.String(norm.NFC.String(SanitizeLabel(label)))
}

// LabelKeyHex returns the upper-case hex encoding of LabelKey, as produced by
// the SQL hex() function on the stored key. Comparing hex strings keeps the
// database collation from folding accents.
func LabelKeyHex(label string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(LabelKey(label))))
}
