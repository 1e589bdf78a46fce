// Package handle normalizes and derives profile handles. Handles are
// lowercase, case-insensitively unique, and immutable once a profile is
// verified.
package handle

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// MaxDerivedLen bounds handles derived from display names.
	MaxDerivedLen = 20

	// MaxLen bounds user-chosen handles.
	MaxLen = 50
)

// Normalize folds a raw handle to its canonical form: trimmed, lowercase.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Valid reports whether a normalized handle contains only lowercase
// letters, digits, hyphens, and underscores, and fits the length bounds.
func Valid(h string) bool {
	if len(h) == 0 || len(h) > MaxLen {
		return false
	}
	for _, r := range h {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Derive builds a base handle from a display name: lowercase, stripped of
// non-alphanumerics, truncated. Returns "user" when nothing survives.
func Derive(displayName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(displayName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= MaxDerivedLen {
			break
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

// Disambiguate appends a random numeric suffix for collision resolution.
func Disambiguate(base string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		// crypto/rand failure means the process has bigger problems; a
		// fixed suffix still keeps the caller's retry loop moving.
		return base + "0"
	}
	return fmt.Sprintf("%s%d", base, n.Int64())
}
