// Package ticket generates the human-facing identifiers of the system:
// ticket ids handed to registrants and url slugs for public event pages.
package ticket

import (
	"fmt"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefix is the fixed lead-in of every ticket id.
const Prefix = "TIX-"

const (
	ticketAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ticketLength   = 8

	slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugLength   = 6
	slugMaxBase  = 50
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)

// NewID generates a ticket id: the TIX- prefix followed by 8 random
// upper-case alphanumeric characters. Uniqueness is not verified here;
// the store's unique constraint catches the (negligible) collision case.
func NewID() (string, error) {
	suffix, err := gonanoid.Generate(ticketAlphabet, ticketLength)
	if err != nil {
		return "", fmt.Errorf("generate ticket id: %w", err)
	}
	return Prefix + suffix, nil
}

// Normalize canonicalizes operator input for lookup: ticket ids are
// case-insensitive by convention and may carry stray whitespace from
// scanners or copy-paste.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NewSlug derives a url-safe slug from an event title and appends a short
// random suffix so two events with the same title never share a slug.
// The slug is assigned once at creation and immutable afterwards.
func NewSlug(title string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(title))
	base = nonSlugChars.ReplaceAllString(base, "")
	base = strings.Join(strings.Fields(base), "-")
	if len(base) > slugMaxBase {
		base = base[:slugMaxBase]
	}
	base = strings.Trim(base, "-")

	suffix, err := gonanoid.Generate(slugAlphabet, slugLength)
	if err != nil {
		return "", fmt.Errorf("generate slug suffix: %w", err)
	}
	if base == "" {
		return suffix, nil
	}
	return base + "-" + suffix, nil
}
