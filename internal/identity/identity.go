// Package identity derives the stable, content-addressed keys used to
// deduplicate bibliographic records and to refer to them across the pipeline.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NoISBN is the book key prefix used when a record carries no valid ISBN.
const NoISBN = "NOISBN"

// NormalizeTitle lowercases s, replaces every character outside [a-z0-9]
// with a space, and collapses runs of spaces into one.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeISBN keeps digits and X, uppercased. It returns "" unless the
// result is exactly 10 or 13 characters long.
func NormalizeISBN(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		}
	}
	isbn := b.String()
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

// RecordID returns the permanent identifier for a record: a hex digest of
// the pipe-joined normalized title, author and ISBN.
func RecordID(title, author, isbn string) string {
	key := NormalizeTitle(title) + "|" + NormalizeTitle(author) + "|" + NormalizeISBN(isbn)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// BookKey returns the dedup key used during enrichment. Records sharing a
// valid ISBN and normalized title collapse to the same key; records without
// an ISBN fall back to the title alone.
func BookKey(isbn, title string) string {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		isbn = NoISBN
	}
	return isbn + "|" + NormalizeTitle(title)
}

// ShortTitle returns the part of title before its first colon, trimmed.
// ok is false when the title has no colon or nothing precedes it.
func ShortTitle(title string) (short string, ok bool) {
	before, _, found := strings.Cut(title, ":")
	if !found {
		return "", false
	}
	short = strings.TrimSpace(before)
	return short, short != ""
}
