// Package textnorm normalizes free-text location and category values so that
// spelling variants of the same value compare equal.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize standardizes a city or category string by:
//  1. Removing accents (São Paulo -> Sao Paulo)
//  2. Converting to lowercase
//  3. Collapsing whitespace runs into single spaces and trimming
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Category normalizes a product category name. Underscores and spaces are
// treated alike so "cama_mesa_banho" and "Cama Mesa Banho" match.
func Category(s string) string {
	return strings.ReplaceAll(Normalize(strings.ReplaceAll(s, "_", " ")), " ", "_")
}

// State upper-cases and trims a state code.
func State(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// PaymentType lower-cases and trims a payment type so case variants collapse.
func PaymentType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
