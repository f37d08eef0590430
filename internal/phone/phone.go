// Package phone normalizes customer phone numbers and expands them into the
// exact-match variant set used for ticket lookup. Carrier payloads and
// staff-entered numbers disagree on formatting; matching is tolerant across
// representations of the same number but never fuzzy, so a variant can never
// land on a different customer.
package phone

import "strings"

const nationalLength = 10

// Canonical returns an E.164-like form: +<country><digits>, defaulting to
// country code 1 for a bare 10-digit number. Empty when the input carries no
// digits.
func Canonical(raw string) string {
	digits := digitsOnly(raw)
	if digits == "" {
		return ""
	}
	if len(digits) == nationalLength {
		return "+1" + digits
	}
	return "+" + digits
}

// Variants expands a raw phone string into every representation that might
// match a stored number: the raw input, the canonical form, digits only, the
// 10-digit national form, and the common human formats. Deduplicated, order
// stable.
func Variants(raw string) []string {
	raw = strings.TrimSpace(raw)
	digits := digitsOnly(raw)
	if digits == "" {
		if raw == "" {
			return nil
		}
		return []string{raw}
	}

	national := nationalDigits(digits)
	candidates := []string{
		raw,
		Canonical(raw),
		digits,
		national,
	}
	if len(national) == nationalLength {
		candidates = append(candidates,
			"1"+national,
			"+1"+national,
			"("+national[:3]+") "+national[3:6]+"-"+national[6:],
			national[:3]+"-"+national[3:6]+"-"+national[6:],
		)
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}
	return variants
}

// nationalDigits strips a leading country digit down to the 10-digit
// national number when the shape allows it.
func nationalDigits(digits string) string {
	if len(digits) == nationalLength+1 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
