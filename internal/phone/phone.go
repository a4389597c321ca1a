// Package phone canonicalizes raw phone strings into digit-only keys and
// produces the ordered search variants the CRM lookup probes.
//
// CRM records may have been entered with or without the country code, and the
// CRM phone match is an exact-string predicate. A single raw number therefore
// has to be searched in several representations, in a stable priority order.
package phone

import "strings"

// Normalize strips all non-digit characters from raw. A bare 10-digit
// US/Canada number gets a leading "1" so keys are comparable regardless of
// how the upstream PBX formatted the caller ID.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}

// SearchVariants returns the representations to try against the CRM, in
// priority order: the raw string unchanged, the normalized key, the key with
// a leading "1" stripped (legacy un-prefixed records), and the key with a
// leading "1" prepended. Duplicates are removed preserving first-seen order.
func SearchVariants(raw string) []string {
	key := Normalize(raw)

	candidates := []string{raw, key}
	if len(key) == 11 && strings.HasPrefix(key, "1") {
		candidates = append(candidates, key[1:])
	}
	if len(key) == 10 {
		candidates = append(candidates, "1"+key)
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
