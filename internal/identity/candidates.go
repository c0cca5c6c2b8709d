package identity

import (
	"strings"
	"unicode"
)

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneCandidates lists the encodings of raw the registry may have stored,
// most literal first, without duplicates. raw itself comes first, untouched;
// blank input yields nothing.
func PhoneCandidates(raw string) []string {
	if strings.TrimFunc(raw, unicode.IsSpace) == "" {
		return []string{}
	}
	digits := DigitsOnly(raw)

	out := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(raw)
	add(digits)

	switch {
	case len(digits) == 10:
		add("+7" + digits)
		add("8" + digits)
	case len(digits) == 11 && digits[0] == '8':
		add("+7" + digits[1:])
		add("7" + digits[1:])
	case len(digits) == 11 && digits[0] == '7':
		add("+7" + digits[1:])
		add("8" + digits[1:])
	}

	return out
}
