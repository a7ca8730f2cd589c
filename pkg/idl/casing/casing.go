// Package casing converts field names between snake_case and camelCase and
// guesses which spelling a payload actually uses.
package casing

import (
	"strings"
	"unicode"
)

// ToSnake converts a camelCase (or PascalCase) name to snake_case.
//
// A word boundary is placed before an uppercase letter that follows a
// lowercase letter or a digit. Digits stick to the word before them, and a run
// of capitals is a single word, so withNum1234V1 becomes with_num1234_v1 and
// withKISS becomes with_kiss. A capital run followed by a lowercase letter is
// split before its last capital (HTTPServer becomes http_server).
func ToSnake(name string) string {
	runes := []rune(name)

	var sb strings.Builder
	sb.Grow(len(name) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				sb.WriteByte('_')
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}

	return sb.String()
}

// ToCamel converts a snake_case name to camelCase. Names without underscores
// only get their first letter lowered.
func ToCamel(name string) string {
	parts := strings.Split(name, "_")

	var sb strings.Builder
	sb.Grow(len(name))

	first := true
	for i, part := range parts {
		if len(part) == 0 {
			// Keep leading underscores, collapse the rest
			if first && i < len(parts)-1 {
				sb.WriteByte('_')
			}
			continue
		}

		runes := []rune(part)
		if first {
			runes[0] = unicode.ToLower(runes[0])
			first = false
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		sb.WriteString(string(runes))
	}

	return sb.String()
}

// GuessIntendedKey returns the key a caller most likely meant when asking for
// requested within keys. The verbatim key wins, then the camelCase and
// snake_case spellings, then the first key whose snake_case form equals the
// requested one (withKISS finds with_kiss). When nothing matches the requested
// key is returned unchanged, and the lookup that follows fails on its own.
func GuessIntendedKey(keys []string, requested string) string {
	return GuessIntendedKeyFunc(func(key string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}, func() []string { return keys }, requested)
}

// GuessIntendedKeyFunc is GuessIntendedKey over a membership predicate, for
// callers that can answer lookups without listing their keys. keys is only
// called when no direct spelling matches, and may be nil.
func GuessIntendedKeyFunc(has func(string) bool, keys func() []string, requested string) string {
	if has(requested) {
		return requested
	}

	if camel := ToCamel(requested); camel != requested && has(camel) {
		return camel
	}

	snake := ToSnake(requested)
	if snake != requested && has(snake) {
		return snake
	}

	if keys == nil {
		return requested
	}
	for _, candidate := range keys() {
		if ToSnake(candidate) == snake {
			return candidate
		}
	}

	return requested
}
