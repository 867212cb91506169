// Package pattern matches element names, hierarchy paths and text against
// search patterns.
//
// A pattern is either an exact, case-insensitive value or carries a single
// leading or trailing '*'. A '*' in the middle, or more than one '*', never
// matches.
package pattern

import "strings"

// Field identifies which candidate string satisfied a pattern.
type Field int

const (
	FieldNone Field = iota
	FieldName
	FieldPath
	FieldText
)

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldPath:
		return "path"
	case FieldText:
		return "text"
	default:
		return "none"
	}
}

// Strings are the candidate values a pattern is tested against.
type Strings struct {
	Name string
	Path string
	Text string // own or nearest descendant text
}

// Wildcard reports whether candidate matches pattern.
func Wildcard(candidate, pattern string) bool {
	if candidate == pattern {
		return true
	}
	if strings.TrimSpace(pattern) == "" {
		return false
	}

	switch strings.Count(pattern, "*") {
	case 0:
		return strings.EqualFold(candidate, pattern)
	case 1:
		c := strings.ToLower(candidate)
		p := strings.ToLower(pattern)
		switch {
		case strings.HasPrefix(p, "*"):
			return strings.HasSuffix(c, p[1:])
		case strings.HasSuffix(p, "*"):
			return strings.HasPrefix(c, p[:len(p)-1])
		}
	}
	return false
}

// Match checks name, then path, then text, and returns the first field that
// matched.
func Match(s Strings, pattern string) (Field, bool) {
	if Wildcard(s.Name, pattern) {
		return FieldName, true
	}
	if s.Path != "" && Wildcard(s.Path, pattern) {
		return FieldPath, true
	}
	if s.Text != "" && Wildcard(s.Text, pattern) {
		return FieldText, true
	}
	return FieldNone, false
}

// Matches reports whether any field of s matches pattern.
func Matches(s Strings, pattern string) bool {
	_, ok := Match(s, pattern)
	return ok
}

// MatchAny returns the first pattern (and field) of patterns that matches s.
func MatchAny(s Strings, patterns []string) (string, Field, bool) {
	for _, p := range patterns {
		if f, ok := Match(s, p); ok {
			return p, f, true
		}
	}
	return "", FieldNone, false
}

// MatchesAny reports whether any of patterns matches s.
func MatchesAny(s Strings, patterns []string) bool {
	_, _, ok := MatchAny(s, patterns)
	return ok
}
