// Package pattern provides unified pattern matching for configuration values
// such as accepted upload filenames.
//
// Pattern Matching Behavior:
//
//   - Exact (no prefix): Case-insensitive exact match
//     Example: "contract.docx" matches "contract.docx", "CONTRACT.DOCX"
//
//   - Wildcard (*): Case-insensitive pattern with * matching any characters
//     Example: "*.docx" matches "contract.docx", "Offer Letter.DOCX"
//
//   - Regexp (~): Case-sensitive regular expression
//     Example: "~^report-[0-9]+\.docx$" matches "report-42.docx"
//
//   - Regexp (~*): Case-insensitive regular expression
//     Example: "~*\.(docx|docm)$" matches "a.docx", "b.DOCM"
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternType defines the type of pattern matching
type PatternType int

const (
	PatternTypeWildcard PatternType = iota
	PatternTypeRegexp
	PatternTypeExact
)

// Pattern represents a compiled pattern ready for matching
type Pattern struct {
	Original        string         // Original pattern string
	Type            PatternType    // Pattern type: Exact, Wildcard, or Regexp
	CleanPattern    string         // Pattern with prefix removed (for regexp)
	CaseInsensitive bool           // For ~* prefix
	compiledRegexp  *regexp.Regexp // Pre-compiled regexp (nil for exact/wildcard)
}

// DetectPatternType determines the pattern matching type
// Returns: PatternType, clean pattern (prefix removed), case-insensitive flag
func DetectPatternType(pattern string) (PatternType, string, bool) {
	if strings.HasPrefix(pattern, "~*") {
		return PatternTypeRegexp, pattern[2:], true // case-insensitive
	}
	if strings.HasPrefix(pattern, "~") {
		return PatternTypeRegexp, pattern[1:], false // case-sensitive
	}

	if strings.Contains(pattern, "*") {
		return PatternTypeWildcard, pattern, false
	}

	return PatternTypeExact, pattern, false
}

// Compile pre-compiles a pattern for efficient matching.
// Call once during configuration loading, not per request.
func Compile(pattern string) (*Pattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}

	patternType, cleanPattern, caseInsensitive := DetectPatternType(pattern)

	p := &Pattern{
		Original:        pattern,
		Type:            patternType,
		CleanPattern:    cleanPattern,
		CaseInsensitive: caseInsensitive,
	}

	if patternType == PatternTypeRegexp {
		var re *regexp.Regexp
		var err error

		if caseInsensitive {
			re, err = regexp.Compile("(?i)" + cleanPattern)
		} else {
			re, err = regexp.Compile(cleanPattern)
		}

		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern '%s': %w", pattern, err)
		}

		p.compiledRegexp = re
	}

	return p, nil
}

// Match tests if input matches the compiled pattern
func (p *Pattern) Match(input string) bool {
	if p == nil {
		return false
	}

	switch p.Type {
	case PatternTypeRegexp:
		if p.compiledRegexp == nil {
			return false
		}
		return p.compiledRegexp.MatchString(input)

	case PatternTypeWildcard:
		// Wildcard matching is case-insensitive
		return MatchWildcard(strings.ToLower(input), strings.ToLower(p.CleanPattern))

	case PatternTypeExact:
		// Exact matching is case-insensitive
		return strings.EqualFold(input, p.CleanPattern)

	default:
		return false
	}
}

// MatchAny reports whether input matches at least one of the patterns.
func MatchAny(patterns []*Pattern, input string) bool {
	for _, p := range patterns {
		if p.Match(input) {
			return true
		}
	}
	return false
}

// CompileAll compiles a list of pattern strings, failing on the first invalid one.
func CompileAll(patterns []string) ([]*Pattern, error) {
	compiled := make([]*Pattern, len(patterns))
	for i, pat := range patterns {
		p, err := Compile(pat)
		if err != nil {
			return nil, err
		}
		compiled[i] = p
	}
	return compiled, nil
}

// MatchWildcard performs wildcard pattern matching on raw strings (utility function).
// For normal use, prefer Compile() + Match().
//
// The wildcard * matches any sequence of characters (including none);
// multiple wildcards are supported.
//
// Examples:
//   - MatchWildcard("contract.docx", "*.docx") → true
//   - MatchWildcard("report-2025-final.docx", "report-*.docx") → true
//   - MatchWildcard("anything", "*") → true (catch-all)
func MatchWildcard(text, pattern string) bool {
	// If no wildcard, do exact match
	if !strings.Contains(pattern, "*") {
		return text == pattern
	}

	parts := strings.Split(pattern, "*")

	// Text must start with first part
	if !strings.HasPrefix(text, parts[0]) {
		return false
	}
	text = text[len(parts[0]):]

	// Text must end with last part
	if !strings.HasSuffix(text, parts[len(parts)-1]) {
		return false
	}
	text = text[:len(text)-len(parts[len(parts)-1])]

	// Check middle parts exist in order
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(text, parts[i])
		if idx == -1 {
			return false
		}
		text = text[idx+len(parts[i]):]
	}

	return true
}
