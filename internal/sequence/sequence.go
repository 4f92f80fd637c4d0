// Package sequence issues human-readable sequential identifiers of the
// form PPP-YYYYMMDD-SSSSS, backed by a per-(prefix, day) counter store.
package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxSequence is the highest counter value issued per (prefix, day).
const MaxSequence = 99999

var idPattern = regexp.MustCompile(`^[A-Z]{3}-\d{8}-\d{5}$`)

// ParsedID is the decomposed form of an identifier.
type ParsedID struct {
	Prefix   string
	DateKey  string
	Sequence int
}

// String reassembles the canonical identifier.
func (p ParsedID) String() string {
	return fmt.Sprintf("%s-%s-%05d", p.Prefix, p.DateKey, p.Sequence)
}

// NormalizePrefix uppercases and validates a 3-letter prefix.
func NormalizePrefix(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if len(prefix) != 3 {
		return "", fmt.Errorf("prefix must be exactly 3 characters, got %q", prefix)
	}
	for _, r := range prefix {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("prefix must be letters only, got %q", prefix)
		}
	}
	return prefix, nil
}

// Validate reports whether id is a well-formed identifier. When
// expectedPrefix is non-empty, the prefix component must also match it
// (case-insensitively).
func Validate(id, expectedPrefix string) bool {
	if !idPattern.MatchString(id) {
		return false
	}
	if expectedPrefix == "" {
		return true
	}
	return strings.EqualFold(id[:3], expectedPrefix)
}

// Parse decomposes an identifier into its components.
func Parse(id string) (ParsedID, error) {
	if !idPattern.MatchString(id) {
		return ParsedID{}, fmt.Errorf("malformed identifier %q", id)
	}
	seq, err := strconv.Atoi(id[13:])
	if err != nil {
		return ParsedID{}, fmt.Errorf("malformed identifier %q", id)
	}
	return ParsedID{Prefix: id[:3], DateKey: id[4:12], Sequence: seq}, nil
}

// PrefixOf returns the prefix component, or ok=false on malformed input.
func PrefixOf(id string) (string, bool) {
	parsed, err := Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.Prefix, true
}

// DateKeyOf returns the date component, or ok=false on malformed input.
func DateKeyOf(id string) (string, bool) {
	parsed, err := Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.DateKey, true
}

// SequenceOf returns the sequence component, or ok=false on malformed input.
func SequenceOf(id string) (int, bool) {
	parsed, err := Parse(id)
	if err != nil {
		return 0, false
	}
	return parsed.Sequence, true
}
