// Package normalize turns raw rider and club names into comparison keys.
//
// Two names are the same for matching purposes iff their keys are byte-equal.
// Every function here is pure and total: empty in, empty out.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultFolds is the diacritic fold table for the Swedish results archive.
var DefaultFolds = map[rune]string{
	'å': "a",
	'ä': "a",
	'ö': "o",
	'é': "e",
}

// Normalizer builds keys using a fixed fold table. It is read-only after
// construction and safe for concurrent use.
type Normalizer struct {
	folds map[rune]string
}

// Default uses DefaultFolds.
var Default = New(DefaultFolds)

// New returns a Normalizer for the given fold table. Keys of the table are
// expected in lower case; the table is copied.
func New(folds map[rune]string) *Normalizer {
	cp := make(map[rune]string, len(folds))
	for k, v := range folds {
		cp[unicode.ToLower(k)] = strings.ToLower(v)
	}
	return &Normalizer{folds: cp}
}

// ParseFolds reads a table written as "å=a,ä=a,ö=o". An empty string yields
// DefaultFolds.
func ParseFolds(s string) (map[rune]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFolds, nil
	}
	out := map[rune]string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, "=")
		from = norm.NFC.String(strings.TrimSpace(from))
		if !ok || utf8.RuneCountInString(from) != 1 {
			return nil, fmt.Errorf("normalize: bad fold %q, want <char>=<replacement>", part)
		}
		r, _ := utf8.DecodeRuneInString(from)
		out[r] = strings.TrimSpace(to)
	}
	return out, nil
}

// Folds returns the table as a sorted "x=y" list, for logging.
func (n *Normalizer) Folds() []string {
	out := make([]string, 0, len(n.folds))
	for k, v := range n.folds {
		out = append(out, string(k)+"="+v)
	}
	sort.Strings(out)
	return out
}

// Fold trims, lowercases and applies the fold table, keeping every other
// character, spaces and hyphens included.
func (n *Normalizer) Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Decomposed input (a + combining ring) must hit the same fold entry.
	// A Caser is stateful, so each call gets its own.
	s = cases.Lower(language.Und).String(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := n.folds[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Key folds s and drops everything outside [a-z0-9].
func (n *Normalizer) Key(s string) string {
	return alnum(n.Fold(s))
}

// NamePair is a first/last name with whitespace runs collapsed, plus keys.
type NamePair struct {
	First    string
	Last     string
	FirstKey string
	LastKey  string
}

// Pair collapses whitespace runs (non-breaking spaces included) in both
// names and keys them.
func (n *Normalizer) Pair(first, last string) NamePair {
	first = CollapseSpaces(first)
	last = CollapseSpaces(last)
	return NamePair{
		First:    first,
		Last:     last,
		FirstKey: n.Key(first),
		LastKey:  n.Key(last),
	}
}

// Key returns the joined "first|last" key.
func (p NamePair) Key() string {
	return p.FirstKey + "|" + p.LastKey
}

// LastToken returns the key of the last space- or hyphen-delimited token of
// s, so "Berg-Svensson" and "Anna Svensson" both end in "svensson".
func (n *Normalizer) LastToken(s string) string {
	fields := strings.FieldsFunc(n.Fold(s), func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	for i := len(fields) - 1; i >= 0; i-- {
		if k := alnum(fields[i]); k != "" {
			return k
		}
	}
	return ""
}

// Tokens returns the keys of the whitespace-delimited words of s.
func (n *Normalizer) Tokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(n.Fold(s)) {
		if k := alnum(f); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Lower collapses whitespace and lowercases s with full Unicode case
// mapping, without applying any fold table. Stored riders carry this form of
// their names so exact-name lookups never depend on the database's own
// LOWER().
func Lower(s string) string {
	s = CollapseSpaces(s)
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// CollapseSpaces trims s and reduces every whitespace run to one ASCII space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key is Default.Key.
func Key(s string) string { return Default.Key(s) }

// Pair is Default.Pair.
func Pair(first, last string) NamePair { return Default.Pair(first, last) }

func alnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
