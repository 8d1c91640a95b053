package identity

import "strings"

type scope int

const (
	// scopeFirstname is the license-bearing riders sharing the first name.
	scopeFirstname scope = iota
	// scopePopulation is the whole license-bearing population.
	scopePopulation
)

// strategy is one step of the cascade. pick is pure: it only looks at the
// prepared query and one candidate.
type strategy struct {
	name      string
	matchType MatchType
	scope     scope
	pick      func(q query, c candidate) (int, bool)
}

// cascade is the ordered strategy list. The dispatcher stops at the first
// strategy with any qualifying candidate.
func cascade() []strategy {
	return []strategy{
		{"name_birth_year", MatchExact, scopeFirstname, pickNameBirthYear},
		{"name_club", MatchExact, scopeFirstname, pickNameClub},
		{"name_only", MatchExact, scopeFirstname, pickNameOnly},
		{"double_surname", MatchFuzzy, scopeFirstname, pickDoubleSurname},
		{"surname_suffix", MatchFuzzy, scopeFirstname, pickSurnameSuffix},
		{"normalized_scan", MatchFuzzy, scopePopulation, pickNormalizedScan},
		{"prefix_scan", MatchPartial, scopePopulation, pickPrefixScan},
	}
}

func exactName(q query, c candidate) bool {
	return q.firstLower == c.firstLower && q.lastLower == c.lastLower
}

func sameBirthYear(q query, c candidate) bool {
	return q.birthYear != nil && c.rider.BirthYear != nil && *q.birthYear == *c.rider.BirthYear
}

// clubMatches is true when either club key contains the other.
func clubMatches(q query, c candidate) bool {
	if q.clubKey == "" || c.clubKey == "" {
		return false
	}
	return strings.Contains(q.clubKey, c.clubKey) || strings.Contains(c.clubKey, q.clubKey)
}

func pickNameBirthYear(q query, c candidate) (int, bool) {
	if exactName(q, c) && sameBirthYear(q, c) {
		return 100, true
	}
	return 0, false
}

func pickNameClub(q query, c candidate) (int, bool) {
	if exactName(q, c) && clubMatches(q, c) {
		return 95, true
	}
	return 0, false
}

func pickNameOnly(q query, c candidate) (int, bool) {
	if !exactName(q, c) {
		return 0, false
	}
	switch {
	case q.clubKey == "":
		return 90, true
	case clubMatches(q, c):
		return 95, true
	default:
		return 80, true
	}
}

// pickDoubleSurname tolerates compound surnames: one stored or supplied
// surname contains the other.
func pickDoubleSurname(q query, c candidate) (int, bool) {
	if q.firstLower != c.firstLower || q.lastFold == "" || c.lastFold == "" {
		return 0, false
	}
	if !strings.Contains(q.lastFold, c.lastFold) && !strings.Contains(c.lastFold, q.lastFold) {
		return 0, false
	}
	if clubMatches(q, c) {
		return 90, true
	}
	return 85, true
}

// pickSurnameSuffix matches a multi-word supplied surname on its last word.
func pickSurnameSuffix(q query, c candidate) (int, bool) {
	i := strings.LastIndex(q.lastLower, " ")
	if i < 0 || q.firstLower != c.firstLower {
		return 0, false
	}
	if suffix := q.lastLower[i+1:]; suffix == "" || c.lastLower != suffix {
		return 0, false
	}
	if clubMatches(q, c) {
		return 85, true
	}
	return 80, true
}

func pickNormalizedScan(q query, c candidate) (int, bool) {
	if q.firstKey == "" || q.lastKey == "" || q.firstKey != c.firstKey || q.lastKey != c.lastKey {
		return 0, false
	}
	conf := 85
	if clubMatches(q, c) {
		conf = 90
	}
	if sameBirthYear(q, c) {
		conf = 95
	}
	return conf, true
}

func pickPrefixScan(q query, c candidate) (int, bool) {
	if !samePrefix(q.firstKey, c.firstKey) || !samePrefix(q.lastKey, c.lastKey) {
		return 0, false
	}
	if clubMatches(q, c) {
		return 70, true
	}
	return 60, true
}

const prefixLen = 3

// samePrefix compares the first three key characters. Keys shorter than
// three characters must be equal.
func samePrefix(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) < prefixLen || len(b) < prefixLen {
		return a == b
	}
	return a[:prefixLen] == b[:prefixLen]
}
