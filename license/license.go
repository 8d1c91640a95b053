// Package license classifies rider license strings into priority tiers.
package license

import (
	"regexp"
	"strings"
)

// Tier orders license strength. Temporary ranks below Unrecognized even
// though it is detected first: system-issued temporary ids are known-weak.
type Tier int

const (
	TierNone         Tier = 0
	TierTemporary    Tier = 1
	TierUnrecognized Tier = 2
	TierVerified     Tier = 3
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierTemporary:
		return "temporary"
	case TierUnrecognized:
		return "unrecognized"
	case TierVerified:
		return "verified"
	}
	return "unknown"
}

// Class is the outcome of Classify.
type Class struct {
	Tier     Tier   `json:"tier"`
	TypeName string `json:"type"`
}

var (
	temporaryPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{7}$`)
	verifiedPattern  = regexp.MustCompile(`^[0-9]{9,14}$`)
)

// Canonical strips spaces and hyphens and upper-cases the rest. Two licenses
// are the same iff their canonical forms are equal.
func Canonical(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' || r == '\u00a0' {
			return -1
		}
		return r
	}, strings.TrimSpace(s)))
}

// Classify assigns a tier. First matching rule wins: empty, temporary
// (three letters + seven digits), verified (9 to 14 digits), anything else.
func Classify(s string) Class {
	c := Canonical(s)
	switch {
	case c == "":
		return Class{TierNone, TierNone.String()}
	case temporaryPattern.MatchString(c):
		return Class{TierTemporary, TierTemporary.String()}
	case verifiedPattern.MatchString(c):
		return Class{TierVerified, TierVerified.String()}
	default:
		return Class{TierUnrecognized, TierUnrecognized.String()}
	}
}

// TierOf is Classify(s).Tier.
func TierOf(s string) Tier {
	return Classify(s).Tier
}

// Newer reports whether license a was issued after license b. Higher tiers
// win; within a tier, longer then lexically larger canonical values win,
// which orders numeric federation ids by value.
func Newer(a, b string) bool {
	ta, tb := TierOf(a), TierOf(b)
	if ta != tb {
		return ta > tb
	}
	ca, cb := Canonical(a), Canonical(b)
	if len(ca) != len(cb) {
		return len(ca) > len(cb)
	}
	return ca > cb
}
