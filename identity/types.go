package identity

import (
	"github.com/padraicbc/riderapi/license"
	"github.com/padraicbc/riderapi/models"
)

// IncomingRecord is one rider row from an import, not yet resolved to a
// canonical id.
type IncomingRecord struct {
	Firstname   string  `json:"firstname" validate:"notblank,max=100"`
	Lastname    string  `json:"lastname" validate:"notblank,max=100"`
	ClubName    string  `json:"clubName,omitempty" validate:"max=200"`
	ClubID      *int64  `json:"clubID,omitempty"`
	BirthYear   *int    `json:"birthYear,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	Nationality *string `json:"nationality,omitempty" validate:"omitempty,max=3"`
	LicenseID   string  `json:"licenseID,omitempty" validate:"max=40"`
}

// MatchType is the strength class of a match.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchFuzzy   MatchType = "fuzzy"
	MatchPartial MatchType = "partial"
	MatchNone    MatchType = "not_found"
)

// MatchResult is the best canonical rider for an incoming record. A miss is
// Type == MatchNone with a nil RiderID; it is not an error.
type MatchResult struct {
	RiderID    *int64        `json:"riderID"`
	Type       MatchType     `json:"matchType"`
	Confidence int           `json:"confidence"`
	Strategy   string        `json:"strategy,omitempty"`
	Rider      *models.Rider `json:"rider,omitempty"`
}

// Found reports whether a rider was matched.
func (m MatchResult) Found() bool {
	return m.RiderID != nil
}

func notFound() MatchResult {
	return MatchResult{Type: MatchNone}
}

// RankedMember is a duplicate group member with the values it was ranked by.
type RankedMember struct {
	Rider        models.Rider `json:"rider"`
	Tier         license.Tier `json:"licenseTier"`
	Completeness int          `json:"completeness"`
}

// DuplicateGroup is a set of at least two riders believed to be one person.
// KeepID is a member and MergeIDs holds every other member.
type DuplicateGroup struct {
	MemberIDs []int64        `json:"memberIDs"`
	KeepID    int64          `json:"keepID"`
	MergeIDs  []int64        `json:"mergeIDs"`
	Members   []RankedMember `json:"members,omitempty"`
	Pass      string         `json:"pass,omitempty"`
}

// MergeReport describes one committed group merge.
type MergeReport struct {
	KeepID       int64         `json:"keepID"`
	MergedIDs    []int64       `json:"mergedIDs"`
	ResultsMoved int           `json:"resultsMoved"`
	MovedByID    map[int64]int `json:"movedByID"`
}

// BatchReport summarizes a merge-all run. Failed groups are listed in Errors
// and never abort the groups after them.
type BatchReport struct {
	RunID          string        `json:"runID"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	Skipped        int           `json:"skipped"`
	RecordsRetired int           `json:"recordsRetired"`
	ResultsMoved   int           `json:"resultsMoved"`
	Reports        []MergeReport `json:"reports"`
	Errors         []string      `json:"errors"`
}
