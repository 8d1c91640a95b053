package identity

import (
	"sort"

	"github.com/padraicbc/riderapi/license"
	"github.com/padraicbc/riderapi/models"
)

// Plan ranks the members of a group and picks the survivor. Ranking is by
// license tier, then result count, then completeness (birth year and club
// present), all descending. Ties keep input order.
func Plan(members []models.Rider) (DuplicateGroup, error) {
	if len(members) < 2 {
		return DuplicateGroup{}, ErrAmbiguousMerge
	}

	ranked := make([]RankedMember, len(members))
	seen := make(map[int64]bool, len(members))
	for i, r := range members {
		if seen[r.ID] {
			return DuplicateGroup{}, ErrAmbiguousMerge
		}
		seen[r.ID] = true
		ranked[i] = RankedMember{
			Rider:        r,
			Tier:         license.TierOf(r.License()),
			Completeness: completeness(r),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if a.Rider.ResultCount != b.Rider.ResultCount {
			return a.Rider.ResultCount > b.Rider.ResultCount
		}
		return a.Completeness > b.Completeness
	})

	g := DuplicateGroup{
		KeepID:    ranked[0].Rider.ID,
		MemberIDs: make([]int64, 0, len(members)),
		MergeIDs:  make([]int64, 0, len(members)-1),
		Members:   ranked,
	}
	for _, r := range members {
		g.MemberIDs = append(g.MemberIDs, r.ID)
	}
	for _, m := range ranked[1:] {
		g.MergeIDs = append(g.MergeIDs, m.Rider.ID)
	}
	return g, nil
}

func completeness(r models.Rider) int {
	n := 0
	if r.BirthYear != nil {
		n++
	}
	if r.ClubID != nil {
		n++
	}
	return n
}
