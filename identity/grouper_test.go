package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

func TestDetectRanksSurvivor(t *testing.T) {
	f := newFixture(t)
	verified := f.rider(models.Rider{Firstname: "Mattias", Lastname: "Varg", LicenseID: strp("10012345678")})
	temp := f.rider(models.Rider{Firstname: "mattias", Lastname: "varg ", LicenseID: strp("VAR1234567")})
	none := f.rider(models.Rider{Firstname: "Mattias", Lastname: "Varg"})
	f.results(verified, 12)
	f.results(temp, 40)
	f.results(none, 2)

	groups, err := f.resolver().DetectDuplicateGroups(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, passExact, g.Pass)
	assert.Equal(t, verified, g.KeepID)
	assert.Equal(t, []int64{temp, none}, g.MergeIDs)
	assert.Equal(t, []int64{verified, temp, none}, g.MemberIDs)
}

func TestDetectBirthYearConflict(t *testing.T) {
	f := newFixture(t)
	f.rider(models.Rider{Firstname: "Anna", Lastname: "Berg", BirthYear: intp(1990)})
	f.rider(models.Rider{Firstname: "Anna", Lastname: "Berg", BirthYear: intp(1985)})
	// A license on one side does not override the conflict.
	f.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl", BirthYear: intp(1990), LicenseID: strp("10000000001")})
	f.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl", BirthYear: intp(1985)})

	groups, err := f.resolver().DetectDuplicateGroups(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetectLicenseGuard(t *testing.T) {
	f := newFixture(t)
	// Same license on every member: already one person in the source data.
	f.rider(models.Rider{Firstname: "Per", Lastname: "Ek", LicenseID: strp("10000000009")})
	f.rider(models.Rider{Firstname: "Per", Lastname: "Ek", LicenseID: strp("100-000-000-09")})
	// No license anywhere: nothing to anchor the merge.
	f.rider(models.Rider{Firstname: "Bo", Lastname: "Ahl"})
	f.rider(models.Rider{Firstname: "Bo", Lastname: "Ahl"})
	// Two distinct licenses.
	a := f.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl", LicenseID: strp("10000000011")})
	b := f.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl", LicenseID: strp("EVA0000001")})

	groups, err := f.resolver().DetectDuplicateGroups(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, a, groups[0].KeepID)
	assert.Equal(t, []int64{b}, groups[0].MergeIDs)
}

func TestDetectHonorsExclusions(t *testing.T) {
	f := newFixture(t)
	x := f.rider(models.Rider{Firstname: "Lars", Lastname: "Nyberg", LicenseID: strp("10000000001")})
	y := f.rider(models.Rider{Firstname: "Lars", Lastname: "Nyberg"})
	z := f.rider(models.Rider{Firstname: "Lars", Lastname: "Nyberg"})
	r := f.resolver()

	n, err := r.ExcludePair(f.ctx, []int64{x, y})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A partial exclusion leaves the group standing.
	groups, err := r.DetectDuplicateGroups(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, x, groups[0].KeepID)

	n, err = r.ExcludePair(f.ctx, []int64{x, y, z})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	groups, err = r.DetectDuplicateGroups(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDetectFuzzyPass(t *testing.T) {
	f := newFixture(t)
	keep := f.rider(models.Rider{Firstname: "Anna", Lastname: "Berg-Svensson", LicenseID: strp("10000000001")})
	other := f.rider(models.Rider{Firstname: "Anna", Lastname: "Svensson"})

	groups, err := f.resolver().DetectDuplicateGroups(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, passFuzzy, groups[0].Pass)
	assert.Equal(t, keep, groups[0].KeepID)
	assert.Equal(t, []int64{other}, groups[0].MergeIDs)
}

func TestCandidateGroupsAreDisjoint(t *testing.T) {
	riders := []models.Rider{
		{ID: 1, Firstname: "Anna", Lastname: "Svensson"},
		{ID: 2, Firstname: "Anna", Lastname: "Svensson"},
		{ID: 3, Firstname: "Anna", Lastname: "Berg-Svensson"},
		{ID: 4, Firstname: "Anna", Lastname: "Lind Svensson"},
		{ID: 5, Firstname: "Olle", Lastname: "Svensson"},
		{ID: 6, Firstname: "", Lastname: "Svensson"},
	}

	groups := candidateGroups(riders, normalize.Default)
	require.Len(t, groups, 2)
	assert.Equal(t, passExact, groups[0].pass)
	assert.Equal(t, []int64{1, 2}, riderIDs(groups[0].members))
	assert.Equal(t, passFuzzy, groups[1].pass)
	assert.Equal(t, []int64{3, 4}, riderIDs(groups[1].members))
}

func TestRejectReason(t *testing.T) {
	lic := func(s string) *string { return strp(s) }
	tests := []struct {
		name     string
		members  []models.Rider
		excluded PairSet
		want     string
	}{
		{
			name: "accepted",
			members: []models.Rider{
				{ID: 1, LicenseID: lic("10000000001"), BirthYear: intp(1990)},
				{ID: 2, BirthYear: intp(1990)},
			},
			want: "",
		},
		{
			name: "birth years differ",
			members: []models.Rider{
				{ID: 1, LicenseID: lic("10000000001"), BirthYear: intp(1990)},
				{ID: 2, BirthYear: intp(1991)},
			},
			want: rejectBirthYear,
		},
		{
			name:    "no license",
			members: []models.Rider{{ID: 1}, {ID: 2, LicenseID: lic("  ")}},
			want:    rejectNoLicense,
		},
		{
			name:    "shared license",
			members: []models.Rider{{ID: 1, LicenseID: lic("ABC1234567")}, {ID: 2, LicenseID: lic("abc 1234567")}},
			want:    rejectSharedLic,
		},
		{
			name:     "fully excluded",
			members:  []models.Rider{{ID: 1, LicenseID: lic("10000000001")}, {ID: 2}},
			excluded: PairSet{NewPair(2, 1): {}},
			want:     rejectExclusions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rejectReason(tt.members, tt.excluded))
		})
	}
}
