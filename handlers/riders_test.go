package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/riderapi/identity"
	"github.com/padraicbc/riderapi/models"
)

func TestMatchRider(t *testing.T) {
	s := newTestServer(t)
	id := s.rider(models.Rider{Firstname: "Olof", Lastname: "Ekfjell", LicenseID: strp("10023456789")})

	rec := s.api(http.MethodPost, "/api/riders/match", `{"firstname":"Olof","lastname":"Ekfjell"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[identity.MatchResult](t, rec)
	require.NotNil(t, res.RiderID)
	assert.Equal(t, id, *res.RiderID)
	assert.Equal(t, identity.MatchExact, res.Type)
	assert.Equal(t, 90, res.Confidence)

	rec = s.api(http.MethodPost, "/api/riders/match", `{"firstname":"Nils","lastname":"Ek"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[identity.MatchResult](t, rec)
	assert.Nil(t, res.RiderID)
	assert.Equal(t, identity.MatchNone, res.Type)

	for _, body := range []string{
		`{"firstname":"Olof"}`,
		`{"firstname":"Olof","lastname":"Ekfjell","birthYear":1700}`,
		`not json`,
	} {
		rec = s.api(http.MethodPost, "/api/riders/match", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestMatchRidersBatch(t *testing.T) {
	s := newTestServer(t)
	s.rider(models.Rider{Firstname: "Olof", Lastname: "Ekfjell", LicenseID: strp("10023456789")})

	rec := s.api(http.MethodPost, "/api/riders/match/batch",
		`{"records":[{"firstname":"Olof","lastname":"Ekfjell"},{"firstname":"Nils","lastname":"Ek"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Results []identity.MatchResult `json:"results"`
		Matched int                    `json:"matched"`
		Total   int                    `json:"total"`
	}](t, rec)
	assert.Equal(t, 1, out.Matched)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, identity.MatchNone, out.Results[1].Type)

	rec = s.api(http.MethodPost, "/api/riders/match/batch", `{"records":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.api(http.MethodPost, "/api/riders/match/batch", `{"records":[{"firstname":"Nils"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveRider(t *testing.T) {
	s := newTestServer(t)

	rec := s.api(http.MethodPost, "/api/riders/resolve", `{"firstname":"Nils","lastname":"Ek","birthYear":2001}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[identity.Resolution](t, rec)
	assert.True(t, created.Created)

	rec = s.api(http.MethodPost, "/api/riders/resolve", `{"firstname":"Nils","lastname":"Ek"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[identity.Resolution](t, rec)
	assert.Equal(t, created.RiderID, again.RiderID)
	assert.Equal(t, identity.SourceExactName, again.Source)
}

func TestResolveRiderBlankName(t *testing.T) {
	s := newTestServer(t)

	rec := s.api(http.MethodPost, "/api/riders/resolve", `{"firstname":"Nils","lastname":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = s.api(http.MethodPost, "/api/riders/match", `{"firstname":"\t","lastname":"Ek"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	n, err := s.db.NewSelect().Model((*models.Rider)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	rec = s.api(http.MethodPost, "/api/riders/resolve", `{"firstname":"Иван","lastname":"Петров"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSearchRiders(t *testing.T) {
	s := newTestServer(t)
	id := s.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl"})
	s.rider(models.Rider{Firstname: "Per", Lastname: "Ek"})

	rec := s.api(http.MethodGet, "/api/riders?q=dahl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	riders := decode[[]models.Rider](t, rec)
	require.Len(t, riders, 1)
	assert.Equal(t, id, riders[0].ID)

	assert.Equal(t, http.StatusBadRequest, s.api(http.MethodGet, "/api/riders", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.api(http.MethodGet, "/api/riders?q=a&limit=x", "").Code)
}

func TestDuplicatesAndMergeAll(t *testing.T) {
	s := newTestServer(t)
	keep := s.rider(models.Rider{Firstname: "Mattias", Lastname: "Varg", LicenseID: strp("10012345678")})
	dup := s.rider(models.Rider{Firstname: "Mattias", Lastname: "Varg"})

	rec := s.api(http.MethodGet, "/api/riders/duplicates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		Groups []identity.DuplicateGroup `json:"groups"`
		Count  int                       `json:"count"`
	}](t, rec)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, keep, out.Groups[0].KeepID)
	assert.Equal(t, []int64{dup}, out.Groups[0].MergeIDs)

	rec = s.api(http.MethodPost, "/api/riders/merge-all?dryRun=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dryRun":true`)

	rec = s.api(http.MethodPost, "/api/riders/merge-all", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[identity.BatchReport](t, rec)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.RecordsRetired)

	exists, err := s.db.NewSelect().Model((*models.Rider)(nil)).Where("id = ?", dup).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMergeRiders(t *testing.T) {
	s := newTestServer(t)
	keep := s.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl", LicenseID: strp("10000000001")})
	a := s.rider(models.Rider{Firstname: "Eva", Lastname: "Dahl"})
	b := s.rider(models.Rider{Firstname: "Eva", Lastname: "Dahlgren"})

	rec := s.api(http.MethodPost, "/api/riders/merge", fmt.Sprintf(`{"keepID":%d,"mergeIDs":[%d]}`, keep, a))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[identity.MergeReport](t, rec)
	assert.Equal(t, []int64{a}, report.MergedIDs)

	// Survivor picked by ranking.
	rec = s.api(http.MethodPost, "/api/riders/merge", fmt.Sprintf(`{"riderIDs":[%d,%d]}`, b, keep))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report = decode[identity.MergeReport](t, rec)
	assert.Equal(t, keep, report.KeepID)
	assert.Equal(t, []int64{b}, report.MergedIDs)

	rec = s.api(http.MethodPost, "/api/riders/merge", fmt.Sprintf(`{"keepID":%d,"mergeIDs":[]}`, keep))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.api(http.MethodPost, "/api/riders/merge", fmt.Sprintf(`{"keepID":%d,"mergeIDs":[9999]}`, keep))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExcludeRiders(t *testing.T) {
	s := newTestServer(t)
	x := s.rider(models.Rider{Firstname: "Lars", Lastname: "Nyberg"})
	y := s.rider(models.Rider{Firstname: "Lars", Lastname: "Nyberg"})
	z := s.rider(models.Rider{Firstname: "Lars", Lastname: "Nyberg"})

	rec := s.api(http.MethodPost, "/api/riders/exclude", fmt.Sprintf(`{"riderIDs":[%d,%d,%d]}`, x, y, z))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"excludedCount":3}`, rec.Body.String())

	rec = s.api(http.MethodPost, "/api/riders/exclude", fmt.Sprintf(`{"riderIDs":[%d]}`, x))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
