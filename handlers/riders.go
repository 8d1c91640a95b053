package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/identity"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// engineError maps identity failures to HTTP errors.
func engineError(err error) error {
	switch {
	case errors.Is(err, identity.ErrIncompleteName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrAmbiguousMerge), errors.Is(err, identity.ErrInvalidExclusionInput):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, identity.ErrTransactionFailure):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// SearchRiders returns riders whose name contains the q param.
func (h *Handler) SearchRiders(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing q param")
	}
	limit := defaultSearchLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit param")
		}
		limit = min(n, maxSearchLimit)
	}

	riders, err := h.resolver.Store().Search(c.Request().Context(), q, limit)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, riders)
}

// MatchRider returns the best canonical match for one incoming record. A
// miss is a 200 with matchType "not_found".
func (h *Handler) MatchRider(c echo.Context) error {
	var in identity.IncomingRecord
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.resolver.FindCandidate(c.Request().Context(), in)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type matchBatchRequest struct {
	Records []identity.IncomingRecord `json:"records" validate:"required,min=1,max=5000,dive"`
}

// MatchRiders previews a whole import, one result per record in order.
func (h *Handler) MatchRiders(c echo.Context) error {
	var req matchBatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	results, err := h.resolver.FindCandidates(c.Request().Context(), req.Records)
	if err != nil {
		return engineError(err)
	}

	found := 0
	for _, r := range results {
		if r.Found() {
			found++
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
		"matched": found,
		"total":   len(results),
	})
}

// ResolveRider returns the canonical id for a record, creating the rider
// when nothing matches.
func (h *Handler) ResolveRider(c echo.Context) error {
	var in identity.IncomingRecord
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := h.resolver.FindOrCreate(c.Request().Context(), in)
	if err != nil {
		return engineError(err)
	}
	if res.Created {
		return c.JSON(http.StatusCreated, res)
	}
	return c.JSON(http.StatusOK, res)
}

// Duplicates runs the duplicate scan and returns the planned groups.
func (h *Handler) Duplicates(c echo.Context) error {
	groups, err := h.resolver.DetectDuplicateGroups(c.Request().Context())
	if err != nil {
		return engineError(err)
	}
	if groups == nil {
		groups = []identity.DuplicateGroup{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"groups": groups,
		"count":  len(groups),
	})
}

type mergeRequest struct {
	KeepID   int64   `json:"keepID" validate:"gte=0"`
	MergeIDs []int64 `json:"mergeIDs"`
	// RiderIDs lets the operator pick the members and have the survivor
	// chosen by the ranking rules.
	RiderIDs []int64 `json:"riderIDs"`
}

// MergeRiders merges one group, either with an explicit survivor or ranked
// from riderIDs.
func (h *Handler) MergeRiders(c echo.Context) error {
	var req mergeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	keep, merge := req.KeepID, req.MergeIDs
	if keep == 0 && len(req.RiderIDs) > 0 {
		group, err := h.resolver.PlanGroup(ctx, req.RiderIDs)
		if err != nil {
			return engineError(err)
		}
		keep, merge = group.KeepID, group.MergeIDs
	}

	report, err := h.resolver.MergeGroup(ctx, keep, merge)
	if err != nil {
		return engineError(err)
	}
	h.log.Info("merge requested",
		zap.String("by", usernameOf(c)),
		zap.Int64("keep_id", report.KeepID),
		zap.Int64s("merged_ids", report.MergedIDs),
	)
	return c.JSON(http.StatusOK, report)
}

// MergeAll detects duplicate groups and merges each one. With dryRun=true
// the planned groups are returned and nothing is changed.
func (h *Handler) MergeAll(c echo.Context) error {
	ctx := c.Request().Context()
	groups, err := h.resolver.DetectDuplicateGroups(ctx)
	if err != nil {
		return engineError(err)
	}

	if dry, _ := strconv.ParseBool(c.QueryParam("dryRun")); dry {
		if groups == nil {
			groups = []identity.DuplicateGroup{}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"groups": groups,
			"count":  len(groups),
			"dryRun": true,
		})
	}

	report := h.resolver.MergeAll(ctx, groups)
	h.log.Info("merge-all requested", zap.String("by", usernameOf(c)), zap.String("run_id", report.RunID))
	return c.JSON(http.StatusOK, report)
}

type excludeRequest struct {
	RiderIDs []int64 `json:"riderIDs"`
}

// ExcludeRiders records that the given riders are different people.
func (h *Handler) ExcludeRiders(c echo.Context) error {
	var req excludeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	n, err := h.resolver.ExcludePair(c.Request().Context(), req.RiderIDs)
	if err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"excludedCount": n})
}

func usernameOf(c echo.Context) string {
	s, _ := c.Get("username").(string)
	return s
}
