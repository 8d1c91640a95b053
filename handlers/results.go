package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/riderapi/models"
)

// riderResultRow is a flat scan target for the rider results query.
type riderResultRow struct {
	ID         int64   `bun:"id"`
	EventID    int64   `bun:"event_id"`
	Class      string  `bun:"class"`
	Position   *int    `bun:"position"`
	Status     string  `bun:"status"`
	FinishTime *string `bun:"finish_time"`
	Points     *int    `bun:"points"`
}

type riderResult struct {
	ID         int64   `json:"id"`
	Class      string  `json:"class"`
	Position   *int    `json:"position,omitempty"`
	Status     string  `json:"status"`
	FinishTime *string `json:"finishTime,omitempty"`
	Points     *int    `json:"points,omitempty"`
}

type riderEvent struct {
	EventID int64         `json:"eventID"`
	Results []riderResult `json:"results"`
}

type riderResults struct {
	Rider  models.Rider `json:"rider"`
	Events []riderEvent `json:"events"`
	Total  int          `json:"total"`
}

const riderResultsSQL = `
SELECT r.id, r.event_id, r.class, r.position, r.status, r.finish_time, r.points
FROM results r
WHERE r.rider_id = ?
ORDER BY r.event_id DESC, r.class, r.id
`

// RiderResults returns one rider with every result they hold, grouped by
// event. Operators use it to check a merge before and after.
func (h *Handler) RiderResults(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rider id")
	}
	ctx := c.Request().Context()

	riders, err := h.resolver.Store().ByIDs(ctx, []int64{id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(riders) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "rider not found")
	}

	var rows []riderResultRow
	if err := h.db.NewRaw(riderResultsSQL, id).Scan(ctx, &rows); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, riderResults{
		Rider:  riders[0],
		Events: groupResultsByEvent(rows),
		Total:  len(rows),
	})
}

// groupResultsByEvent converts flat rows into event-grouped slices, keeping
// row order.
func groupResultsByEvent(rows []riderResultRow) []riderEvent {
	order := []int64{}
	events := map[int64]*riderEvent{}

	for _, row := range rows {
		if _, ok := events[row.EventID]; !ok {
			order = append(order, row.EventID)
			events[row.EventID] = &riderEvent{EventID: row.EventID, Results: []riderResult{}}
		}
		events[row.EventID].Results = append(events[row.EventID].Results, riderResult{
			ID:         row.ID,
			Class:      row.Class,
			Position:   row.Position,
			Status:     row.Status,
			FinishTime: row.FinishTime,
			Points:     row.Points,
		})
	}

	out := make([]riderEvent, 0, len(order))
	for _, k := range order {
		out = append(out, *events[k])
	}
	return out
}
