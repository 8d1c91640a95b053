package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/riderapi/models"
	"github.com/padraicbc/riderapi/normalize"
)

type clubData struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Riders int    `json:"riders"`
}

type createClubRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// Clubs returns all clubs with their rider counts, optionally filtered by a
// name fragment in q.
func (h *Handler) Clubs(c echo.Context) error {
	var clubs []clubData
	q := h.db.NewSelect().
		TableExpr("clubs AS cl").
		ColumnExpr("cl.id, cl.name").
		ColumnExpr("(SELECT COUNT(*) FROM riders AS rd WHERE rd.club_id = cl.id) AS riders").
		OrderExpr("cl.name ASC")

	if name := strings.TrimSpace(c.QueryParam("q")); name != "" {
		q = q.Where("LOWER(cl.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	if err := q.Scan(c.Request().Context(), &clubs); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if clubs == nil {
		clubs = []clubData{}
	}
	return c.JSON(http.StatusOK, clubs)
}

// CreateClub inserts a new club.
func (h *Handler) CreateClub(c echo.Context) error {
	var req createClubRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = normalize.CollapseSpaces(req.Name)
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	club := &models.Club{Name: req.Name}
	if _, err := h.db.NewInsert().Model(club).Exec(c.Request().Context()); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint") {
			return echo.NewHTTPError(http.StatusConflict, "club already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, clubData{ID: club.ID, Name: club.Name})
}
