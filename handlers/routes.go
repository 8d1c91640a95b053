package handlers

import (
	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/riderapi/middleware"
)

// Register mounts the public signin route and the protected /api group.
func (h *Handler) Register(e *echo.Echo) {
	// Public
	e.POST("/api/signin", h.Signin)

	// Protected – require valid JWT in Authorization header
	api := e.Group("/api", mw.JWT(h.JWTKey))
	api.POST("/password-hash", h.PasswordHash)
	api.GET("/clubs", h.Clubs)
	api.POST("/clubs", h.CreateClub)
	api.GET("/riders", h.SearchRiders)
	api.GET("/riders/:id/results", h.RiderResults)
	api.POST("/riders/match", h.MatchRider)
	api.POST("/riders/match/batch", h.MatchRiders)
	api.POST("/riders/resolve", h.ResolveRider)
	api.GET("/riders/duplicates", h.Duplicates)
	api.POST("/riders/merge", h.MergeRiders)
	api.POST("/riders/merge-all", h.MergeAll)
	api.POST("/riders/exclude", h.ExcludeRiders)
}
