package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/repository"
	syncpkg "github.com/velora/nightpulse/internal/sync"
)

// FeedHandler serves the activity feed and check-ins.
type FeedHandler struct {
	Gateway *syncpkg.Gateway
}

func NewFeedHandler(g *syncpkg.Gateway) *FeedHandler { return &FeedHandler{Gateway: g} }

// List returns recent feed items, newest first. Serves the snapshot
// (or an empty list) when the remote store is down.
func (h *FeedHandler) List(c echo.Context) error {
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	return c.JSON(http.StatusOK, h.Gateway.Feed(ctx, limit))
}

type checkInReq struct {
	VenueID uint64 `json:"venue_id"`
}

// CheckIn records a visit: XP award, feed entry, crowd bump and visit
// log in one transaction.
func (h *FeedHandler) CheckIn(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req checkInReq
	if err := c.Bind(&req); err != nil || req.VenueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Gateway.CheckIn(ctx, uid, req.VenueID)
	if err != nil {
		if errors.Is(err, repository.ErrPlaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		}
		if errors.Is(err, repository.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	return c.JSON(http.StatusCreated, res)
}
