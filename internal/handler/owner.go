package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
	syncpkg "github.com/velora/nightpulse/internal/sync"
)

// OwnerHandler covers the venue-owner dashboard: editing the venue,
// working staff calls and reading visit analytics. Every operation is
// scoped to the authenticated owner.
type OwnerHandler struct {
	Gateway *syncpkg.Gateway
}

func NewOwnerHandler(g *syncpkg.Gateway) *OwnerHandler { return &OwnerHandler{Gateway: g} }

// PatchVenue applies a partial update to the owner's venue. Only the
// fields present in the body change; capacity is clamped to [0,100].
func (h *OwnerHandler) PatchVenue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	var patch model.VenuePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Gateway.PatchVenue(ctx, venueID, uid, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPlaceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your venue"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update venue failed"})
		}
	}
	return c.JSON(http.StatusOK, v)
}

type transitionReq struct {
	Status string `json:"status"` // preparing | ready | done
}

// TransitionCall advances a staff call along pending -> preparing ->
// ready -> done. Invalid jumps are rejected and the local snapshot is
// rolled back if the remote write fails.
func (h *OwnerHandler) TransitionCall(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	callID := c.Param("call_id")
	if callID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "call_id required"})
	}
	var req transitionReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Gateway.TransitionCall(ctx, venueID, uid, callID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, syncpkg.ErrInvalidTransition):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid call transition"})
		case errors.Is(err, syncpkg.ErrCallNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "staff call not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your venue"})
		case errors.Is(err, repository.ErrPlaceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transition failed"})
		}
	}
	return c.JSON(http.StatusOK, v)
}

// VisitsByHour returns the 24-bucket visit histogram for the owner's
// venue, built from the business log.
func (h *OwnerHandler) VisitsByHour(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Ownership check before exposing analytics.
	if _, err := h.Gateway.OwnerVenue(ctx, venueID, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrPlaceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your venue"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load venue failed"})
		}
	}

	buckets, err := h.Gateway.VisitsByHour(ctx, venueID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load analytics failed"})
	}
	return c.JSON(http.StatusOK, buckets)
}
