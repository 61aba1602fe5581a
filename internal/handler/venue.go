package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/model"
	"github.com/velora/nightpulse/internal/repository"
	syncpkg "github.com/velora/nightpulse/internal/sync"
)

// VenueHandler serves the public venue surface: browsing plus the
// guest side of staff calls.
type VenueHandler struct {
	Gateway *syncpkg.Gateway
}

func NewVenueHandler(g *syncpkg.Gateway) *VenueHandler { return &VenueHandler{Gateway: g} }

// List returns all venues sorted by crowd, falling back to the local
// snapshot (and ultimately the bundled defaults) when the remote store
// is unreachable. Never errors.
func (h *VenueHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	return c.JSON(http.StatusOK, h.Gateway.Venues(ctx))
}

// Get returns a single venue by id.
func (h *VenueHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Gateway.Venue(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPlaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load venue failed"})
	}
	return c.JSON(http.StatusOK, v)
}

type raiseCallReq struct {
	Category string `json:"category"` // order | bill | help
	CallID   string `json:"call_id"`  // client-generated, keeps retries idempotent
}

// RaiseCall lets an authenticated guest open a staff call at a venue.
func (h *VenueHandler) RaiseCall(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	var req raiseCallReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	switch req.Category {
	case model.CallOrder, model.CallBill, model.CallHelp:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}
	if strings.TrimSpace(req.CallID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "call_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Gateway.Profile(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	call, err := h.Gateway.RaiseCall(ctx, venueID, *p, req.Category, req.CallID)
	if err != nil {
		if errors.Is(err, repository.ErrPlaceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "raise call failed"})
	}
	return c.JSON(http.StatusCreated, call)
}

// DeleteCall removes a finished call from the requester's view. Only
// the guest who raised it can dismiss it, and only once it is done.
func (h *VenueHandler) DeleteCall(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Gateway.DeleteCall(ctx, venueID, uid, callID); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, syncpkg.ErrCallNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "staff call not found"})
	case errors.Is(err, syncpkg.ErrCallNotDone):
		return c.JSON(http.StatusConflict, echo.Map{"error": "staff call not done"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your call"})
	case errors.Is(err, repository.ErrPlaceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete call failed"})
	}
}
