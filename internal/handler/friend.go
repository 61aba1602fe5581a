package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/repository"
	syncpkg "github.com/velora/nightpulse/internal/sync"
)

// FriendHandler serves friend requests.
type FriendHandler struct {
	Gateway *syncpkg.Gateway
}

func NewFriendHandler(g *syncpkg.Gateway) *FriendHandler { return &FriendHandler{Gateway: g} }

type sendRequestReq struct {
	UserID uint64 `json:"user_id"`
}

// Send creates a pending friend request to another user.
func (h *FriendHandler) Send(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sendRequestReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	if req.UserID == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot befriend yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	fr, err := h.Gateway.SendFriendRequest(ctx, uid, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send request failed"})
	}
	return c.JSON(http.StatusCreated, fr)
}

// Accept flips a pending request addressed to the caller to accepted.
func (h *FriendHandler) Accept(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Gateway.AcceptFriendRequest(ctx, id, uid); err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "friend request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "accept failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Pending lists requests waiting on the caller.
func (h *FriendHandler) Pending(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reqs, err := h.Gateway.PendingFriendRequests(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load requests failed"})
	}
	return c.JSON(http.StatusOK, reqs)
}
