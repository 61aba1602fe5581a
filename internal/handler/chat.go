package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/model"
	syncpkg "github.com/velora/nightpulse/internal/sync"
)

// ChatHandler serves the direct-message surface. Chat ids are the
// sorted participant pair, so membership checks are just an id parse.
type ChatHandler struct {
	Gateway *syncpkg.Gateway
}

func NewChatHandler(g *syncpkg.Gateway) *ChatHandler { return &ChatHandler{Gateway: g} }

// memberOf reports whether uid is one of the two participants encoded
// in the chat id.
func memberOf(chatID string, uid uint64) bool {
	low, high := model.SplitChatID(chatID)
	return uid != 0 && (uid == low || uid == high)
}

// List returns the caller's chats, newest activity first, from the
// snapshot when the remote store is down.
func (h *ChatHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	return c.JSON(http.StatusOK, h.Gateway.Chats(ctx, uid))
}

type startChatReq struct {
	UserID uint64 `json:"user_id"`
}

// Start opens (or refreshes) the chat between the caller and another
// user. Starting the same pair twice lands on the same chat.
func (h *ChatHandler) Start(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startChatReq
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	if req.UserID == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot chat with yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	me, err := h.Gateway.Profile(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "profile not found"})
	}
	them, err := h.Gateway.Profile(ctx, req.UserID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "target profile not found"})
	}
	chat, err := h.Gateway.StartChat(ctx, *me, *them)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start chat failed"})
	}
	return c.JSON(http.StatusCreated, chat)
}

// Messages returns a chat's messages oldest first.
func (h *ChatHandler) Messages(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID := c.Param("chat_id")
	if !memberOf(chatID, uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your chat"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msgs, err := h.Gateway.Messages(ctx, chatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load messages failed"})
	}
	return c.JSON(http.StatusOK, msgs)
}

type sendMessageReq struct {
	Content string `json:"content"`
}

// Send appends a message; the chat summary (last message, unread
// count) moves in the same transaction.
func (h *ChatHandler) Send(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID := c.Param("chat_id")
	if !memberOf(chatID, uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your chat"})
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msg, err := h.Gateway.SendMessage(ctx, chatID, uid, req.Content)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send failed"})
	}
	return c.JSON(http.StatusCreated, msg)
}

// MarkRead zeroes the caller's unread counter for a chat.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID := c.Param("chat_id")
	if !memberOf(chatID, uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your chat"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Gateway.MarkChatRead(ctx, chatID, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "mark read failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
