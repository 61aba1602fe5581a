package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velora/nightpulse/internal/realtime"
)

// StreamHandler serves the live notification stream. Each connection
// gets its own realtime bridge (change consumption + live cache) plus
// a hub subscription for the notifications the write path raises
// directly, and both are torn down when the client disconnects.
type StreamHandler struct {
	Hub *realtime.Hub

	// newBridge builds and starts one session's bridge; tests swap it
	// for a bridge that is never started against a broker.
	newBridge func(userID uint64) *realtime.Bridge
}

func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{
		Hub: hub,
		newBridge: func(userID uint64) *realtime.Bridge {
			b := realtime.NewBridge(userID, realtime.NewLiveCache())
			b.Start()
			return b
		},
	}
}

// Stream is the SSE endpoint: one long-lived response per session,
// writing each notification as an event with a variant-specific name.
func (h *StreamHandler) Stream(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
	}

	bridge := h.newBridge(uid)
	defer bridge.Close()
	direct, cancel := h.Hub.Subscribe(uid)
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	// Periodic comments keep intermediaries from idling the
	// connection out and surface dead clients as write errors.
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-bridge.Notifications():
			if err := writeSSE(res, n); err != nil {
				return nil
			}
		case n := <-direct:
			if err := writeSSE(res, n); err != nil {
				return nil
			}
		case <-ping.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSE(res *echo.Response, n realtime.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", sseEventName(n), payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func sseEventName(n realtime.Notification) string {
	switch n.(type) {
	case realtime.ToastAlert:
		return "toast"
	case realtime.NewMessage:
		return "message"
	case realtime.FriendRequestReceived:
		return "friend_request"
	case realtime.ChatListChanged:
		return "chat_list_changed"
	case realtime.LevelUp:
		return "level_up"
	}
	return "notification"
}
