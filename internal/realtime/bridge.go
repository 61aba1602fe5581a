package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/velora/nightpulse/internal/model"
)

// Bridge is one session's subscription to the change stream. It binds
// an exclusive auto-delete queue to the fanout exchange, runs a
// reconnect loop, and patches its LiveCache per notification. It must
// be closed explicitly when the session ends; otherwise every remount
// would leak a live channel.
type Bridge struct {
	uid   uint64
	cache *LiveCache
	url   string

	notes chan Notification

	// callID -> last status a toast was raised for, so redelivered
	// venue updates cannot re-toast the same transition.
	toasted map[string]string

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
	done   chan struct{}
}

// NewBridge builds a bridge for the given session identity. Call Start
// to begin consuming and Close to release the subscription.
func NewBridge(userID uint64, cache *LiveCache) *Bridge {
	return &Bridge{
		uid:     userID,
		cache:   cache,
		url:     BrokerURL(),
		notes:   make(chan Notification, 32),
		toasted: make(map[string]string),
		done:    make(chan struct{}),
	}
}

// Notifications delivers the typed cross-cutting events this bridge
// raises. The channel is buffered; when nobody drains it, further
// notifications are dropped rather than blocking the consume loop.
func (b *Bridge) Notifications() <-chan Notification {
	return b.notes
}

// Start runs the consume loop in a goroutine, reconnecting with capped
// exponential backoff until Close is called.
func (b *Bridge) Start() {
	go func() {
		backoff := time.Second
		for {
			select {
			case <-b.done:
				return
			default:
			}

			conn, err := amqp.Dial(b.url)
			if err != nil {
				log.Printf("realtime: dial broker failed: %v; retrying in %s", err, backoff)
				if !b.pause(backoff) {
					return
				}
				if backoff < 30*time.Second {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second // reset after successful connect

			b.mu.Lock()
			if b.closed {
				b.mu.Unlock()
				_ = conn.Close()
				return
			}
			b.conn = conn
			b.mu.Unlock()

			if err := b.consumeLoop(conn); err != nil {
				select {
				case <-b.done:
					return
				default:
				}
				log.Printf("realtime: consume loop ended: %v; reconnecting", err)
				if !b.pause(2 * time.Second) {
					return
				}
			}
		}
	}()
}

// pause waits d between reconnect attempts. Returns false when the
// bridge was closed during the wait so the loop exits promptly.
func (b *Bridge) pause(d time.Duration) bool {
	select {
	case <-b.done:
		return false
	case <-time.After(d):
		return true
	}
}

// Close releases the subscription. The consume loop exits once its
// deliveries channel closes.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

func (b *Bridge) consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}

	// Exclusive auto-delete queue: the broker names it and tears it
	// down with the connection, one per session.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := b.handleDelivery(d.Body); err != nil {
			log.Printf("realtime: handle change failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (b *Bridge) handleDelivery(body []byte) error {
	var ev ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return b.Apply(ev)
}

// Apply patches the live cache with one change event and raises any
// notifications it implies. Split from the consume loop so the merge
// semantics are testable without a broker.
func (b *Bridge) Apply(ev ChangeEvent) error {
	switch ev.Table {
	case TablePlaces:
		switch ev.Kind {
		case KindInsert:
			return b.cache.ApplyVenueInsert(ev.Row)
		case KindUpdate:
			if err := b.cache.ApplyVenueUpdate(ev.Row); err != nil {
				return err
			}
			b.toastOwnCalls(ev.Row)
			return nil
		case KindDelete:
			return b.cache.ApplyVenueDelete(ev.Row)
		}
	case TableFeed:
		if ev.Kind == KindInsert {
			return b.cache.ApplyFeedInsert(ev.Row)
		}
	case TableChats:
		return b.applyChatChange(ev)
	case TableFriendRequests:
		if ev.Kind == KindInsert {
			var fr model.FriendRequest
			if err := json.Unmarshal(ev.Row, &fr); err != nil {
				return err
			}
			if fr.ReceiverID == b.uid {
				b.notify(FriendRequestReceived{RequestID: fr.ID, SenderID: fr.SenderID})
			}
		}
	}
	return nil
}

// toastOwnCalls raises a toast when one of the session's own staff
// calls reached ready or done in a venue update.
func (b *Bridge) toastOwnCalls(row json.RawMessage) {
	var partial struct {
		Name        string            `json:"name"`
		ActiveCalls []model.StaffCall `json:"active_calls"`
	}
	if err := json.Unmarshal(row, &partial); err != nil {
		return
	}
	for _, call := range partial.ActiveCalls {
		if call.UserID != b.uid {
			continue
		}
		if call.Status != model.CallReady && call.Status != model.CallDone {
			continue
		}
		if b.toasted[call.ID] == call.Status {
			continue
		}
		b.toasted[call.ID] = call.Status
		b.notify(ToastAlert{Message: fmt.Sprintf("your %s request at %s is %s", call.Category, partial.Name, call.Status)})
	}
}

// applyChatChange reacts to any chat change involving the session
// identity: the chat list is flagged stale and a ChatListChanged event
// raised; inserts additionally raise NewMessage unless self-authored.
func (b *Bridge) applyChatChange(ev ChangeEvent) error {
	var c model.Chat
	if err := json.Unmarshal(ev.Row, &c); err != nil {
		return err
	}
	if !c.Involves(b.uid) {
		return nil
	}
	b.cache.MarkChatsStale()
	b.notify(ChatListChanged{})

	if ev.Kind == KindInsert {
		var partial struct {
			SenderID uint64 `json:"sender_id"`
		}
		_ = json.Unmarshal(ev.Row, &partial)
		if partial.SenderID != b.uid {
			b.notify(NewMessage{ChatID: c.ID, SenderID: partial.SenderID, Preview: c.LastMessage})
		}
	}
	return nil
}

func (b *Bridge) notify(n Notification) {
	select {
	case b.notes <- n:
	default:
		// Drop rather than block the consume loop.
	}
}
