package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/utils"
)

// Event names on the push channel.
const (
	EventOrdersUpdate = "orders:update"
)

// Actions carried by an order event payload.
const (
	ActionUpdate = "update"
)

// Message is the wire envelope on the push channel.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OrderEvent advises that an order changed. The embedded order is a
// hint for matching and display only, never the source of truth: the
// consumer re-fetches through the pull path.
type OrderEvent struct {
	Action string       `json:"action"`
	Order  models.Order `json:"order"`
}

// Listener holds one subscription to the push channel. It surfaces a
// notification for events belonging to the viewer and triggers the
// advisory OnOrderUpdate callback; admins match every event.
type Listener struct {
	conn     *websocket.Conn
	viewer   *models.User
	notifier Notifier

	// OnOrderUpdate, when set, is invoked for every matching event.
	// Consumers use it to re-fetch the order they are displaying.
	OnOrderUpdate func(models.Order)

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the push channel and starts the read loop. The
// viewer may be nil (pure guest session): no events match and the
// subscription only keeps the channel warm. Close tears the
// subscription down on unmount or logout.
func Dial(ctx context.Context, socketURL string, viewer *models.User, notifier Notifier) (*Listener, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("push channel dial failed: %w", err)
	}

	l := &Listener{
		conn:     conn,
		viewer:   viewer,
		notifier: notifier,
		done:     make(chan struct{}),
	}
	go l.readLoop()
	return l, nil
}

// Done is closed when the read loop exits.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Close tears down the subscription. Reconnection is the caller's
// decision; the listener itself never redials.
func (l *Listener) Close() {
	l.closeOnce.Do(func() {
		_ = l.conn.Close()
	})
}

func (l *Listener) readLoop() {
	defer close(l.done)
	defer l.Close()

	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			if utils.ErrorLogger != nil {
				utils.ErrorLogger.Printf("push channel: bad frame: %v", err)
			}
			continue
		}
		if msg.Event != EventOrdersUpdate {
			continue
		}

		var event OrderEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			if utils.ErrorLogger != nil {
				utils.ErrorLogger.Printf("push channel: bad order event: %v", err)
			}
			continue
		}
		if event.Action != ActionUpdate {
			continue
		}

		event.Order.Normalize()
		if !l.matches(&event.Order) {
			continue
		}

		if l.notifier != nil {
			l.notifier.Notify(
				"Order update",
				fmt.Sprintf("Order #%s is now %s", event.Order.OrderNumber, event.Order.Status),
			)
		}
		if l.OnOrderUpdate != nil {
			l.OnOrderUpdate(event.Order)
		}
	}
}

// matches reports whether the event concerns the current viewer. The
// admin console watches every order.
func (l *Listener) matches(order *models.Order) bool {
	if l.viewer == nil {
		return false
	}
	if l.viewer.IsAdmin() {
		return true
	}
	id := l.viewer.ResolvedID()
	return id != "" && order.UserID == id
}
