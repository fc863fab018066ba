package mockapi

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/realtime"
	"github.com/foodiehq/storefront/utils"
)

// Hub fans order-change events out to every connected push-channel
// client. Filtering happens client-side, so the hub broadcasts
// unconditionally.
type Hub struct {
	clients map[*websocket.Conn]struct{}
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// BroadcastOrderUpdate advises every client that an order changed.
func (h *Hub) BroadcastOrderUpdate(order models.Order) {
	h.broadcast(realtime.Message{
		Event: realtime.EventOrdersUpdate,
		Data:  mustMarshal(realtime.OrderEvent{Action: realtime.ActionUpdate, Order: order}),
	})
}

func (h *Hub) broadcast(msg realtime.Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("hub: marshal failed: %v", err)
		}
		return
	}

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			if utils.ErrorLogger != nil {
				utils.ErrorLogger.Printf("hub: send failed: %v", err)
			}
		}
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
