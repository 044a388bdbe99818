package realtime

import (
	"encoding/json"
	"sync"

	"github.com/quickshop/quickshop-backend/pkg/logger"
)

// Hub fans product change events out to every connected subscriber.
// Subscribers are anonymous: the storefront opens one socket per tab
// and every tab sees every product change.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan []byte, 1024),
	}
}

// Run processes register, unregister and broadcast events. Call it in
// its own goroutine before accepting connections.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Product feed client registered", map[string]interface{}{
				"total_clients": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Product feed client unregistered", map[string]interface{}{
				"total_clients": total,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Send buffer full, drop the slow client
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", nil)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish serializes an event and queues it for broadcast. Events are
// dropped when the broadcast buffer is full; the store mutation has
// already been committed and listing pages refetch on navigation.
func (h *Hub) Publish(event ProductEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal product event", err, map[string]interface{}{
			"product_id": event.ProductID,
			"type":       string(event.Type),
		})
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Broadcast channel full, product event dropped", map[string]interface{}{
			"product_id": event.ProductID,
		})
	}
}

// Register queues a client for registration
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount reports the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
