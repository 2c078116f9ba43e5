package websocket

import (
	"encoding/json"
	"sync"
)

// BalanceUpdate is pushed to a user's sockets whenever their ledger balance
// changes (accrual credit, confirmed transaction, admin adjustment).
type BalanceUpdate struct {
	Balance string `json:"balance"`
	Reason  string `json:"reason"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
