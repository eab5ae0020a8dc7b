package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	EventMessageCreated      = "message.created"
	EventMessageRead         = "message.read"
	EventNotificationCreated = "notification.created"
)

// Event is one server push frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher delivers events to a user's live connections, best effort.
type Publisher interface {
	Publish(userID uint, ev Event)
}

type delivery struct {
	userID  uint
	payload []byte
}

// Hub tracks live websocket clients per user and fans events out to them.
type Hub struct {
	log      *slog.Logger
	mu       sync.RWMutex
	clients  map[uint]map[*Client]struct{}
	outbound chan delivery
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:      log,
		clients:  make(map[uint]map[*Client]struct{}),
		outbound: make(chan delivery, 256),
	}
}

// Run fans queued events out until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case d := <-h.outbound:
			h.deliver(d)
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					c.close()
				}
			}
			h.clients = make(map[uint]map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish never blocks; the event is dropped when the hub is backed up.
func (h *Hub) Publish(userID uint, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("realtime: marshal event", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.outbound <- delivery{userID: userID, payload: payload}:
	default:
		h.log.Warn("realtime: outbound queue full, dropping event", "type", ev.Type, "user_id", userID)
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients[d.userID] {
		if !c.queue(d.payload) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("realtime: dropping slow client", "user_id", c.userID)
		h.unregister(c)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			c.close()
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// ClientCount reports how many live connections userID has.
func (h *Hub) ClientCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
