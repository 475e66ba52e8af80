package ws

import "sync"

// Notice types delivered through the Hub.
const (
	NoticeTeamsChanged = "teams_changed"
)

// Notice tells a user's open dashboards that data they show has changed.
type Notice struct {
	Type   string `json:"type"`
	TeamID string `json:"team_id,omitempty"`
}

// Subscriber receives notices for one user. Send must not block.
type Subscriber interface {
	Send(Notice) error
	Close()
}

// Hub fans notices out to the subscribers of each user.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type message struct {
	userID string
	notice Notice
}

type subscription struct {
	userID string
	client Subscriber
}

// NewHub creates a running Hub. Call Close to stop it.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.userID]; !ok {
				h.clients[sub.userID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.userID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.userID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.userID)
				}
			}
		case msg := <-h.broadcast:
			clients := h.clients[msg.userID]
			for c := range clients {
				if err := c.Send(msg.notice); err != nil {
					c.Close()
					delete(clients, c)
				}
			}
			if clients != nil && len(clients) == 0 {
				delete(h.clients, msg.userID)
			}
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = nil
			return
		}
	}
}

// Register subscribes client to notices for userID.
func (h *Hub) Register(userID string, client Subscriber) {
	select {
	case h.register <- subscription{userID: userID, client: client}:
	case <-h.done:
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(userID string, client Subscriber) {
	select {
	case h.unreg <- subscription{userID: userID, client: client}:
	case <-h.done:
	}
}

// Broadcast delivers notice to every subscriber of userID.
func (h *Hub) Broadcast(userID string, notice Notice) {
	select {
	case h.broadcast <- message{userID: userID, notice: notice}:
	case <-h.done:
	}
}

// Close stops the hub and closes the remaining subscribers.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}
