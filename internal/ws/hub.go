package ws

import (
	"context"
	"sync"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans payloads out to the subscribers of an owner.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	counts    chan countRequest
	done      chan struct{}
	stopOnce  sync.Once
}

type message struct {
	ownerID string
	payload []byte
}

type subscription struct {
	ownerID string
	client  Subscriber
}

type countRequest struct {
	ownerID string
	reply   chan int
}

const defaultBroadcastBuffer = 64

// NewHub creates a Hub and starts its loop. buffer bounds queued broadcasts.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBroadcastBuffer
	}
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, buffer),
		counts:    make(chan countRequest),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = nil
			return
		case sub := <-h.register:
			if _, ok := h.clients[sub.ownerID]; !ok {
				h.clients[sub.ownerID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.ownerID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.ownerID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.ownerID)
				}
			}
		case req := <-h.counts:
			req.reply <- len(h.clients[req.ownerID])
		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.ownerID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.ownerID)
				}
			}
		}
	}
}

// Register adds a client to an owner stream.
func (h *Hub) Register(ownerID string, client Subscriber) {
	select {
	case h.register <- subscription{ownerID: ownerID, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(ownerID string, client Subscriber) {
	select {
	case h.unreg <- subscription{ownerID: ownerID, client: client}:
	case <-h.done:
	}
}

// Broadcast queues payload for every subscriber of ownerID.
func (h *Hub) Broadcast(ctx context.Context, ownerID string, payload []byte) error {
	select {
	case <-h.done:
		return context.Canceled
	default:
	}
	select {
	case h.broadcast <- message{ownerID: ownerID, payload: payload}:
		return nil
	case <-h.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers reports how many clients are attached to ownerID.
func (h *Hub) Subscribers(ownerID string) int {
	reply := make(chan int, 1)
	select {
	case h.counts <- countRequest{ownerID: ownerID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Stop closes every subscriber and ends the loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
