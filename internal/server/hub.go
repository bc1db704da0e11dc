package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"TradeDeck/internal/store"
	"TradeDeck/internal/view"
)

// Envelope is one message pushed to websocket clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	MessageState = "state"
	MessageReply = "reply"
)

type client struct {
	id   string
	send chan []byte
}

type direct struct {
	c    *client
	data []byte
}

// Hub fans state snapshots out to websocket clients. A single goroutine owns
// the client set; everything else talks to it through channels. Slow clients
// lose their oldest buffered message.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	directCh   chan direct
	started    atomic.Bool
	count      atomic.Int32
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		broadcast:  make(chan []byte, 64),
		directCh:   make(chan direct, 16),
	}
}

// Attach publishes every store transition. The returned func detaches.
func (h *Hub) Attach(st *store.Store) (detach func()) {
	return st.Subscribe(func(_, next store.State) { h.Publish(next) })
}

// Publish queues the view of s for every client.
func (h *Hub) Publish(s store.State) {
	data, err := encode(MessageState, view.Build(s))
	if err != nil {
		log.Error().Err(err).Msg("encode state")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn().Msg("hub broadcast queue full, dropping state")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

func encode(kind string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: kind, Data: data})
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return errors.New("hub already running")
	}
	defer func() {
		for c := range h.clients {
			close(c.send)
		}
		h.clients = make(map[*client]struct{})
		h.count.Store(0)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("websocket hub stopped")
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int32(len(h.clients)))
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				deliver(c, data)
			}
		case d := <-h.directCh:
			if _, ok := h.clients[d.c]; ok {
				deliver(d.c, d.data)
			}
		}
	}
}

func deliver(c *client, data []byte) {
	select {
	case c.send <- data:
		return
	default:
	}
	log.Debug().Str("client", c.id).Msg("client too slow, dropping oldest message")
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) newClient() *client {
	return &client{id: uuid.NewString(), send: make(chan []byte, 32)}
}

func (h *Hub) join(ctx context.Context, c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) leave(ctx context.Context, c *client) {
	select {
	case h.unregister <- c:
	case <-ctx.Done():
	}
}

func (h *Hub) sendTo(ctx context.Context, c *client, data []byte) {
	select {
	case h.directCh <- direct{c: c, data: data}:
	case <-ctx.Done():
	}
}
