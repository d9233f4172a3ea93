package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackwatters45/blog-api/logger"
)

const (
	EventCommentCreated = "comment_created"
	EventCommentReply   = "comment_reply"
	EventPostLiked      = "post_liked"
	EventUserFollowed   = "user_followed"
	eventConnected      = "connected"
	eventPong           = "pong"

	sendBuffer   = 256
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

var ErrHubStopped = errors.New("notification hub stopped")

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Time    int64  `json:"time"`
}

type delivery struct {
	userID string
	msg    []byte
}

// Hub keeps the open notification sockets of every signed-in user and
// routes events to the sockets of their recipient.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

type Client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	hub    *Hub
}

// NewHub accepts upgrades from the listed origins and from clients that
// send no Origin header.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, sendBuffer),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Run owns the client registry until ctx is cancelled, then closes every
// socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*Client]bool)
			}
			h.clients[c.userID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case d := <-h.deliver:
			h.mu.Lock()
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.msg:
				default:
					// Slow client, drop it.
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Notify queues an event for recipient. Events caused by the recipient
// themselves are not sent, and a full queue drops the event.
func (h *Hub) Notify(recipient, actor, eventType string, payload any) {
	if recipient == "" || recipient == actor {
		return
	}
	msg, err := json.Marshal(Event{Type: eventType, Payload: payload, Time: time.Now().Unix()})
	if err != nil {
		logger.Error.Printf("[Hub] marshal %s event: %v", eventType, err)
		return
	}
	select {
	case h.deliver <- delivery{userID: recipient, msg: msg}:
	default:
		logger.Warn.Printf("[Hub] queue full, dropping %s event for %s", eventType, recipient)
	}
}

func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades the request and attaches the socket to userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	welcome, _ := json.Marshal(Event{
		Type:    eventConnected,
		Payload: map[string]any{"userId": userID},
		Time:    time.Now().Unix(),
	})
	c.send <- welcome

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn.Printf("[Hub] read error for %s: %v", c.userID, err)
			}
			return
		}

		var data struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}
		if data.Type == "ping" {
			c.hub.pong(c)
		}
	}
}

// pong replies on the client's own queue without going through Run.
func (h *Hub) pong(c *Client) {
	msg, _ := json.Marshal(Event{Type: eventPong, Time: time.Now().Unix()})
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c.userID][c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
