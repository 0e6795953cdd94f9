// Package streaming broadcasts live pipeline events over WebSocket:
// probability snapshots, edge opportunities, trades, settlements, and raw
// game events for dashboards.
package streaming

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType classifies a streamed event.
type EventType string

const (
	EventTypeProbability EventType = "probability"
	EventTypeOpportunity EventType = "opportunity"
	EventTypeTrade       EventType = "trade"
	EventTypeSettlement  EventType = "settlement"
	EventTypeGameEvent   EventType = "game_event"
	EventTypeSeries      EventType = "series"
	EventTypeStatus      EventType = "status"
	EventTypeError       EventType = "error"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event is one message sent to clients.
type Event struct {
	Type      EventType   `json:"type"`
	MatchID   string      `json:"match_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub fans events out to connected WebSocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	upgrader websocket.Upgrader
}

// Client is one WebSocket connection with per-type subscriptions.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	subscriptions map[EventType]bool
	subMu         sync.RWMutex
}

// NewHub creates a hub. Call Run in a goroutine before serving connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboards connect cross-origin
			},
		},
	}
}

// Run drives the hub's event loop until the process exits.
func (h *Hub) Run() {
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] client connected (%d total)", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] client disconnected (%d remaining)", n)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-heartbeat.C:
			h.Broadcast(Event{
				Type:      EventTypeHeartbeat,
				Timestamp: time.Now(),
				Data:      map[string]interface{}{"clients": h.ClientCount()},
			})
		}
	}
}

func (h *Hub) broadcastEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WS] marshal failed: %v", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients {
		if !client.isSubscribed(event.Type) {
			continue
		}
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Drop clients whose buffers are full rather than blocking the loop.
	if len(slow) > 0 {
		h.mu.Lock()
		for _, client := range slow {
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		}
		h.mu.Unlock()
	}
}

// Broadcast queues an event for all subscribed clients. Drops when the queue
// is full.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[WS] broadcast queue full, dropping %s event", event.Type)
	}
}

// BroadcastProbability broadcasts a model snapshot for a match.
func (h *Hub) BroadcastProbability(matchID string, snapshot interface{}) {
	h.Broadcast(Event{Type: EventTypeProbability, MatchID: matchID, Data: snapshot})
}

// BroadcastOpportunity broadcasts an edge evaluation.
func (h *Hub) BroadcastOpportunity(matchID string, opp interface{}) {
	h.Broadcast(Event{Type: EventTypeOpportunity, MatchID: matchID, Data: opp})
}

// BroadcastTrade broadcasts a placed trade.
func (h *Hub) BroadcastTrade(matchID string, trade interface{}) {
	h.Broadcast(Event{Type: EventTypeTrade, MatchID: matchID, Data: trade})
}

// BroadcastSettlement broadcasts a settled position.
func (h *Hub) BroadcastSettlement(matchID string, settlement interface{}) {
	h.Broadcast(Event{Type: EventTypeSettlement, MatchID: matchID, Data: settlement})
}

// BroadcastGameEvent broadcasts a raw game event.
func (h *Hub) BroadcastGameEvent(matchID string, ev interface{}) {
	h.Broadcast(Event{Type: EventTypeGameEvent, MatchID: matchID, Data: ev})
}

// BroadcastSeries broadcasts a series score change.
func (h *Hub) BroadcastSeries(matchID string, series interface{}) {
	h.Broadcast(Event{Type: EventTypeSeries, MatchID: matchID, Data: series})
}

// BroadcastStatus broadcasts a system status update.
func (h *Hub) BroadcastStatus(status interface{}) {
	h.Broadcast(Event{Type: EventTypeStatus, Data: status})
}

// BroadcastError broadcasts an error with context.
func (h *Hub) BroadcastError(err error, context string) {
	h.Broadcast(Event{
		Type: EventTypeError,
		Data: map[string]interface{}{
			"error":   err.Error(),
			"context": context,
		},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var allEventTypes = []EventType{
	EventTypeProbability,
	EventTypeOpportunity,
	EventTypeTrade,
	EventTypeSettlement,
	EventTypeGameEvent,
	EventTypeSeries,
	EventTypeStatus,
	EventTypeError,
	EventTypeHeartbeat,
}

// ServeWS upgrades an HTTP request to a WebSocket client subscribed to
// everything. Clients narrow the stream with subscribe/unsubscribe messages.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 256),
		subscriptions: make(map[EventType]bool, len(allEventTypes)),
	}
	for _, t := range allEventTypes {
		client.subscriptions[t] = true
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) isSubscribed(eventType EventType) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subscriptions[eventType]
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type   string   `json:"type"`
		Events []string `json:"events"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subMu.Lock()
		for _, event := range msg.Events {
			c.subscriptions[EventType(event)] = true
		}
		c.subMu.Unlock()

	case "unsubscribe":
		c.subMu.Lock()
		for _, event := range msg.Events {
			delete(c.subscriptions, EventType(event))
		}
		c.subMu.Unlock()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
