// WebSocket hub for pushing live events to the desktop UI. Clients may
// subscribe to a subset of event types; a client with no subscriptions
// receives everything.
package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kimhsiao/conceptdeck/internal/logging"
	syncctl "github.com/kimhsiao/conceptdeck/internal/sync"
)

// Event types pushed over the WebSocket.
const (
	EventConnectionEstablished = "connection.established"

	EventConceptCreated = "concept.created"
	EventConceptUpdated = "concept.updated"
	EventConceptDeleted = "concept.deleted"

	EventImportStaged    = "import.staged"
	EventImportCommitted = "import.committed"
	EventImportDiscarded = "import.discarded"
	EventImportFailed    = "import.failed"

	EventExportCompleted = "export.completed"
	EventExportFailed    = "export.failed"

	EventBackupCompleted = "backup.completed"
	EventBackupFailed    = "backup.failed"

	EventRestoreCompleted = "restore.completed"
	EventRestoreFailed    = "restore.failed"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 30 * time.Second
	wsMaxMessageSize = 4096
	wsSendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header.
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
		return false
	},
}

// WSEnvelope wraps every server-to-client message.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// wsAction is the wire format for client-to-server messages.
type wsAction struct {
	Action string   `json:"action"`
	Types  []string `json:"types,omitempty"`
}

type wsMessage struct {
	eventType string
	payload   []byte
}

// WSClient represents one connected UI client.
type WSClient struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	hub           *WSHub
	mu            sync.Mutex
	subscriptions map[string]bool
}

// wants reports whether the client should receive the given event type.
// An empty subscription set means the client receives everything.
func (c *WSClient) wants(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[eventType]
}

func (c *WSClient) subscribe(types []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range types {
		c.subscriptions[t] = true
	}
}

func (c *WSClient) unsubscribe(types []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range types {
		delete(c.subscriptions, t)
	}
}

// WSHub maintains active client connections and fans events out to them.
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan wsMessage
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
}

// NewWSHub creates a hub and starts its dispatch loop.
func NewWSHub() *WSHub {
	hub := &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan wsMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
	go hub.run()
	return hub
}

// run manages client connections and broadcasts.
func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WebSocket client connected", map[string]interface{}{
				"client_id": client.id,
				"clients":   total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logging.Debug("WebSocket client disconnected", map[string]interface{}{
				"client_id": client.id,
				"clients":   total,
			})

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.eventType) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client subscribed to its type.
func (h *WSHub) Broadcast(eventType string, data map[string]interface{}) {
	payload, err := json.Marshal(WSEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		logging.Error("Failed to marshal WebSocket event", err, map[string]interface{}{
			"type": eventType,
		})
		return
	}
	select {
	case h.broadcast <- wsMessage{eventType: eventType, payload: payload}:
	default:
		logging.Warn("WebSocket broadcast queue full, dropping event", map[string]interface{}{
			"type": eventType,
		})
	}
}

// =====================================================
// Typed broadcast helpers used by the HTTP handlers
// =====================================================

// BroadcastConceptCreated notifies clients that a concept was created.
func (h *WSHub) BroadcastConceptCreated(id, title string) {
	h.Broadcast(EventConceptCreated, map[string]interface{}{"id": id, "title": title})
}

// BroadcastConceptUpdated notifies clients that a concept was updated.
func (h *WSHub) BroadcastConceptUpdated(id, title string) {
	h.Broadcast(EventConceptUpdated, map[string]interface{}{"id": id, "title": title})
}

// BroadcastConceptDeleted notifies clients that a concept was removed.
func (h *WSHub) BroadcastConceptDeleted(id string) {
	h.Broadcast(EventConceptDeleted, map[string]interface{}{"id": id})
}

// BroadcastImportStaged notifies clients that an import file was validated
// and staged for commit.
func (h *WSHub) BroadcastImportStaged(filePath string, total, valid, errors, warnings int) {
	h.Broadcast(EventImportStaged, map[string]interface{}{
		"file_path": filePath,
		"total":     total,
		"valid":     valid,
		"errors":    errors,
		"warnings":  warnings,
	})
}

// BroadcastImportCommitted notifies clients that a staged import was merged
// into the working set.
func (h *WSHub) BroadcastImportCommitted(added, total int) {
	h.Broadcast(EventImportCommitted, map[string]interface{}{"added": added, "total": total})
}

// BroadcastImportDiscarded notifies clients that a staged import was thrown away.
func (h *WSHub) BroadcastImportDiscarded() {
	h.Broadcast(EventImportDiscarded, nil)
}

// BroadcastImportFailed notifies clients that an import could not be staged
// or committed.
func (h *WSHub) BroadcastImportFailed(reason string) {
	h.Broadcast(EventImportFailed, map[string]interface{}{"reason": reason})
}

// BroadcastSyncOutcome derives the event name from the outcome: a success
// maps to sync.<op>.completed, an informational no-op to sync.<op>.empty
// and a failure to sync.<op>.failed.
func (h *WSHub) BroadcastSyncOutcome(outcome syncctl.Outcome) {
	base := "sync." + string(outcome.Op)
	var suffix string
	switch outcome.Status {
	case syncctl.StatusSuccess:
		suffix = ".completed"
	case syncctl.StatusInfo:
		suffix = ".empty"
	default:
		suffix = ".failed"
	}
	h.Broadcast(base+suffix, map[string]interface{}{
		"status": string(outcome.Status),
		"code":   string(outcome.Code),
		"title":  outcome.Title,
		"detail": outcome.Detail,
		"count":  outcome.Count,
	})
}

// BroadcastExportCompleted notifies clients that an export file was written.
func (h *WSHub) BroadcastExportCompleted(format, filePath string, count int) {
	h.Broadcast(EventExportCompleted, map[string]interface{}{
		"format":    format,
		"file_path": filePath,
		"count":     count,
	})
}

// BroadcastExportFailed notifies clients that an export failed.
func (h *WSHub) BroadcastExportFailed(format, reason string) {
	h.Broadcast(EventExportFailed, map[string]interface{}{"format": format, "reason": reason})
}

// BroadcastBackupCompleted notifies clients that a backup archive was written.
func (h *WSHub) BroadcastBackupCompleted(filePath string, count int, encrypted bool) {
	h.Broadcast(EventBackupCompleted, map[string]interface{}{
		"file_path": filePath,
		"count":     count,
		"encrypted": encrypted,
	})
}

// BroadcastBackupFailed notifies clients that a backup failed.
func (h *WSHub) BroadcastBackupFailed(reason string) {
	h.Broadcast(EventBackupFailed, map[string]interface{}{"reason": reason})
}

// BroadcastRestoreCompleted notifies clients that an archive was restored
// into the working set.
func (h *WSHub) BroadcastRestoreCompleted(count int) {
	h.Broadcast(EventRestoreCompleted, map[string]interface{}{"count": count})
}

// BroadcastRestoreFailed notifies clients that a restore failed.
func (h *WSHub) BroadcastRestoreFailed(reason string) {
	h.Broadcast(EventRestoreFailed, map[string]interface{}{"reason": reason})
}

// readPump reads client messages until the connection drops. The only
// client-to-server messages are subscribe, unsubscribe and ping actions.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug("WebSocket read error", map[string]interface{}{
					"client_id": c.id,
					"error":     err.Error(),
				})
			}
			return
		}

		var action wsAction
		if err := json.Unmarshal(raw, &action); err != nil {
			continue
		}

		switch action.Action {
		case "subscribe":
			c.subscribe(action.Types)
		case "unsubscribe":
			c.unsubscribe(action.Types)
		case "ping":
			c.sendEnvelope(WSEnvelope{Type: "pong", Timestamp: time.Now().Unix()})
		}
	}
}

// writePump writes queued messages and keeps the connection alive with
// periodic pings.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) sendEnvelope(env WSEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// HandleWebSocket upgrades the request and registers the client with the hub.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("WebSocket upgrade failed", map[string]interface{}{
				"remote": r.RemoteAddr,
				"error":  err.Error(),
			})
			return
		}

		client := &WSClient{
			id:            uuid.NewString(),
			conn:          conn,
			send:          make(chan []byte, wsSendBuffer),
			hub:           hub,
			subscriptions: make(map[string]bool),
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()

		client.sendEnvelope(WSEnvelope{
			Type:      EventConnectionEstablished,
			Data:      map[string]interface{}{"client_id": client.id},
			Timestamp: time.Now().Unix(),
		})
	}
}
