package ws

import (
	"encoding/json"
	"feedbacklens/internal/model"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgProgress  MessageType = "progress"
	MsgCompleted MessageType = "completed"
	MsgFailed    MessageType = "failed"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans progress events out to the connections watching each progress id
type Hub struct {
	// progressID -> connections
	subscribers map[string]map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once

	logger *zap.Logger
}

// Connection is one websocket client watching a progress id
type Connection struct {
	ProgressID string
	Send       chan []byte
	Hub        *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	ProgressID string
	Message    *Message
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *BroadcastMessage, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.subscribers[conn.ProgressID] == nil {
				h.subscribers[conn.ProgressID] = make(map[*Connection]bool)
			}
			h.subscribers[conn.ProgressID][conn] = true
			h.mu.Unlock()
			h.logger.Debug("progress subscriber connected", zap.String("progressId", conn.ProgressID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.subscribers[conn.ProgressID]; ok && conns[conn] {
				delete(conns, conn)
				close(conn.Send)
				if len(conns) == 0 {
					delete(h.subscribers, conn.ProgressID)
				}
				h.logger.Debug("progress subscriber disconnected", zap.String("progressId", conn.ProgressID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Warn("failed to encode progress message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			for conn := range h.subscribers[msg.ProgressID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, conns := range h.subscribers {
				for conn := range conns {
					close(conn.Send)
				}
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Subscribers returns how many connections watch progressID
func (h *Hub) Subscribers(progressID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[progressID])
}

// Close stops the hub and closes every connection
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// BroadcastProgress sends an analysis progress event to its subscribers (implements service.Broadcaster)
func (h *Hub) BroadcastProgress(event model.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	msgType := MsgProgress
	switch event.Stage {
	case "done":
		msgType = MsgCompleted
	case "failed":
		msgType = MsgFailed
	}

	select {
	case h.broadcast <- &BroadcastMessage{
		ProgressID: event.ProgressID,
		Message:    &Message{Type: msgType, Payload: data},
	}:
	case <-h.done:
	default:
		h.logger.Warn("progress queue full, dropping event", zap.String("progressId", event.ProgressID))
	}
}
