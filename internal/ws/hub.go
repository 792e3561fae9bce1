package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-live-backend/internal/realtime"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub streams session changes to WebSocket clients. Each connection holds its
// own subscriptions on the notifier.
type Hub struct {
	notifier realtime.Notifier

	mu       sync.RWMutex
	sessions map[uint]map[*websocket.Conn]bool
}

func NewHub(notifier realtime.Notifier) *Hub {
	return &Hub{
		notifier: notifier,
		sessions: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *Hub) AddConnection(sessionID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.sessions[sessionID][conn] = true
	log.Printf("ws: client connected to session %d (total: %d)", sessionID, len(h.sessions[sessionID]))
}

func (h *Hub) RemoveConnection(sessionID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.sessions[sessionID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.sessions, sessionID)
		}
		log.Printf("ws: client disconnected from session %d", sessionID)
	}
}

func (h *Hub) Connections(sessionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Serve forwards changes of the given tables until the client disconnects or
// ctx ends. No tables means all of them.
// The connection is registered only once every subscription is in place.
func (h *Hub) Serve(ctx context.Context, sessionID uint, conn *websocket.Conn, tables []string) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if len(tables) == 0 {
		tables = []string{realtime.AllTables}
	}
	out := make(chan realtime.Change, 16)
	for _, table := range tables {
		sub, err := h.notifier.Subscribe(ctx, table, sessionID)
		if err != nil {
			conn.Close()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sub.Close()
			for change := range sub.C {
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	h.AddConnection(sessionID, conn)
	defer h.RemoveConnection(sessionID, conn)

	go h.readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case change := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(WSMessage{Type: "change", Data: change}); err != nil {
				log.Printf("ws: write error: %v", err)
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

// readPump discards client messages and cancels the stream when the client
// goes away or stops answering pings.
func (h *Hub) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
