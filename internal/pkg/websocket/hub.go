package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message is the frame pushed to subscribers
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type client struct {
	room string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to the sockets watching a room. Rooms are booking IDs.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	closed   bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshaling message data: %w", err)
	}
	return json.Marshal(Message{Event: event, Data: raw})
}

// Serve upgrades the request, sends snapshot as the first frame and keeps
// the socket in room until the peer goes away
func (h *Hub) Serve(c echo.Context, room, snapshotEvent string, snapshot interface{}) error {
	first, err := encode(snapshotEvent, snapshot)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		return nil
	}

	cl := &client{room: room, conn: conn, send: make(chan []byte, sendBuffer)}
	cl.send <- first
	if !h.join(cl) {
		conn.Close()
		return nil
	}

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

func (h *Hub) join(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	members, ok := h.rooms[cl.room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[cl.room] = members
	}
	members[cl] = struct{}{}
	return true
}

func (h *Hub) leave(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[cl.room]
	if !ok {
		return
	}
	if _, ok := members[cl]; !ok {
		return
	}
	delete(members, cl)
	close(cl.send)
	if len(members) == 0 {
		delete(h.rooms, cl.room)
	}
}

// readPump discards client frames; it only notices disconnects
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.leave(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast queues event for every socket in room. Subscribers whose buffer
// is full are disconnected.
func (h *Hub) Broadcast(room, event string, data interface{}) {
	msg, err := encode(event, data)
	if err != nil {
		logger.Warn("Failed to encode live event", logger.String("room", room), logger.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.rooms[room] {
		select {
		case cl.send <- msg:
		default:
			logger.Warn("Dropping slow live subscriber", logger.String("room", room))
			delete(h.rooms[room], cl)
			close(cl.send)
		}
	}
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// Subscribers returns how many sockets watch room
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for room, members := range h.rooms {
		for cl := range members {
			close(cl.send)
		}
		delete(h.rooms, room)
	}
}
