package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/finsim/internal/metrics"
	"github.com/talgya/finsim/internal/runs"
)

// MonthMessage is the JSON message pushed to feed clients for every
// advanced month.
type MonthMessage struct {
	Type          string   `json:"type"`
	RunID         string   `json:"run_id"`
	Month         int      `json:"month"`
	Status        string   `json:"status"`
	PlayerCash    int64    `json:"player_cash"`
	GuruCash      int64    `json:"guru_cash"`
	PlayerNet     int64    `json:"player_net_worth"`
	GuruNet       int64    `json:"guru_net_worth"`
	GuruRationale []string `json:"guru_rationale,omitempty"`
}

func newMonthMessage(a *runs.Advanced) MonthMessage {
	return MonthMessage{
		Type:          "month_advanced",
		RunID:         a.Run.ID,
		Month:         a.Month.Month,
		Status:        string(a.Run.Status),
		PlayerCash:    int64(a.Month.Player.Cash),
		GuruCash:      int64(a.Month.Guru.Cash),
		PlayerNet:     int64(a.Month.Player.NetWorth()),
		GuruNet:       int64(a.Month.Guru.NetWorth()),
		GuruRationale: a.GuruRationale,
	}
}

// Hub fans advanced months out to WebSocket clients and SSE subscribers.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex

	subMu  sync.Mutex
	subs   map[int]chan MonthMessage
	nextID int
}

// NewHub creates a hub. Call Run in a goroutine before serving.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		subs:       make(map[int]chan MonthMessage),
	}
}

// Run is the hub's event loop. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			slog.Info("ws client connected", "total", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Close stops the event loop and disconnects every client.
func (h *Hub) Close() {
	close(h.done)
}

// MonthAdvanced implements runs.Notifier.
func (h *Hub) MonthAdvanced(a *runs.Advanced) {
	msg := newMonthMessage(a)

	h.subMu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; drop rather than stall the advance.
		}
	}
	h.subMu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

// Subscribe returns a channel of advanced months and its ID.
func (h *Hub) Subscribe() (int, <-chan MonthMessage) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.nextID++
	ch := make(chan MonthMessage, 32)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe removes and closes a subscription.
func (h *Hub) Unsubscribe(id int) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
			}
			h.mu.Lock()
			_, ok := h.clients[conn]
			var err error
			if ok {
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
			h.mu.Unlock()
			if !ok || err != nil {
				return
			}
		}
	}()
}
