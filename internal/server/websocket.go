package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/deckrealms/lanebattle/internal/battle"
	"github.com/deckrealms/lanebattle/internal/config"
)

const (
	sendBuffer     = 64
	broadcastDepth = 256
	maxInbound     = 4096
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the envelope of every frame pushed to clients.
type WSMessage struct {
	Type     string `json:"type"`
	BattleID string `json:"battle_id,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// SnapshotSource looks up the current snapshot of a battle.
type SnapshotSource func(id string) (battle.Snapshot, error)

type wsClient struct {
	conn     *websocket.Conn
	send     chan []byte
	battleID string
}

type outbound struct {
	battleID string
	payload  []byte
}

// Hub fans battle snapshots out to websocket clients. A client connecting
// with ?battle_id= only receives that battle; without it, every battle.
type Hub struct {
	clients      map[*wsClient]bool
	broadcast    chan outbound
	register     chan *wsClient
	unregister   chan *wsClient
	done         chan struct{}
	count        atomic.Int64
	source       SnapshotSource
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewHub creates a hub. source may be nil; when set, new subscribers of a
// single battle get its current snapshot right away.
func NewHub(writeTimeout time.Duration, source SnapshotSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		clients:      make(map[*wsClient]bool),
		broadcast:    make(chan outbound, broadcastDepth),
		register:     make(chan *wsClient),
		unregister:   make(chan *wsClient),
		done:         make(chan struct{}),
		source:       source,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.count.Store(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			h.logger.Debug("websocket client registered", zap.String("battle_id", client.battleID))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.count.Add(-1)
				h.logger.Debug("websocket client unregistered", zap.String("battle_id", client.battleID))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.battleID != "" && client.battleID != msg.battleID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					close(client.send)
					delete(h.clients, client)
					h.count.Add(-1)
					h.logger.Warn("dropping slow websocket client", zap.String("battle_id", client.battleID))
				}
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Publish queues a snapshot for every interested client. It matches
// battle.ChangeFunc and never blocks the caller.
func (h *Hub) Publish(snapshot battle.Snapshot) {
	payload, err := json.Marshal(WSMessage{Type: "snapshot", BattleID: snapshot.BattleID, Data: snapshot})
	if err != nil {
		h.logger.Error("failed to encode snapshot", zap.String("battle_id", snapshot.BattleID), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- outbound{battleID: snapshot.BattleID, payload: payload}:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, snapshot dropped", zap.String("battle_id", snapshot.BattleID))
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		battleID: r.URL.Query().Get("battle_id"),
	}
	if client.battleID != "" && h.source != nil {
		if snapshot, err := h.source(client.battleID); err == nil {
			if payload, err := json.Marshal(WSMessage{Type: "snapshot", BattleID: client.battleID, Data: snapshot}); err == nil {
				client.send <- payload
			}
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump(h.writeTimeout)
	go client.readPump(h)
}

// readPump only watches for the peer going away; clients do not send commands.
func (c *wsClient) readPump(hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump(writeTimeout time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartWebSocketServer serves hub on cfg.Path until ctx is cancelled.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting WebSocket server",
		zap.String("address", cfg.Address),
		zap.String("path", cfg.Path),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
