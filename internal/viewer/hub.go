// Package viewer streams generated levels to browsers over WebSocket.
package viewer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tilewfc/internal/config"
	"github.com/lawnchairsociety/tilewfc/internal/logger"
	"github.com/lawnchairsociety/tilewfc/internal/wfc"
)

const writeWait = 5 * time.Second

// Message is the JSON sent to viewers
type Message struct {
	Type     string `json:"type"` // "frame" or "place"
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	X        int    `json:"x"`
	Z        int    `json:"z"`
	Module   string `json:"module,omitempty"`
	Payload  string `json:"payload,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Hub broadcasts placements and frames to every connected viewer.
// Viewers that join late are sent the last finished level.
type Hub struct {
	cfg config.ViewerConfig

	mu      sync.Mutex
	clients map[*client]struct{}
	pending []Message // placements of the attempt in progress
	last    []Message // frame and placements of the last finished attempt
}

// NewHub creates a Hub using the viewer settings
func NewHub(cfg config.ViewerConfig) *Hub {
	return &Hub{
		cfg:     cfg,
		clients: make(map[*client]struct{}),
	}
}

// Place implements wfc.InstantiationSink
func (h *Hub) Place(p wfc.Placement) error {
	msg := Message{Type: "place", X: p.X, Z: p.Z, Fallback: p.Fallback}
	if p.Module != nil {
		msg.Module = p.Module.Name
		msg.Payload = p.Module.Payload
	}

	h.mu.Lock()
	h.pending = append(h.pending, msg)
	h.mu.Unlock()

	h.broadcast(msg)
	return nil
}

// Frame implements wfc.ViewportSink. It closes the current attempt.
func (h *Hub) Frame(width, height int) {
	msg := Message{Type: "frame", Width: width, Height: height}

	h.mu.Lock()
	h.last = append([]Message{msg}, h.pending...)
	h.pending = nil
	h.mu.Unlock()

	h.broadcast(msg)
}

// Clients returns the number of connected viewers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler returns an http.Handler serving the viewer feed on /ws
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocketUpgrade)
	return mux
}

// ListenAndServe serves the viewer feed until ctx is cancelled
func (h *Hub) ListenAndServe(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		h.Close()
	}()

	logger.Info("Viewer listening", "address", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects every viewer
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := h.cfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("Viewer connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Viewer upgrade failed", "error", err)
		return
	}
	if h.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageSize)
	}

	c := &client{conn: conn}

	// Holding the client lock while registering makes broadcasts wait
	// until the snapshot has been written.
	c.mu.Lock()
	h.mu.Lock()
	snapshot := append([]Message(nil), h.last...)
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	var sendErr error
	for _, msg := range snapshot {
		if sendErr = c.write(msg); sendErr != nil {
			break
		}
	}
	c.mu.Unlock()

	if sendErr != nil {
		h.remove(c)
		return
	}

	logger.Debug("Viewer connected", "remote_addr", r.RemoteAddr)
	go h.readLoop(c)
}

// readLoop discards viewer input and unregisters the viewer on close
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			logger.Debug("Dropping viewer", "error", err)
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// client serializes writes to one viewer connection
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(msg)
}

// write requires c.mu
func (c *client) write(msg Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.conn.Close()
}
