// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spectra/internal/log"
)

// WebSocketTransport broadcasts frames as JSON to connected clients. It
// runs its own HTTP server with a single /spectrum endpoint and rate-limits
// broadcasts so a fast frame loop cannot flood slow clients.
type WebSocketTransport struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server

	lastSend        time.Time
	minSendInterval time.Duration
}

// NewWebSocketTransport creates the transport and starts its server on
// addr (e.g. ":8080"). minSendInterval of zero disables rate limiting.
func NewWebSocketTransport(addr string, minSendInterval time.Duration) *WebSocketTransport {
	t := &WebSocketTransport{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local visualization clients only
			},
		},
		minSendInterval: minSendInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/spectrum", t.handleWebSocket)
	t.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Infof("transport: spectrum WebSocket server listening on %s", addr)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("transport: WebSocket server error: %v", err)
		}
	}()

	return t
}

// handleWebSocket upgrades the connection, registers the client, and
// removes it again once the read side reports an error.
func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("transport: WebSocket upgrade error: %v", err)
		return
	}

	t.clientsMutex.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.clientsMutex.Unlock()
	log.Debugf("transport: renderer connected, total: %d", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.clientsMutex.Lock()
				delete(t.clients, conn)
				t.clientsMutex.Unlock()
				conn.Close()
				log.Debugf("transport: renderer disconnected")
				return
			}
		}
	}()
}

// Send broadcasts a frame to all connected clients. Frames inside the rate
// limit window are dropped, not queued.
func (t *WebSocketTransport) Send(frame Frame) error {
	now := time.Now()
	if now.Sub(t.lastSend) < t.minSendInterval {
		return nil
	}
	t.lastSend = now

	t.clientsMutex.Lock()
	defer t.clientsMutex.Unlock()

	for client := range t.clients {
		if err := client.WriteJSON(frame); err != nil {
			client.Close()
			delete(t.clients, client)
		}
	}
	return nil
}

// Close disconnects all clients and shuts down the HTTP server.
func (t *WebSocketTransport) Close() error {
	t.clientsMutex.Lock()
	for client := range t.clients {
		client.Close()
		delete(t.clients, client)
	}
	t.clientsMutex.Unlock()

	return t.server.Close()
}

var _ Transport = (*WebSocketTransport)(nil)
