// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	applog "equalizer/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketPath is the endpoint clients connect to.
const WebSocketPath = "/ws"

const (
	broadcastQueue = 256
	writeTimeout   = time.Second
)

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport closed")

// WebSocketTransport broadcasts every message as JSON to all connected
// clients. A client that connects is sent the latest message right away.
type WebSocketTransport struct {
	addr     string
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	last      any

	broadcast chan any
	closed    bool
	sendMu    sync.RWMutex
	wg        sync.WaitGroup

	server   *http.Server
	listener net.Listener
}

// NewWebSocketTransport creates a transport for addr and starts its
// broadcast goroutine. Call Start to accept connections, or mount Handler
// on an existing server.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tooling connects from file:// and dev servers
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving WebSocketPath.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Serving ws://%s%s", ln.Addr(), WebSocketPath)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start succeeded, else the configured
// one.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	if wst.last != nil {
		wst.write(conn, wst.last)
	}
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected from %s, total: %d", conn.RemoteAddr(), total)

	// Clients only talk to us to close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

// write sends data to one client. Callers hold clientsMu.
func (wst *WebSocketTransport) write(conn *websocket.Conn, data any) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(data); err != nil {
		applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
		conn.Close()
		delete(wst.clients, conn)
	}
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for data := range wst.broadcast {
		wst.clientsMu.Lock()
		wst.last = data
		for client := range wst.clients {
			wst.write(client, data)
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues data for broadcast. When the queue is full the message is
// dropped.
func (wst *WebSocketTransport) Send(data any) error {
	wst.sendMu.RLock()
	defer wst.sendMu.RUnlock()
	if wst.closed {
		return ErrTransportClosed
	}
	select {
	case wst.broadcast <- data:
	default:
		applog.Debugf("WebSocketTransport: Queue full, dropping message")
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	wst.sendMu.Lock()
	if wst.closed {
		wst.sendMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.broadcast)
	wst.sendMu.Unlock()
	wst.wg.Wait()

	applog.Infof("WebSocketTransport: Closing server")
	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return wst.server.Shutdown(ctx)
	}
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
