package server

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks open client connections for diagnostics. Each connection
// owns its own send loop; the registry is never used for fan-out.
type Registry struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[*websocket.Conn]struct{})}
}

// Add registers a connection.
func (r *Registry) Add(conn *websocket.Conn) {
	r.mu.Lock()
	r.conns[conn] = struct{}{}
	total := len(r.conns)
	r.mu.Unlock()
	log.Printf("client connected, total connections: %d", total)
}

// Remove drops a connection. Removing an unknown connection is a no-op.
func (r *Registry) Remove(conn *websocket.Conn) {
	r.mu.Lock()
	delete(r.conns, conn)
	total := len(r.conns)
	r.mu.Unlock()
	log.Printf("client disconnected, total connections: %d", total)
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
