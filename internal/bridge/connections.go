package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks the open websockets of local UIs.
type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	mu          sync.RWMutex               // Broadcasts read far more often than sockets come and go
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
}

func (cm *ConnectionManager) GetConnection(id string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[id]
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// Broadcast sends msg to every open socket and returns the ids whose write
// failed.
// Why marshal once: every socket gets the same bytes.
// Why copy the map first: a slow socket must not hold the lock while
// handlers try to register or remove connections.
func (cm *ConnectionManager) Broadcast(ctx context.Context, msg ServerMessage) ([]string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	cm.mu.RLock()
	targets := make(map[string]*websocket.Conn, len(cm.connections))
	for id, conn := range cm.connections {
		targets[id] = conn
	}
	cm.mu.RUnlock()

	// Failed writes are reported, not removed; the socket's own handler
	// notices the broken connection and cleans up.
	var failed []string
	for id, conn := range targets {
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			failed = append(failed, id)
		}
	}
	return failed, nil
}
