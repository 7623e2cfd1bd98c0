// File: server/broadcaster.go
package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lguibr/gonwayish/bollywood"
	"github.com/lguibr/gonwayish/field"
	"golang.org/x/net/websocket"
)

// SnapshotMessage is the JSON payload of /snapshot and of every websocket push.
type SnapshotMessage struct {
	MessageType string    `json:"messageType"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Alive       int       `json:"alive"`
	Cells       [][]bool  `json:"cells"` // Row-major, Cells[y][x]
	Timestamp   time.Time `json:"timestamp"`
}

// NewSnapshotMessage lays snapshot out as a width x height message.
func NewSnapshotMessage(snapshot field.Snapshot, width, height int, at time.Time) SnapshotMessage {
	return SnapshotMessage{
		MessageType: "snapshot",
		Width:       width,
		Height:      height,
		Alive:       snapshot.AliveCount(),
		Cells:       snapshot.Rows(width, height),
		Timestamp:   at,
	}
}

// Broadcaster is the actor pushing snapshots to every subscribed websocket.
type Broadcaster struct {
	build    func() SnapshotMessage
	interval time.Duration
	logger   *slog.Logger

	clients map[uuid.UUID]*websocket.Conn
	mu      sync.RWMutex // Protects the clients map
	closed  bool
	selfPID *bollywood.PID
}

// NewBroadcaster creates a broadcaster sending build() every interval.
func NewBroadcaster(build func() SnapshotMessage, interval time.Duration, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		build:    build,
		interval: interval,
		logger:   logger,
		clients:  make(map[uuid.UUID]*websocket.Conn),
	}
}

// Add registers a connection and returns its subscription id.
// ok is false once the broadcaster has stopped; the caller keeps ownership of conn.
func (b *Broadcaster) Add(conn *websocket.Conn) (id uuid.UUID, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return uuid.Nil, false
	}
	id = uuid.New()
	b.clients[id] = conn
	return id, true
}

// Remove forgets a subscription. Unknown ids are ignored.
func (b *Broadcaster) Remove(id uuid.UUID) {
	b.mu.Lock()
	delete(b.clients, id)
	b.mu.Unlock()
}

// Len reports the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Run pushes a snapshot every interval until the engine stops the actor.
func (b *Broadcaster) Run(ctx bollywood.Context) {
	b.selfPID = ctx.Self()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.closeAllConnections()
			return
		case <-ticker.C:
			b.broadcast()
		}
	}
}

// Send writes one message to a single connection.
func (b *Broadcaster) Send(conn *websocket.Conn, msg SnapshotMessage) error {
	return websocket.JSON.Send(conn, &msg)
}

func (b *Broadcaster) broadcast() {
	b.mu.RLock()
	if len(b.clients) == 0 {
		b.mu.RUnlock()
		return
	}
	clientsToSend := make(map[uuid.UUID]*websocket.Conn, len(b.clients))
	for id, conn := range b.clients {
		clientsToSend[id] = conn
	}
	b.mu.RUnlock()

	msg := b.build()
	var disconnected []uuid.UUID
	for id, conn := range clientsToSend {
		if err := b.Send(conn, msg); err != nil {
			b.logger.Debug("dropping subscriber", "pid", b.selfPID.String(), "subscriber", id.String(), "error", err)
			disconnected = append(disconnected, id)
		}
	}

	for _, id := range disconnected {
		conn := clientsToSend[id]
		b.Remove(id)
		_ = conn.Close()
	}
}

// closeAllConnections closes every subscription and refuses new ones.
func (b *Broadcaster) closeAllConnections() {
	b.mu.Lock()
	clientsToClose := b.clients
	b.clients = make(map[uuid.UUID]*websocket.Conn)
	b.closed = true
	b.mu.Unlock()

	if len(clientsToClose) > 0 {
		b.logger.Info("broadcaster closing connections", "pid", b.selfPID.String(), "count", len(clientsToClose))
	}
	for _, conn := range clientsToClose {
		_ = conn.Close()
	}
}
