package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/events"
	"dreamcatcher/infrastructure/observability"
)

// MaxConnectionsPerUser caps simultaneous sockets for one user.
const MaxConnectionsPerUser = 10

// ErrHubBusy is returned when the broadcast queue stays full.
var ErrHubBusy = errors.New("websocket hub busy, message dropped")

// Hub maintains active WebSocket connections and broadcasts messages to users
type Hub struct {
	// userID -> set of clients
	connections map[string]map[*Client]bool
	mu          sync.RWMutex

	register   chan registration
	unregister chan *Client
	broadcast  chan *outbound

	ctx    context.Context
	cancel context.CancelFunc

	sendTimeout time.Duration
	sent        atomic.Int64
	dropped     atomic.Int64
	metrics     *observability.Collector
	logger      *zap.Logger
}

// registration carries a client to the hub loop and the hub's verdict back.
type registration struct {
	client   *Client
	accepted chan bool
}

type outbound struct {
	userID string
	data   []byte
}

// HubStats summarises hub activity.
type HubStats struct {
	ActiveConnections int   `json:"active_connections"`
	ConnectedUsers    int   `json:"connected_users"`
	MessagesSent      int64 `json:"messages_sent"`
	MessagesDropped   int64 `json:"messages_dropped"`
}

var _ ports.EventPublisher = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(metrics *observability.Collector, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[string]map[*Client]bool),
		register:    make(chan registration, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan *outbound, 1000),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: 5 * time.Second,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case reg := <-h.register:
			reg.accepted <- h.registerClient(reg.client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.logger.Info("Stopping WebSocket hub")
	h.cancel()
}

// Publish pushes events to the connections of their user. Events without a
// user go to everyone.
func (h *Hub) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	var errs []error
	for _, evt := range evts {
		msg, ok, err := messageFor(evt)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		if err := h.Send(ctx, evt.GetUserID(), msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send queues msg for userID, or for every user when userID is empty.
func (h *Hub) Send(ctx context.Context, userID string, msg Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	timer := time.NewTimer(h.sendTimeout)
	defer timer.Stop()
	select {
	case h.broadcast <- &outbound{userID: userID, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubBusy
	case <-timer.C:
		h.dropped.Add(1)
		return ErrHubBusy
	}
}

// registerClient adds the client unless its user already holds
// MaxConnectionsPerUser connections.
func (h *Hub) registerClient(client *Client) bool {
	h.mu.Lock()
	userConns := len(h.connections[client.userID])
	if userConns >= MaxConnectionsPerUser {
		h.mu.Unlock()
		h.logger.Warn("Connection limit exceeded for user",
			zap.String("user_id", client.userID),
			zap.String("connection_id", client.id),
			zap.Int("current_connections", userConns),
		)
		return false
	}
	if h.connections[client.userID] == nil {
		h.connections[client.userID] = make(map[*Client]bool)
	}
	h.connections[client.userID][client] = true
	userConns++
	h.mu.Unlock()

	h.reportConnections()
	h.logger.Info("Client registered",
		zap.String("user_id", client.userID),
		zap.String("connection_id", client.id),
		zap.Int("user_connections", userConns),
	)
	return true
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.connections[client.userID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.connections, client.userID)
	}
	remaining := len(clients)
	h.mu.Unlock()

	h.reportConnections()
	h.logger.Info("Client unregistered",
		zap.String("user_id", client.userID),
		zap.String("connection_id", client.id),
		zap.Int("remaining_connections", remaining),
	)
}

// deliver writes to every target client's buffer. A client whose buffer is
// full is disconnected.
func (h *Hub) deliver(msg *outbound) {
	h.mu.RLock()
	var targets []*Client
	if msg.userID == "" {
		for _, clients := range h.connections {
			for c := range clients {
				targets = append(targets, c)
			}
		}
	} else {
		for c := range h.connections[msg.userID] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- msg.data:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
			h.logger.Warn("Closing slow client",
				zap.String("user_id", client.userID),
				zap.String("connection_id", client.id),
			)
			h.unregisterClient(client)
			client.conn.Close()
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	for userID, clients := range h.connections {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
		delete(h.connections, userID)
	}
	h.mu.Unlock()

	h.reportConnections()
	h.logger.Info("All connections closed")
}

func (h *Hub) reportConnections() {
	h.metrics.SetWebsocketConnections(h.Stats().ActiveConnections)
}

// ConnectionCount returns the number of active connections for a user
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Stats returns current hub counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := HubStats{
		ConnectedUsers:  len(h.connections),
		MessagesSent:    h.sent.Load(),
		MessagesDropped: h.dropped.Load(),
	}
	for _, clients := range h.connections {
		stats.ActiveConnections += len(clients)
	}
	return stats
}
