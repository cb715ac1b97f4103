// Package websocket streams domain events to connected clients.
package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests into hub clients.
type Server struct {
	hub           *Hub
	upgrader      websocket.Upgrader
	defaultUserID string
	logger        *zap.Logger
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
	DefaultUserID   string
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		AllowedOrigins:  []string{"*"},
		DefaultUserID:   "default",
	}
}

// NewServer creates a new WebSocket server
func NewServer(hub *Hub, cfg ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 1024
	}
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = 1024
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		defaultUserID: cfg.DefaultUserID,
		logger:        logger,
	}
}

// HandleWebSocket handles WebSocket upgrade requests. The user comes from
// the user_id query parameter.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = s.defaultUserID
	}

	// Fast path. The hub enforces the limit again when the client registers.
	if n := s.hub.ConnectionCount(userID); n >= MaxConnectionsPerUser {
		s.logger.Warn("Connection limit exceeded for user",
			zap.String("user_id", userID),
			zap.Int("current_connections", n),
		)
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(userID, s.hub, conn, s.logger)
	if !client.Start() {
		return
	}

	s.logger.Info("New WebSocket connection established",
		zap.String("user_id", userID),
		zap.String("connection_id", client.ID()),
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
