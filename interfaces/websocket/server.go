package websocket

import (
	"net/http"

	"priomatrix-backend/pkg/auth"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxConnectionsPerProject caps how many sockets one project board can hold
const maxConnectionsPerProject = 100

// Server handles WebSocket upgrade requests for project boards
type Server struct {
	hub       *Hub
	upgrader  websocket.Upgrader
	validator *auth.JWTValidator
	logger    *zap.Logger
}

// NewServer creates a new WebSocket server
func NewServer(hub *Hub, validator *auth.JWTValidator, logger *zap.Logger) *Server {
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is delegated to the reverse proxy
				return true
			},
		},
		validator: validator,
		logger:    logger,
	}
}

// HandleWebSocket handles GET /ws?projectId=...&token=...
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		s.logger.Warn("WebSocket authentication failed",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		http.Error(w, "projectId query parameter is required", http.StatusBadRequest)
		return
	}

	if s.hub.ConnectionCount(projectID) >= maxConnectionsPerProject {
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(claims.CollaboratorID, projectID, s.hub, conn, s.logger)
	client.Start()

	s.logger.Info("WebSocket connection established",
		zap.String("collaboratorID", claims.CollaboratorID),
		zap.String("projectID", projectID),
		zap.String("connectionID", client.GetID()),
	)
}
