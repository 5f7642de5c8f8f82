package handlers

import (
	"encoding/json"
	"net/http"

	"priomatrix-backend/application/ports"
	"priomatrix-backend/infrastructure/persistence/feed"

	"go.uber.org/zap"
)

// SyncHandler accepts remote change notifications and feeds them into the
// engine's remote change channel. Deployments that replicate through an
// external store point their change stream forwarder at this endpoint.
type SyncHandler struct {
	feed   *feed.ChannelFeed
	logger *zap.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(changeFeed *feed.ChannelFeed, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		feed:   changeFeed,
		logger: logger,
	}
}

// PushChanges handles POST /internal/remote-changes
func (h *SyncHandler) PushChanges(w http.ResponseWriter, r *http.Request) {
	var snapshots []ports.CardSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshots); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	accepted := 0
	for _, snapshot := range snapshots {
		if snapshot.ID == "" || snapshot.ProjectID == "" {
			continue
		}
		if h.feed.Push(snapshot) {
			accepted++
		} else {
			h.logger.Warn("remote change feed full, dropping change",
				zap.String("cardID", snapshot.ID),
			)
		}
	}

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"received": len(snapshots),
		"accepted": accepted,
	})
}

func (h *SyncHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *SyncHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
