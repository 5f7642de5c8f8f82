package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"priomatrix-backend/application/drag"
	"priomatrix-backend/pkg/auth"
	appErrors "priomatrix-backend/pkg/errors"
	"priomatrix-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DragHandler handles drag session HTTP requests
type DragHandler struct {
	engine *drag.Engine
	logger *zap.Logger
}

// NewDragHandler creates a new drag handler
func NewDragHandler(engine *drag.Engine, logger *zap.Logger) *DragHandler {
	return &DragHandler{
		engine: engine,
		logger: logger,
	}
}

// MoveDragRequest represents an incremental pointer delta
type MoveDragRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// dragStateResponse reports the live session state for a card
type dragStateResponse struct {
	CardID   string  `json:"cardId"`
	State    string  `json:"state"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Stale    bool    `json:"stale"`
	LockedBy string  `json:"lockedBy,omitempty"`
}

// BeginDrag handles POST /cards/{cardID}/drag
func (h *DragHandler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	collaborator, err := auth.GetCollaboratorFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engine.BeginDrag(r.Context(), cardID, collaborator.CollaboratorID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	if !result.Started {
		// A held lock is a refusal, not an error. 423 Locked tells the
		// client who to show as the current editor.
		h.respondJSON(w, http.StatusLocked, map[string]interface{}{
			"started": false,
			"heldBy":  result.HeldBy,
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"started": true,
		"cardId":  cardID,
	})
}

// MoveDrag handles PUT /cards/{cardID}/drag
func (h *DragHandler) MoveDrag(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	collaborator, err := auth.GetCollaboratorFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req MoveDragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.engine.UpdateDrag(cardID, collaborator.CollaboratorID, req.DX, req.DY); err != nil {
		h.respondAppError(w, err)
		return
	}

	pending, err := h.engine.PendingPosition(cardID, collaborator.CollaboratorID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dragStateResponse{
		CardID: cardID,
		State:  "active",
		X:      pending.X(),
		Y:      pending.Y(),
		Stale:  h.engine.SessionStale(cardID),
	})
}

// CommitDrag handles POST /cards/{cardID}/drag/commit
func (h *DragHandler) CommitDrag(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	collaborator, err := auth.GetCollaboratorFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := h.engine.CommitDrag(r.Context(), cardID, collaborator.CollaboratorID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	switch result.Status {
	case drag.CommitCommitted:
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "committed",
			"cardId":    cardID,
			"x":         result.Position.X(),
			"y":         result.Position.Y(),
			"quadrant":  string(result.Quadrant),
			"updatedAt": result.NewUpdatedAt.Format(time.RFC3339Nano),
		})
	case drag.CommitConflict:
		quadrant, _ := h.engine.GetQuadrant(cardID)
		h.respondJSON(w, http.StatusConflict, map[string]interface{}{
			"status":   "conflict",
			"cardId":   cardID,
			"x":        result.Position.X(),
			"y":        result.Position.Y(),
			"quadrant": string(quadrant),
		})
	default:
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"cardId": cardID,
		})
	}
}

// CancelDrag handles POST /cards/{cardID}/drag/cancel
func (h *DragHandler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	collaborator, err := auth.GetCollaboratorFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.engine.CancelDrag(r.Context(), cardID, collaborator.CollaboratorID); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "cancelled",
		"cardId": cardID,
	})
}

// GetDragState handles GET /cards/{cardID}/drag
func (h *DragHandler) GetDragState(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	collaborator, err := auth.GetCollaboratorFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resp := dragStateResponse{CardID: cardID, State: "idle"}
	if state, ok := h.engine.SessionInfo(cardID); ok {
		resp.State = state.String()
		resp.Stale = h.engine.SessionStale(cardID)
		if pending, err := h.engine.PendingPosition(cardID, collaborator.CollaboratorID); err == nil {
			resp.X = pending.X()
			resp.Y = pending.Y()
		}
	}
	if owner, locked := h.engine.IsLocked(cardID); locked {
		resp.LockedBy = owner
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Helper methods

func (h *DragHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *DragHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

func (h *DragHandler) respondAppError(w http.ResponseWriter, err error) {
	h.respondError(w, appErrors.GetHTTPStatus(err), err.Error())
}
