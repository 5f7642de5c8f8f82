package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"priomatrix-backend/application/ideas"
	"priomatrix-backend/application/store"
	"priomatrix-backend/pkg/auth"
	appErrors "priomatrix-backend/pkg/errors"
	"priomatrix-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CardHandler handles idea card HTTP requests
type CardHandler struct {
	service *ideas.Service
	store   *store.CardStore
	logger  *zap.Logger
}

// NewCardHandler creates a new card handler
func NewCardHandler(service *ideas.Service, cardStore *store.CardStore, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		service: service,
		store:   cardStore,
		logger:  logger,
	}
}

// CreateCardRequest represents the request body for creating a card
type CreateCardRequest struct {
	ProjectID string  `json:"projectId" validate:"required"`
	Content   string  `json:"content" validate:"required,max=500"`
	Details   string  `json:"details,omitempty" validate:"omitempty,max=5000"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Priority  string  `json:"priority,omitempty" validate:"omitempty,oneof=low moderate high strategic innovation"`
}

// UpdateCardRequest represents the request body for updating card content
type UpdateCardRequest struct {
	Content string `json:"content" validate:"required,max=500"`
	Details string `json:"details,omitempty" validate:"omitempty,max=5000"`
}

// CollapseCardRequest represents the request body for collapsing a card
type CollapseCardRequest struct {
	Collapsed bool `json:"collapsed"`
}

// GenerateIdeasRequest represents the request body for AI idea generation
type GenerateIdeasRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
	Prompt    string `json:"prompt" validate:"required,max=1000"`
	Count     int    `json:"count,omitempty" validate:"omitempty,gte=1,lte=10"`
}

// CreateCard handles POST /cards
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	collaborator, err := auth.GetCollaboratorFromContext(r.Context())
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	created, err := h.service.CreateCard(r.Context(), req.ProjectID, req.Content, req.Details, req.X, req.Y, req.Priority)
	if err != nil {
		h.logger.Error("Failed to create card",
			zap.String("projectID", req.ProjectID),
			zap.String("collaboratorID", collaborator.CollaboratorID),
			zap.Error(err),
		)
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, store.Snapshot(created))
}

// GetCard handles GET /cards/{cardID}
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	found, err := h.store.Get(cardID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, store.Snapshot(found))
}

// ListCards handles GET /cards?projectId=...&grouped=true
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		h.respondError(w, http.StatusBadRequest, "projectId query parameter is required")
		return
	}

	grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped"))
	if grouped {
		byQuadrant := h.store.ListByQuadrant(projectID)
		out := make(map[string][]interface{}, len(byQuadrant))
		for quadrant, cards := range byQuadrant {
			group := make([]interface{}, 0, len(cards))
			for _, c := range cards {
				group = append(group, store.Snapshot(c))
			}
			out[string(quadrant)] = group
		}
		h.respondJSON(w, http.StatusOK, map[string]interface{}{"quadrants": out})
		return
	}

	cards := h.store.List(projectID)
	snapshots := make([]interface{}, 0, len(cards))
	for _, c := range cards {
		snapshots = append(snapshots, store.Snapshot(c))
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"cards": snapshots})
}

// UpdateCard handles PUT /cards/{cardID}
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	var req UpdateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.service.UpdateContent(r.Context(), cardID, req.Content, req.Details); err != nil {
		h.respondAppError(w, err)
		return
	}

	updated, err := h.store.Get(cardID)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, store.Snapshot(updated))
}

// CollapseCard handles PUT /cards/{cardID}/collapse
func (h *CardHandler) CollapseCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	var req CollapseCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.SetCollapsed(r.Context(), cardID, req.Collapsed); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"id": cardID, "collapsed": req.Collapsed})
}

// DeleteCard handles DELETE /cards/{cardID}
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	if err := h.service.RemoveCard(r.Context(), cardID); err != nil {
		h.respondAppError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"id": cardID, "deleted": true})
}

// GenerateIdeas handles POST /cards/generate
func (h *CardHandler) GenerateIdeas(w http.ResponseWriter, r *http.Request) {
	var req GenerateIdeasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}

	created, err := h.service.GenerateIdeas(r.Context(), req.ProjectID, req.Prompt, req.Count)
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	snapshots := make([]interface{}, 0, len(created))
	for _, c := range created {
		snapshots = append(snapshots, store.Snapshot(c))
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"cards": snapshots})
}

// Helper methods

func (h *CardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *CardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

func (h *CardHandler) respondAppError(w http.ResponseWriter, err error) {
	h.respondError(w, appErrors.GetHTTPStatus(err), err.Error())
}
