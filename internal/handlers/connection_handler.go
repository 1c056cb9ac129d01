package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/regalo/backend/internal/middleware"
	"github.com/regalo/backend/internal/models"
	"github.com/regalo/backend/internal/services"
)

type ConnectionHandler struct {
	connections *services.ConnectionsService
}

func NewConnectionHandler(connections *services.ConnectionsService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

type emailRequest struct {
	Email string `json:"email"`
}

// SendByEmail creates a pending connection addressed to the user registered
// with the given email.
func (h *ConnectionHandler) SendByEmail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Email is required"))
		return
	}
	if !strings.Contains(email, "@") {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Email is invalid"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	conn, err := h.connections.SendConnectionRequestByEmail(ctx, userID, email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(conn))
}

func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	conns, err := h.connections.ConnectionsFor(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(conns))
}

// ConnectedUsers lists the profiles of everyone the user is connected with.
func (h *ConnectionHandler) ConnectedUsers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	users, err := h.connections.ConnectedUsers(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now()
	public := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, services.PublicProfile(u, now))
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(public))
}

func (h *ConnectionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	pending, err := h.connections.PendingInvitations(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(pending))
}

func (h *ConnectionHandler) AcceptedUnviewed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	accepted, err := h.connections.AcceptedUnviewed(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(accepted))
}

func (h *ConnectionHandler) NotificationCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	counts, err := h.connections.NotificationCount(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(counts))
}

func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, (*services.ConnectionsService).Accept)
}

func (h *ConnectionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, (*services.ConnectionsService).Reject)
}

func (h *ConnectionHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	op func(*services.ConnectionsService, context.Context, string, string) (*models.Connection, error),
) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	connectionID := chi.URLParam(r, "connectionId")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	conn, err := op(h.connections, ctx, connectionID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(conn))
}

// MarkViewed acknowledges a status change, clearing it from the badge count.
func (h *ConnectionHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	connectionID := chi.URLParam(r, "connectionId")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.connections.MarkViewed(ctx, connectionID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Marked as viewed"}))
}

// Disconnect hard-deletes the connection for both sides.
func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	connectionID := chi.URLParam(r, "connectionId")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.connections.Disconnect(ctx, connectionID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Disconnected"}))
}
