package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/regalo/backend/internal/middleware"
	"github.com/regalo/backend/internal/models"
	"github.com/regalo/backend/internal/services"
)

type InviteHandler struct {
	connections *services.ConnectionsService
}

func NewInviteHandler(connections *services.ConnectionsService) *InviteHandler {
	return &InviteHandler{connections: connections}
}

// Create builds a shareable invitation link for the authenticated user.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	link, err := h.connections.CreateInvitation(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(link))
}

// Resolve loads an invitation for the deep-link landing screen. Unauthenticated
// on purpose: the inviter's name and avatar render before login.
func (h *InviteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	invitationID := chi.URLParam(r, "invitationId")
	if invitationID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing invitation id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	inv, err := h.connections.ResolveInvitation(ctx, invitationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(inv))
}

// Accept redeems the invitation for the authenticated user, creating an
// immediately-accepted connection with the inviter.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	invitationID := chi.URLParam(r, "invitationId")

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	conn, err := h.connections.AcceptInvitation(ctx, invitationID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(conn))
}
