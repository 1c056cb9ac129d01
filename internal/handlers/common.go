package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/regalo/backend/internal/models"
	"github.com/regalo/backend/internal/services"
)

const storeTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeServiceError maps the service error taxonomy to HTTP statuses so the
// client can branch on "doesn't exist" vs "bad input" vs "conflict".
func writeServiceError(w http.ResponseWriter, err error) {
	var limitErr *services.ChangeLimitError
	switch {
	case errors.As(err, &limitErr):
		writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse(limitErr.Error()))
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrConnectionNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrRecipientNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrSelfConnection),
		errors.Is(err, services.ErrEmptyName):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrAlreadyConnected),
		errors.Is(err, services.ErrAlreadyPending),
		errors.Is(err, services.ErrInvitationUsed),
		errors.Is(err, services.ErrInvitationExpired),
		errors.Is(err, services.ErrConnectionClosed),
		errors.Is(err, services.ErrEmailExists):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(err.Error()))
	case errors.Is(err, services.ErrNotRecipient),
		errors.Is(err, services.ErrNotParticipant):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Internal error"))
	}
}

// parseDateParam parses a YYYY-MM-DD query parameter.
func parseDateParam(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}
