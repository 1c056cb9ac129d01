package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/regalo/backend/internal/middleware"
	"github.com/regalo/backend/internal/models"
	"github.com/regalo/backend/internal/services"
)

type BirthdayHandler struct {
	birthdays *services.BirthdayService
}

func NewBirthdayHandler(birthdays *services.BirthdayService) *BirthdayHandler {
	return &BirthdayHandler{birthdays: birthdays}
}

// OnDate lists the viewer's connections with a birthday on ?date=YYYY-MM-DD
// (default today). The year of the query date is ignored for matching.
func (h *BirthdayHandler) OnDate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	events, err := h.birthdays.ConnectionBirthdaysOnDate(ctx, userID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(events))
}

// InMonth lists the viewer's connections with a birthday in ?month=1..12
// (default the current month), sorted by day of month.
func (h *BirthdayHandler) InMonth(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	month := time.Now().Month()
	if raw := r.URL.Query().Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid month, expected 1-12"))
			return
		}
		month = time.Month(n)
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	events, err := h.birthdays.ConnectionBirthdaysInMonth(ctx, userID, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(events))
}
