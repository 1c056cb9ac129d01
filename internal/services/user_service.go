package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/regalo/backend/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmptyName       = errors.New("name cannot be empty")
)

// ChangeLimitError signals that a daily edit quota was exhausted. It is
// advisory: the previous value is kept and the caller is told when the quota
// resets (midnight after ResetsAt's day).
type ChangeLimitError struct {
	Field    string
	Max      int
	ResetsAt time.Time
}

func (e *ChangeLimitError) Error() string {
	return fmt.Sprintf("daily limit of %d %s changes reached, resets %s",
		e.Max, e.Field, e.ResetsAt.Format("2006-01-02"))
}

// UserService is the identity store. It has a Mongo implementation for
// production and an in-memory one for tests and local development.
type UserService interface {
	// Create inserts a new profile. id is the auth UID; when empty a random
	// id is generated (jwt auth mode).
	Create(ctx context.Context, id string, req *models.CreateUserRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)

	SetPushToken(ctx context.Context, id, token string) error
	// ClearPushToken removes the token from whichever user holds it. Used by
	// the notification jobs when the push gateway reports it permanently
	// invalid.
	ClearPushToken(ctx context.Context, token string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// changeAllowed implements the daily quota: the first edit of a new calendar
// day always passes, further edits pass while the counter is below max.
func changeAllowed(count int, last, now time.Time, max int) bool {
	if last.IsZero() || !sameCalendarDay(last, now) {
		return true
	}
	return count < max
}

// nextChangeCount returns the counter value after an allowed edit: reset to 1
// on the first edit of a day, incremented otherwise.
func nextChangeCount(count int, last, now time.Time) int {
	if last.IsZero() || !sameCalendarDay(last, now) {
		return 1
	}
	return count + 1
}

// startOfNextDay is when a daily quota resets.
func startOfNextDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// applyUpdate validates an update against u and mutates a copy with the new
// field values and counters. Both store implementations route edits through
// it so the throttle rules stay in one place.
func applyUpdate(u models.User, req *models.UpdateUserRequest, now time.Time, maxChanges int) (models.User, error) {
	if req.Name != nil && *req.Name != u.Name {
		if strings.TrimSpace(*req.Name) == "" {
			return u, ErrEmptyName
		}
		if !changeAllowed(u.NameChangesCount, u.NameLastChangeAt, now, maxChanges) {
			return u, &ChangeLimitError{Field: "name", Max: maxChanges, ResetsAt: startOfNextDay(now)}
		}
		u.NameChangesCount = nextChangeCount(u.NameChangesCount, u.NameLastChangeAt, now)
		u.NameLastChangeAt = now
		u.Name = *req.Name
	}
	if req.HideAge != nil && *req.HideAge != u.HideAge {
		if !changeAllowed(u.HideAgeChangesCount, u.HideAgeLastChangeAt, now, maxChanges) {
			return u, &ChangeLimitError{Field: "privacy", Max: maxChanges, ResetsAt: startOfNextDay(now)}
		}
		u.HideAgeChangesCount = nextChangeCount(u.HideAgeChangesCount, u.HideAgeLastChangeAt, now)
		u.HideAgeLastChangeAt = now
		u.HideAge = *req.HideAge
	}
	if req.Birthdate != nil {
		u.Birthdate = *req.Birthdate
	}
	if req.Avatar != nil {
		u.Avatar = *req.Avatar
	}
	if req.Hobbies != nil {
		u.Hobbies = *req.Hobbies
	}
	u.UpdatedAt = now
	return u, nil
}
