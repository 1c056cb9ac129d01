package services

import (
	"context"
	"sort"
	"time"

	"github.com/regalo/backend/internal/models"
)

// Birthday date math and projections. Year-independent matching: a birthday
// "falls on" a date when month and day agree; February 29 birthdays match
// only in leap years, same as the upstream data model.

// BirthdaysOnDate filters users to those whose birthday falls on date.
func BirthdaysOnDate(users []*models.User, date time.Time) []models.BirthdayEvent {
	events := make([]models.BirthdayEvent, 0)
	for _, u := range users {
		if u.Birthdate.Month() == date.Month() && u.Birthdate.Day() == date.Day() {
			events = append(events, NewBirthdayEvent(u))
		}
	}
	return events
}

// BirthdaysInMonth filters users to those with a birthday in month, sorted by
// day of month ascending.
func BirthdaysInMonth(users []*models.User, month time.Month) []models.BirthdayEvent {
	events := make([]models.BirthdayEvent, 0)
	for _, u := range users {
		if u.Birthdate.Month() == month {
			events = append(events, NewBirthdayEvent(u))
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Birthdate.Day() < events[j].Birthdate.Day()
	})
	return events
}

// NextBirthday returns the next occurrence of birthdate on or after today.
func NextBirthday(birthdate, today time.Time) time.Time {
	next := time.Date(today.Year(), birthdate.Month(), birthdate.Day(), 0, 0, 0, 0, today.Location())
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if next.Before(todayDate) {
		next = next.AddDate(1, 0, 0)
	}
	return next
}

// Age is the birthday-card age: calendar-year difference, matching what the
// daily reminder announces on the birthday itself.
func Age(birthdate, on time.Time) int {
	return on.Year() - birthdate.Year()
}

// NewBirthdayEvent projects a user into a calendar event. The birth year is
// withheld when the user hides their age; month and day survive so the event
// still lands on the right calendar cell.
func NewBirthdayEvent(u *models.User) models.BirthdayEvent {
	avatar := u.Avatar
	if avatar == "" {
		avatar = "🎉"
	}
	return models.BirthdayEvent{
		UserID:    u.ID,
		Name:      u.Name,
		Avatar:    avatar,
		Birthdate: maskBirthdate(u),
		Hobbies:   u.Hobbies,
		Email:     u.Email,
	}
}

// PublicProfile is the profile view served to users other than the owner.
func PublicProfile(u *models.User, now time.Time) *models.PublicUser {
	return &models.PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Birthdate:    maskBirthdate(u),
		Avatar:       u.Avatar,
		Hobbies:      u.Hobbies,
		HideAge:      u.HideAge,
		NextBirthday: NextBirthday(u.Birthdate, now),
	}
}

func maskBirthdate(u *models.User) time.Time {
	if !u.HideAge {
		return u.Birthdate
	}
	b := u.Birthdate
	return time.Date(1, b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
}

// BirthdayService answers calendar queries over a viewer's connected users.
type BirthdayService struct {
	connections *ConnectionsService
}

func NewBirthdayService(connections *ConnectionsService) *BirthdayService {
	return &BirthdayService{connections: connections}
}

// ConnectionBirthdaysOnDate lists the viewer's connections with a birthday
// on the given date.
func (s *BirthdayService) ConnectionBirthdaysOnDate(ctx context.Context, viewerID string, date time.Time) ([]models.BirthdayEvent, error) {
	users, err := s.connections.ConnectedUsers(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return BirthdaysOnDate(users, date), nil
}

// ConnectionBirthdaysInMonth lists the viewer's connections with a birthday
// in the given month, sorted by day.
func (s *BirthdayService) ConnectionBirthdaysInMonth(ctx context.Context, viewerID string, month time.Month) ([]models.BirthdayEvent, error) {
	users, err := s.connections.ConnectedUsers(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return BirthdaysInMonth(users, month), nil
}
