package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/regalo/backend/internal/models"
)

// ReminderService runs the scheduled notification jobs. Both jobs are safe to
// re-run: the worst case of an overlapping invocation is a duplicate push,
// never corrupted state.
type ReminderService struct {
	users UserService
	store ConnectionStore
	push  PushSender
	loc   *time.Location
	now   func() time.Time
}

func NewReminderService(users UserService, store ConnectionStore, push PushSender, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderService{
		users: users,
		store: store,
		push:  push,
		loc:   loc,
		now:   time.Now,
	}
}

// SetClock overrides the job clock for tests.
func (s *ReminderService) SetClock(now func() time.Time) {
	s.now = now
}

// SendDailyReminders matches today's month/day against every user's birthdate
// and pushes to each birthday-haver's accepted connections. A failure for one
// birthday-haver does not abort the others; a failure reading the collections
// propagates so the scheduler retries visibly.
func (s *ReminderService) SendDailyReminders(ctx context.Context) error {
	today := s.now().In(s.loc)
	log.Printf("[DailyReminders] checking birthdays for %d/%d", today.Day(), int(today.Month()))

	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var birthdayUsers []*models.User
	for _, u := range users {
		if u.Birthdate.Month() == today.Month() && u.Birthdate.Day() == today.Day() {
			birthdayUsers = append(birthdayUsers, u)
		}
	}
	if len(birthdayUsers) == 0 {
		log.Printf("[DailyReminders] no birthdays today")
		return nil
	}

	for _, birthdayUser := range birthdayUsers {
		if err := s.notifyConnectionsAboutBirthday(ctx, birthdayUser, today); err != nil {
			log.Printf("[DailyReminders] failed for user=%s: %v", birthdayUser.ID, err)
		}
	}
	log.Printf("[DailyReminders] done, %d birthdays processed", len(birthdayUsers))
	return nil
}

func (s *ReminderService) notifyConnectionsAboutBirthday(ctx context.Context, birthdayUser *models.User, today time.Time) error {
	conns, err := s.store.GetConnectionsByUser(ctx, birthdayUser.ID)
	if err != nil {
		return err
	}

	var tokens []string
	for _, c := range conns {
		if c.Status != models.ConnectionAccepted {
			continue
		}
		other, err := s.users.GetByID(ctx, c.OtherUser(birthdayUser.ID))
		if err != nil || other.PushToken == "" {
			continue
		}
		tokens = append(tokens, other.PushToken)
	}
	if len(tokens) == 0 {
		log.Printf("[DailyReminders] user=%s has no reachable connections", birthdayUser.ID)
		return nil
	}

	msg := PushMessage{
		Title: fmt.Sprintf("🎉 It's %s's birthday today!", birthdayUser.Name),
		Data: map[string]string{
			"type":     "birthday",
			"userId":   birthdayUser.ID,
			"userName": birthdayUser.Name,
		},
	}
	if birthdayUser.HideAge {
		msg.Body = "Don't forget to wish them a happy birthday 🎂"
	} else {
		age := Age(birthdayUser.Birthdate, today)
		msg.Body = fmt.Sprintf("They turn %d today. Don't forget to wish them a happy birthday 🎂", age)
		msg.Data["age"] = strconv.Itoa(age)
	}

	result, err := s.push.SendMulticast(ctx, tokens, msg)
	if err != nil {
		return err
	}
	log.Printf("[DailyReminders] user=%s sent=%d failed=%d", birthdayUser.ID, result.SuccessCount, result.FailureCount)

	for _, token := range result.InvalidTokens {
		if err := s.users.ClearPushToken(ctx, token); err != nil {
			log.Printf("[DailyReminders] failed to clear invalid token: %v", err)
		} else {
			log.Printf("[DailyReminders] cleared invalid token")
		}
	}
	return nil
}

// SendMonthlySummaries builds a per-user digest of next month's birthdays
// among their accepted connections. Scheduled for the 28th so it lands before
// any month ends.
func (s *ReminderService) SendMonthlySummaries(ctx context.Context) error {
	today := s.now().In(s.loc)
	nextMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, 1, 0).Month()
	log.Printf("[MonthlySummary] preparing digest for %s", nextMonth)

	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	conns, err := s.store.ListAcceptedConnections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	userByID := make(map[string]*models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	for _, user := range users {
		if user.PushToken == "" {
			continue
		}
		if err := s.sendMonthlySummary(ctx, user, conns, userByID, nextMonth); err != nil {
			log.Printf("[MonthlySummary] failed for user=%s: %v", user.ID, err)
		}
	}
	log.Printf("[MonthlySummary] done")
	return nil
}

func (s *ReminderService) sendMonthlySummary(
	ctx context.Context,
	user *models.User,
	conns []*models.Connection,
	userByID map[string]*models.User,
	month time.Month,
) error {
	var upcoming []*models.User
	for _, c := range conns {
		if !c.Involves(user.ID) {
			continue
		}
		partner, ok := userByID[c.OtherUser(user.ID)]
		if !ok || partner.Birthdate.Month() != month {
			continue
		}
		upcoming = append(upcoming, partner)
	}
	if len(upcoming) == 0 {
		return nil
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Birthdate.Day() < upcoming[j].Birthdate.Day()
	})

	// Up to three names in the body, the rest summarized.
	shown := upcoming
	if len(shown) > 3 {
		shown = shown[:3]
	}
	entries := make([]string, 0, len(shown))
	for _, p := range shown {
		entries = append(entries, fmt.Sprintf("%s (%d %s)", p.Name, p.Birthdate.Day(), month.String()[:3]))
	}
	noun := "birthdays"
	if len(upcoming) == 1 {
		noun = "birthday"
	}
	body := fmt.Sprintf("You have %d %s: %s", len(upcoming), noun, strings.Join(entries, ", "))
	if len(upcoming) > 3 {
		body += fmt.Sprintf(" and %d more", len(upcoming)-3)
	}

	err := s.push.Send(ctx, user.PushToken, PushMessage{
		Title: fmt.Sprintf("🎂 Birthdays in %s", month),
		Body:  body,
		Data: map[string]string{
			"type":  "monthly_summary",
			"month": month.String(),
			"count": strconv.Itoa(len(upcoming)),
		},
	})
	if err != nil {
		if errors.Is(err, ErrPushTokenInvalid) {
			if clearErr := s.users.ClearPushToken(ctx, user.PushToken); clearErr != nil {
				log.Printf("[MonthlySummary] failed to clear invalid token user=%s: %v", user.ID, clearErr)
			} else {
				log.Printf("[MonthlySummary] cleared invalid token user=%s", user.ID)
			}
		}
		return err
	}
	log.Printf("[MonthlySummary] sent to user=%s count=%d", user.ID, len(upcoming))
	return nil
}
