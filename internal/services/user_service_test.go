package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regalo/backend/internal/models"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newUserReq(email, name string) *models.CreateUserRequest {
	return &models.CreateUserRequest{
		Email:     email,
		Name:      name,
		Birthdate: date(1995, time.November, 15),
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(3)

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Same address with different casing still collides.
	if _, err := svc.Create(ctx, "u2", newUserReq("Maria@Example.com", "Other")); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(3)

	req := newUserReq("maria@example.com", "Maria")
	req.Password = "secret123"
	if _, err := svc.Create(ctx, "", req); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "maria@example.com", "secret123"); err != nil {
		t.Errorf("expected login to succeed, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "maria@example.com", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestNameChangeDailyLimit(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 1)
	svc := NewMemoryUserService(3)
	svc.SetClock(func() time.Time { return now })

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for i, name := range []string{"Maria A", "Maria B", "Maria C"} {
		u, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{Name: strPtr(name)})
		if err != nil {
			t.Fatalf("edit %d failed: %v", i+1, err)
		}
		if u.NameChangesCount != i+1 {
			t.Errorf("edit %d: expected counter %d, got %d", i+1, i+1, u.NameChangesCount)
		}
	}

	// Fourth same-day edit is blocked and the previous name kept.
	_, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{Name: strPtr("Maria D")})
	var limitErr *ChangeLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected ChangeLimitError, got %v", err)
	}
	if limitErr.Field != "name" || limitErr.Max != 3 {
		t.Errorf("unexpected limit error: %+v", limitErr)
	}
	if !limitErr.ResetsAt.Equal(date(2024, time.June, 2)) {
		t.Errorf("expected reset at 2024-06-02, got %s", limitErr.ResetsAt)
	}
	u, _ := svc.GetByID(ctx, "u1")
	if u.Name != "Maria C" {
		t.Errorf("expected name unchanged after blocked edit, got %q", u.Name)
	}

	// Next calendar day the counter resets.
	now = date(2024, time.June, 2)
	u, err = svc.Update(ctx, "u1", &models.UpdateUserRequest{Name: strPtr("Maria D")})
	if err != nil {
		t.Fatalf("next-day edit failed: %v", err)
	}
	if u.NameChangesCount != 1 {
		t.Errorf("expected counter reset to 1, got %d", u.NameChangesCount)
	}
}

func TestHideAgeLimitIndependentOfName(t *testing.T) {
	ctx := context.Background()
	now := date(2024, time.June, 1)
	svc := NewMemoryUserService(3)
	svc.SetClock(func() time.Time { return now })

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Exhaust the name quota.
	for _, name := range []string{"A", "B", "C"} {
		if _, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{Name: strPtr(name)}); err != nil {
			t.Fatalf("name edit failed: %v", err)
		}
	}

	// Privacy toggles still have their own quota.
	for i, v := range []bool{true, false, true} {
		u, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{HideAge: boolPtr(v)})
		if err != nil {
			t.Fatalf("toggle %d failed: %v", i+1, err)
		}
		if u.HideAgeChangesCount != i+1 {
			t.Errorf("toggle %d: expected counter %d, got %d", i+1, i+1, u.HideAgeChangesCount)
		}
	}
	_, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{HideAge: boolPtr(false)})
	var limitErr *ChangeLimitError
	if !errors.As(err, &limitErr) || limitErr.Field != "privacy" {
		t.Fatalf("expected privacy ChangeLimitError, got %v", err)
	}
}

func TestEmptyNameRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(3)

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, name := range []string{"", "   "} {
		if _, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{Name: strPtr(name)}); !errors.Is(err, ErrEmptyName) {
			t.Errorf("name %q: expected ErrEmptyName, got %v", name, err)
		}
	}

	u, _ := svc.GetByID(ctx, "u1")
	if u.Name != "Maria" {
		t.Errorf("expected name unchanged, got %q", u.Name)
	}
	if u.NameChangesCount != 0 {
		t.Errorf("expected rejected edit to leave the counter alone, got %d", u.NameChangesCount)
	}
}

func TestNoOpEditDoesNotConsumeQuota(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(3)

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	u, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{Name: strPtr("Maria")})
	if err != nil {
		t.Fatalf("no-op edit failed: %v", err)
	}
	if u.NameChangesCount != 0 {
		t.Errorf("expected counter untouched by no-op edit, got %d", u.NameChangesCount)
	}
}

func TestUnthrottledFieldsAlwaysEditable(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(3)

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		avatar := "🦄"
		if _, err := svc.Update(ctx, "u1", &models.UpdateUserRequest{Avatar: &avatar}); err != nil {
			t.Fatalf("avatar edit %d failed: %v", i+1, err)
		}
	}
}

func TestClearPushTokenByValue(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryUserService(3)

	if _, err := svc.Create(ctx, "u1", newUserReq("maria@example.com", "Maria")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(ctx, "u2", newUserReq("carlos@example.com", "Carlos")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.SetPushToken(ctx, "u1", "token-1"); err != nil {
		t.Fatalf("set token failed: %v", err)
	}
	if err := svc.SetPushToken(ctx, "u2", "token-2"); err != nil {
		t.Fatalf("set token failed: %v", err)
	}

	if err := svc.ClearPushToken(ctx, "token-1"); err != nil {
		t.Fatalf("clear token failed: %v", err)
	}
	u1, _ := svc.GetByID(ctx, "u1")
	u2, _ := svc.GetByID(ctx, "u2")
	if u1.PushToken != "" {
		t.Errorf("expected u1 token cleared, got %q", u1.PushToken)
	}
	if u2.PushToken != "token-2" {
		t.Errorf("expected u2 token untouched, got %q", u2.PushToken)
	}
}
