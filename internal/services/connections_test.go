package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regalo/backend/internal/models"
)

type connTestEnv struct {
	users *MemoryUserService
	store *MemoryConnectionStore
	conns *ConnectionsService
}

func newConnTestEnv(t *testing.T) *connTestEnv {
	t.Helper()
	users := NewMemoryUserService(3)
	store := NewMemoryConnectionStore()
	conns := NewConnectionsService(users, store, "regalo", 14*24*time.Hour)

	ctx := context.Background()
	for _, u := range []struct{ id, email, name string }{
		{"u1", "maria@example.com", "Maria"},
		{"u2", "carlos@example.com", "Carlos"},
		{"u3", "ana@example.com", "Ana"},
	} {
		if _, err := users.Create(ctx, u.id, newUserReq(u.email, u.name)); err != nil {
			t.Fatalf("fixture user %s: %v", u.id, err)
		}
	}
	return &connTestEnv{users: users, store: store, conns: conns}
}

func TestSendConnectionRequestByEmail(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if conn.UserID1 != "u1" || conn.UserID2 != "u2" {
		t.Errorf("expected u1 -> u2, got %s -> %s", conn.UserID1, conn.UserID2)
	}
	if conn.Status != models.ConnectionPending {
		t.Errorf("expected pending, got %s", conn.Status)
	}

	all, err := env.conns.ConnectionsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected exactly one connection, got %d", len(all))
	}
}

func TestSendConnectionRequestRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	// While pending, both directions are blocked.
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com"); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("expected ErrAlreadyPending, got %v", err)
	}
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u2", "maria@example.com"); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("expected ErrAlreadyPending for reverse direction, got %v", err)
	}

	if _, err := env.conns.Accept(ctx, conn.ID, "u2"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestSendConnectionRequestErrors(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "maria@example.com"); !errors.Is(err, ErrSelfConnection) {
		t.Errorf("expected ErrSelfConnection, got %v", err)
	}
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "nobody@example.com"); !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound, got %v", err)
	}
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "  "); !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("expected ErrRecipientNotFound for blank email, got %v", err)
	}
}

func TestAcceptSetsViewedFlags(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	accepted, err := env.conns.Accept(ctx, conn.ID, "u2")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if accepted.Status != models.ConnectionAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}
	// The recipient caused the change; only the sender still has to see it.
	if accepted.ViewedByUser1 || !accepted.ViewedByUser2 {
		t.Errorf("expected viewed flags (false, true), got (%v, %v)", accepted.ViewedByUser1, accepted.ViewedByUser2)
	}

	for _, pair := range []struct{ viewer, expected string }{
		{"u1", "u2"},
		{"u2", "u1"},
	} {
		connected, err := env.conns.ConnectedUsers(ctx, pair.viewer)
		if err != nil {
			t.Fatalf("connected users for %s: %v", pair.viewer, err)
		}
		if len(connected) != 1 || connected[0].ID != pair.expected {
			t.Errorf("expected %s to see %s, got %v", pair.viewer, pair.expected, connected)
		}
	}
}

func TestAcceptOnlyByRecipient(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")

	if _, err := env.conns.Accept(ctx, conn.ID, "u1"); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("expected ErrNotRecipient for sender, got %v", err)
	}
	if _, err := env.conns.Accept(ctx, conn.ID, "u3"); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("expected ErrNotRecipient for outsider, got %v", err)
	}
}

func TestRejectIsTerminal(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	rejected, err := env.conns.Reject(ctx, conn.ID, "u2")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != models.ConnectionRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}

	if _, err := env.conns.Accept(ctx, conn.ID, "u2"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
	if _, err := env.conns.Reject(ctx, conn.ID, "u2"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed on double reject, got %v", err)
	}

	// A rejected connection is not active: a fresh request goes through.
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com"); err != nil {
		t.Errorf("expected new request after reject, got %v", err)
	}
}

func TestMarkViewedClearsUnviewedList(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	if _, err := env.conns.Accept(ctx, conn.ID, "u2"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	unviewed, err := env.conns.AcceptedUnviewed(ctx, "u1")
	if err != nil {
		t.Fatalf("unviewed failed: %v", err)
	}
	if len(unviewed) != 1 || unviewed[0].OtherUser == nil || unviewed[0].OtherUser.ID != "u2" {
		t.Fatalf("expected one unviewed acceptance decorated with u2, got %v", unviewed)
	}
	// The recipient already saw it by accepting.
	if unviewed, _ := env.conns.AcceptedUnviewed(ctx, "u2"); len(unviewed) != 0 {
		t.Errorf("expected no unviewed for recipient, got %d", len(unviewed))
	}

	if err := env.conns.MarkViewed(ctx, conn.ID, "u3"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant for outsider, got %v", err)
	}
	if err := env.conns.MarkViewed(ctx, conn.ID, "u1"); err != nil {
		t.Fatalf("mark viewed failed: %v", err)
	}
	if unviewed, _ := env.conns.AcceptedUnviewed(ctx, "u1"); len(unviewed) != 0 {
		t.Errorf("expected no unviewed after acknowledging, got %d", len(unviewed))
	}
}

func TestNotificationCount(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	// u3 -> u1 pending, u1 -> u2 accepted but not yet viewed by u1.
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u3", "maria@example.com"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	if _, err := env.conns.Accept(ctx, conn.ID, "u2"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	counts, err := env.conns.NotificationCount(ctx, "u1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts.Pending != 1 || counts.Accepted != 1 || counts.Total != 2 {
		t.Errorf("expected counts {1 1 2}, got %+v", counts)
	}

	// Requests the user sent do not count as pending for them.
	counts, _ = env.conns.NotificationCount(ctx, "u3")
	if counts.Pending != 0 || counts.Total != 0 {
		t.Errorf("expected zero counts for sender, got %+v", counts)
	}

	if err := env.conns.MarkViewed(ctx, conn.ID, "u1"); err != nil {
		t.Fatalf("mark viewed failed: %v", err)
	}
	counts, _ = env.conns.NotificationCount(ctx, "u1")
	if counts.Accepted != 0 || counts.Total != 1 {
		t.Errorf("expected only the pending invitation left, got %+v", counts)
	}
}

func TestPendingInvitationsAddressedOnly(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	pending, err := env.conns.PendingInvitations(ctx, "u2")
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].FromUser == nil || pending[0].FromUser.ID != "u1" {
		t.Fatalf("expected one pending from u1, got %v", pending)
	}
	if pending, _ := env.conns.PendingInvitations(ctx, "u1"); len(pending) != 0 {
		t.Errorf("expected no pending for the sender, got %d", len(pending))
	}
}

func TestDisconnectAllowsReconnect(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	if _, err := env.conns.Accept(ctx, conn.ID, "u2"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := env.conns.Disconnect(ctx, conn.ID, "u3"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
	if err := env.conns.Disconnect(ctx, conn.ID, "u1"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}

	if connected, _ := env.conns.ConnectedUsers(ctx, "u2"); len(connected) != 0 {
		t.Errorf("expected no connections after disconnect, got %d", len(connected))
	}
	if _, err := env.conns.SendConnectionRequestByEmail(ctx, "u2", "maria@example.com"); err != nil {
		t.Errorf("expected reconnect to succeed, got %v", err)
	}
}

func TestInvitationRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	link, err := env.conns.CreateInvitation(ctx, "u1")
	if err != nil {
		t.Fatalf("create invitation failed: %v", err)
	}
	if link.Link != "regalo://invite/"+link.ID {
		t.Errorf("unexpected link %q", link.Link)
	}

	inv, err := env.conns.ResolveInvitation(ctx, link.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if inv.FromUserID != "u1" || inv.FromUserName != "Maria" {
		t.Errorf("expected sender snapshot, got %+v", inv)
	}

	conn, err := env.conns.AcceptInvitation(ctx, link.ID, "u2")
	if err != nil {
		t.Fatalf("accept invitation failed: %v", err)
	}
	// The link path skips pending entirely.
	if conn.Status != models.ConnectionAccepted {
		t.Errorf("expected accepted, got %s", conn.Status)
	}
	if conn.UserID1 != "u1" || conn.UserID2 != "u2" {
		t.Errorf("expected u1 -> u2, got %s -> %s", conn.UserID1, conn.UserID2)
	}
	if conn.ViewedByUser1 || !conn.ViewedByUser2 {
		t.Errorf("expected viewed flags (false, true), got (%v, %v)", conn.ViewedByUser1, conn.ViewedByUser2)
	}

	// Single use: the link is dead for everyone afterwards.
	if _, err := env.conns.ResolveInvitation(ctx, link.ID); !errors.Is(err, ErrInvitationUsed) {
		t.Errorf("expected ErrInvitationUsed on resolve, got %v", err)
	}
	if _, err := env.conns.AcceptInvitation(ctx, link.ID, "u3"); !errors.Is(err, ErrInvitationUsed) {
		t.Errorf("expected ErrInvitationUsed on replay, got %v", err)
	}
}

func TestInvitationExpiry(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	now := date(2024, time.June, 1)
	env.conns.SetClock(func() time.Time { return now })
	env.store.SetClock(func() time.Time { return now })

	link, err := env.conns.CreateInvitation(ctx, "u1")
	if err != nil {
		t.Fatalf("create invitation failed: %v", err)
	}
	if !link.ExpiresAt.Equal(now.Add(14 * 24 * time.Hour)) {
		t.Errorf("expected 14-day expiry, got %s", link.ExpiresAt)
	}

	// Still valid one day before expiry.
	now = date(2024, time.June, 14)
	if _, err := env.conns.ResolveInvitation(ctx, link.ID); err != nil {
		t.Fatalf("resolve before expiry failed: %v", err)
	}

	now = date(2024, time.June, 16)
	if _, err := env.conns.ResolveInvitation(ctx, link.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("expected ErrInvitationExpired, got %v", err)
	}
	if _, err := env.conns.AcceptInvitation(ctx, link.ID, "u2"); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("expected ErrInvitationExpired on accept, got %v", err)
	}
}

func TestInvitationGuards(t *testing.T) {
	ctx := context.Background()
	env := newConnTestEnv(t)

	link, err := env.conns.CreateInvitation(ctx, "u1")
	if err != nil {
		t.Fatalf("create invitation failed: %v", err)
	}

	if _, err := env.conns.AcceptInvitation(ctx, link.ID, "u1"); !errors.Is(err, ErrSelfConnection) {
		t.Errorf("expected ErrSelfConnection, got %v", err)
	}
	if _, err := env.conns.ResolveInvitation(ctx, "no-such-id"); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("expected ErrInvitationNotFound, got %v", err)
	}

	// An existing connection blocks redemption without burning the link.
	conn, _ := env.conns.SendConnectionRequestByEmail(ctx, "u1", "carlos@example.com")
	if _, err := env.conns.Accept(ctx, conn.ID, "u2"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := env.conns.AcceptInvitation(ctx, link.ID, "u2"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
	if _, err := env.conns.ResolveInvitation(ctx, link.ID); err != nil {
		t.Errorf("expected link still usable by others, got %v", err)
	}
}
