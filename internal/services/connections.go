package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/regalo/backend/internal/models"
)

// ConnectionsService orchestrates the connection lifecycle on top of the
// identity store and the connection store: email requests, shareable
// invitation links, accept/reject decisions, disconnects and the viewed-flag
// bookkeeping that drives the notification badge.
type ConnectionsService struct {
	users UserService
	store ConnectionStore

	linkScheme    string
	invitationTTL time.Duration
	now           func() time.Time
}

func NewConnectionsService(users UserService, store ConnectionStore, linkScheme string, invitationTTL time.Duration) *ConnectionsService {
	return &ConnectionsService{
		users:         users,
		store:         store,
		linkScheme:    linkScheme,
		invitationTTL: invitationTTL,
		now:           time.Now,
	}
}

// SetClock overrides the service clock for tests.
func (s *ConnectionsService) SetClock(now func() time.Time) {
	s.now = now
}

// SendConnectionRequestByEmail resolves toEmail to a registered user and
// creates a pending connection addressed to them.
//
// The duplicate check is read-then-write with no isolation: two
// near-simultaneous requests between the same pair can both pass it. The
// store has no uniqueness constraint that could express "at most one active
// connection per pair" without also blocking reconnection after a reject or
// disconnect, so the race is accepted at this scale.
func (s *ConnectionsService) SendConnectionRequestByEmail(ctx context.Context, fromUserID, toEmail string) (*models.Connection, error) {
	if strings.TrimSpace(toEmail) == "" {
		return nil, ErrRecipientNotFound
	}

	toUser, err := s.users.GetByEmail(ctx, toEmail)
	if err != nil {
		if err == ErrUserNotFound {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	conn, err := s.createConnection(ctx, fromUserID, toUser.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("[SendConnectionRequestByEmail] from=%s to=%s connection=%s", fromUserID, toUser.ID, conn.ID)
	return conn, nil
}

// createConnection enforces the absent -> pending transition rules shared by
// the email and invitation-link paths.
func (s *ConnectionsService) createConnection(ctx context.Context, fromUserID, toUserID string) (*models.Connection, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfConnection
	}

	existing, err := s.activeConnectionBetween(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.ConnectionAccepted {
			return nil, ErrAlreadyConnected
		}
		return nil, ErrAlreadyPending
	}

	return s.store.CreateConnection(ctx, fromUserID, toUserID)
}

// activeConnectionBetween scans a's connections for an active one with b.
// O(n) over a's connection set, which is fine at this scale.
func (s *ConnectionsService) activeConnectionBetween(ctx context.Context, a, b string) (*models.Connection, error) {
	conns, err := s.store.GetConnectionsByUser(ctx, a)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if c.Active() && c.Involves(b) {
			return c, nil
		}
	}
	return nil, nil
}

// CreateInvitation builds a time-boxed shareable invitation and the deep link
// that opens it in the app.
func (s *ConnectionsService) CreateInvitation(ctx context.Context, fromUserID string) (*models.InvitationLinkResponse, error) {
	from, err := s.users.GetByID(ctx, fromUserID)
	if err != nil {
		return nil, err
	}

	inv, err := s.store.CreateInvitation(ctx, &models.ConnectionInvitation{
		FromUserID:     from.ID,
		FromUserName:   from.Name,
		FromUserAvatar: from.Avatar,
		ExpiresAt:      s.now().Add(s.invitationTTL),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreateInvitation] from=%s invitation=%s", fromUserID, inv.ID)
	return &models.InvitationLinkResponse{
		ID:        inv.ID,
		Link:      s.InvitationLink(inv.ID),
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

// InvitationLink renders the deep link for an invitation id.
func (s *ConnectionsService) InvitationLink(invitationID string) string {
	return fmt.Sprintf("%s://invite/%s", s.linkScheme, invitationID)
}

// ResolveInvitation loads an invitation for the landing screen, rejecting
// expired and already-used tokens.
func (s *ConnectionsService) ResolveInvitation(ctx context.Context, id string) (*models.ConnectionInvitation, error) {
	inv, err := s.store.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Used {
		return nil, ErrInvitationUsed
	}
	if inv.Expired(s.now()) {
		return nil, ErrInvitationExpired
	}
	return inv, nil
}

// AcceptInvitation redeems a link token: the invitation is consumed
// (single-use, conditionally) and an immediately-accepted connection is
// created between the inviter and the recipient. The recipient never sees a
// pending stage on this path.
func (s *ConnectionsService) AcceptInvitation(ctx context.Context, invitationID, recipientUserID string) (*models.Connection, error) {
	inv, err := s.ResolveInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.FromUserID == recipientUserID {
		return nil, ErrSelfConnection
	}
	if existing, err := s.activeConnectionBetween(ctx, recipientUserID, inv.FromUserID); err != nil {
		return nil, err
	} else if existing != nil {
		if existing.Status == models.ConnectionAccepted {
			return nil, ErrAlreadyConnected
		}
		return nil, ErrAlreadyPending
	}

	// Consume before creating the connection so a replayed link fails even
	// if the connection write below does not happen.
	if _, err := s.store.ConsumeInvitation(ctx, invitationID, recipientUserID); err != nil {
		return nil, err
	}

	conn, err := s.store.CreateConnection(ctx, inv.FromUserID, recipientUserID)
	if err != nil {
		return nil, err
	}
	accepted, err := s.store.UpdateConnectionStatus(ctx, conn.ID, models.ConnectionAccepted)
	if err != nil {
		return nil, err
	}

	log.Printf("[AcceptInvitation] invitation=%s from=%s to=%s connection=%s",
		invitationID, inv.FromUserID, recipientUserID, accepted.ID)
	return accepted, nil
}

// Accept moves a pending connection to accepted. Only the recipient may do
// this; the original client trusted the UI for that check, here it is
// verified server-side.
func (s *ConnectionsService) Accept(ctx context.Context, connectionID, actingUserID string) (*models.Connection, error) {
	return s.decide(ctx, connectionID, actingUserID, models.ConnectionAccepted)
}

// Reject moves a pending connection to rejected, which is terminal.
func (s *ConnectionsService) Reject(ctx context.Context, connectionID, actingUserID string) (*models.Connection, error) {
	return s.decide(ctx, connectionID, actingUserID, models.ConnectionRejected)
}

func (s *ConnectionsService) decide(ctx context.Context, connectionID, actingUserID string, status models.ConnectionStatus) (*models.Connection, error) {
	conn, err := s.store.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.UserID2 != actingUserID {
		return nil, ErrNotRecipient
	}
	if conn.Status != models.ConnectionPending {
		return nil, ErrConnectionClosed
	}
	return s.store.UpdateConnectionStatus(ctx, connectionID, status)
}

// Disconnect hard-deletes the connection. Either participant may do it; the
// pair can reconnect later via a fresh request.
func (s *ConnectionsService) Disconnect(ctx context.Context, connectionID, actingUserID string) error {
	conn, err := s.store.GetConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if !conn.Involves(actingUserID) {
		return ErrNotParticipant
	}
	return s.store.DeleteConnection(ctx, connectionID)
}

// MarkViewed acknowledges a status change for whichever side the acting user
// occupies.
func (s *ConnectionsService) MarkViewed(ctx context.Context, connectionID, actingUserID string) error {
	conn, err := s.store.GetConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if !conn.Involves(actingUserID) {
		return ErrNotParticipant
	}
	return s.store.MarkConnectionAsViewed(ctx, connectionID, actingUserID)
}

// ConnectionsFor returns every connection the user is part of, any status.
func (s *ConnectionsService) ConnectionsFor(ctx context.Context, userID string) ([]*models.Connection, error) {
	return s.store.GetConnectionsByUser(ctx, userID)
}

// ConnectedUsers returns the profiles on the other side of the user's
// accepted connections.
func (s *ConnectionsService) ConnectedUsers(ctx context.Context, userID string) ([]*models.User, error) {
	conns, err := s.store.GetConnectionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0)
	for _, c := range conns {
		if c.Status != models.ConnectionAccepted {
			continue
		}
		other, err := s.users.GetByID(ctx, c.OtherUser(userID))
		if err != nil {
			if err == ErrUserNotFound {
				continue // deleted profile; skip the dangling connection
			}
			return nil, err
		}
		users = append(users, other)
	}
	return users, nil
}

// PendingInvitations returns pending connections addressed to the user,
// decorated with the sender's profile. Requests the user sent are excluded.
func (s *ConnectionsService) PendingInvitations(ctx context.Context, userID string) ([]*models.PendingInvitation, error) {
	conns, err := s.store.GetConnectionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.PendingInvitation, 0)
	for _, c := range conns {
		if c.Status != models.ConnectionPending || c.UserID2 != userID {
			continue
		}
		item := &models.PendingInvitation{Connection: *c}
		if from, err := s.users.GetByID(ctx, c.UserID1); err == nil {
			item.FromUser = PublicProfile(from, s.now())
		}
		pending = append(pending, item)
	}
	return pending, nil
}

// AcceptedUnviewed returns accepted connections the user has not
// acknowledged yet, decorated with the other side's profile.
func (s *ConnectionsService) AcceptedUnviewed(ctx context.Context, userID string) ([]*models.AcceptedConnection, error) {
	conns, err := s.store.GetConnectionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	accepted := make([]*models.AcceptedConnection, 0)
	for _, c := range conns {
		if c.Status != models.ConnectionAccepted || c.ViewedBy(userID) {
			continue
		}
		item := &models.AcceptedConnection{Connection: *c}
		if other, err := s.users.GetByID(ctx, c.OtherUser(userID)); err == nil {
			item.OtherUser = PublicProfile(other, s.now())
		}
		accepted = append(accepted, item)
	}
	return accepted, nil
}

// NotificationCount is the badge count: pending invitations plus accepted
// connections not yet viewed by this user.
func (s *ConnectionsService) NotificationCount(ctx context.Context, userID string) (*models.NotificationCountResponse, error) {
	conns, err := s.store.GetConnectionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := &models.NotificationCountResponse{}
	for _, c := range conns {
		switch {
		case c.Status == models.ConnectionPending && c.UserID2 == userID:
			counts.Pending++
		case c.Status == models.ConnectionAccepted && !c.ViewedBy(userID):
			counts.Accepted++
		}
	}
	counts.Total = counts.Pending + counts.Accepted
	return counts, nil
}
