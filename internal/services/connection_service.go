package services

import (
	"context"
	"errors"

	"github.com/regalo/backend/internal/models"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionClosed   = errors.New("connection already decided")
	ErrSelfConnection     = errors.New("cannot connect with yourself")
	ErrAlreadyConnected   = errors.New("already connected with this user")
	ErrAlreadyPending     = errors.New("invitation to this user is already pending")
	ErrRecipientNotFound  = errors.New("no user registered with that email")
	ErrNotRecipient       = errors.New("only the invited user can decide on this request")
	ErrNotParticipant     = errors.New("user is not part of this connection")

	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationUsed     = errors.New("invitation was already used")
)

// ConnectionStore is CRUD over connections and invitation-link tokens. The
// state-machine rules (who may accept, terminal states, duplicate checks)
// live in ConnectionsService; the store only guarantees the per-document
// write semantics, including the conditional single-use invitation consume.
type ConnectionStore interface {
	CreateInvitation(ctx context.Context, inv *models.ConnectionInvitation) (*models.ConnectionInvitation, error)
	GetInvitation(ctx context.Context, id string) (*models.ConnectionInvitation, error)
	// ConsumeInvitation marks the invitation used by usedBy if and only if it
	// is currently unused and unexpired. Fails with ErrInvitationNotFound,
	// ErrInvitationUsed or ErrInvitationExpired otherwise; two concurrent
	// consumers cannot both succeed.
	ConsumeInvitation(ctx context.Context, id, usedBy string) (*models.ConnectionInvitation, error)

	CreateConnection(ctx context.Context, userID1, userID2 string) (*models.Connection, error)
	GetConnection(ctx context.Context, id string) (*models.Connection, error)
	GetConnectionsByUser(ctx context.Context, userID string) ([]*models.Connection, error)
	// UpdateConnectionStatus sets the status. On acceptance the viewed flags
	// flip: the sender has a fresh unseen event, the recipient caused it.
	UpdateConnectionStatus(ctx context.Context, id string, status models.ConnectionStatus) (*models.Connection, error)
	MarkConnectionAsViewed(ctx context.Context, id, userID string) error
	DeleteConnection(ctx context.Context, id string) error
	// ListAcceptedConnections returns every accepted connection; the monthly
	// digest job joins it against the full user set.
	ListAcceptedConnections(ctx context.Context) ([]*models.Connection, error)
}
