package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regalo/backend/internal/models"
)

// MemoryConnectionStore is the in-memory ConnectionStore used by tests and
// local development.
type MemoryConnectionStore struct {
	mu          sync.RWMutex
	connections map[string]*models.Connection
	invitations map[string]*models.ConnectionInvitation
	now         func() time.Time
}

func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{
		connections: make(map[string]*models.Connection),
		invitations: make(map[string]*models.ConnectionInvitation),
		now:         time.Now,
	}
}

// SetClock overrides the store clock. Tests use it to expire invitations.
func (s *MemoryConnectionStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed bulk-loads fixture connections (dev mode).
func (s *MemoryConnectionStore) Seed(conns []*models.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range conns {
		stored := *c
		s.connections[stored.ID] = &stored
	}
}

func (s *MemoryConnectionStore) CreateInvitation(ctx context.Context, inv *models.ConnectionInvitation) (*models.ConnectionInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *inv
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = s.now()
	s.invitations[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (s *MemoryConnectionStore) GetInvitation(ctx context.Context, id string) (*models.ConnectionInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, exists := s.invitations[id]
	if !exists {
		return nil, ErrInvitationNotFound
	}
	result := *inv
	return &result, nil
}

func (s *MemoryConnectionStore) ConsumeInvitation(ctx context.Context, id, usedBy string) (*models.ConnectionInvitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, exists := s.invitations[id]
	if !exists {
		return nil, ErrInvitationNotFound
	}
	if inv.Used {
		return nil, ErrInvitationUsed
	}
	if inv.Expired(s.now()) {
		return nil, ErrInvitationExpired
	}

	inv.Used = true
	inv.UsedBy = usedBy
	result := *inv
	return &result, nil
}

func (s *MemoryConnectionStore) CreateConnection(ctx context.Context, userID1, userID2 string) (*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conn := &models.Connection{
		ID:        uuid.New().String(),
		UserID1:   userID1,
		UserID2:   userID2,
		Status:    models.ConnectionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.connections[conn.ID] = conn

	result := *conn
	return &result, nil
}

func (s *MemoryConnectionStore) GetConnection(ctx context.Context, id string) (*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, exists := s.connections[id]
	if !exists {
		return nil, ErrConnectionNotFound
	}
	result := *conn
	return &result, nil
}

func (s *MemoryConnectionStore) GetConnectionsByUser(ctx context.Context, userID string) ([]*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conns []*models.Connection
	for _, c := range s.connections {
		if c.Involves(userID) {
			result := *c
			conns = append(conns, &result)
		}
	}
	return conns, nil
}

func (s *MemoryConnectionStore) UpdateConnectionStatus(ctx context.Context, id string, status models.ConnectionStatus) (*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, exists := s.connections[id]
	if !exists {
		return nil, ErrConnectionNotFound
	}

	conn.Status = status
	conn.UpdatedAt = s.now()
	if status == models.ConnectionAccepted {
		conn.ViewedByUser1 = false // sender has not seen the acceptance yet
		conn.ViewedByUser2 = true  // recipient caused it
	}

	result := *conn
	return &result, nil
}

func (s *MemoryConnectionStore) MarkConnectionAsViewed(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, exists := s.connections[id]
	if !exists {
		return ErrConnectionNotFound
	}

	switch userID {
	case conn.UserID1:
		conn.ViewedByUser1 = true
	case conn.UserID2:
		conn.ViewedByUser2 = true
	}
	return nil
}

func (s *MemoryConnectionStore) DeleteConnection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.connections[id]; !exists {
		return ErrConnectionNotFound
	}
	delete(s.connections, id)
	return nil
}

func (s *MemoryConnectionStore) ListAcceptedConnections(ctx context.Context) ([]*models.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conns []*models.Connection
	for _, c := range s.connections {
		if c.Status == models.ConnectionAccepted {
			result := *c
			conns = append(conns, &result)
		}
	}
	return conns, nil
}
