package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/regalo/backend/internal/models"
)

// MemoryUserService is the in-memory identity store used by tests and local
// development. It mirrors MongoUserService behind the UserService interface.
type MemoryUserService struct {
	mu         sync.RWMutex
	users      map[string]*models.User // userID -> user
	byEmail    map[string]string       // normalized email -> userID
	maxChanges int
	now        func() time.Time
}

func NewMemoryUserService(maxDailyChanges int) *MemoryUserService {
	return &MemoryUserService{
		users:      make(map[string]*models.User),
		byEmail:    make(map[string]string),
		maxChanges: maxDailyChanges,
		now:        time.Now,
	}
}

// SetClock overrides the service clock. Tests use it to cross day boundaries.
func (s *MemoryUserService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryUserService) Create(ctx context.Context, id string, req *models.CreateUserRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(req.Email)
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailExists
	}
	if id == "" {
		id = uuid.New().String()
	}

	var passwordHash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		passwordHash = string(hashed)
	}

	now := s.now()
	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Birthdate:    req.Birthdate,
		Avatar:       req.Avatar,
		Hobbies:      req.Hobbies,
		HideAge:      req.HideAge,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	return cloneUser(user), nil
}

func (s *MemoryUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.byEmail[normalizeEmail(email)]
	if !exists {
		return nil, ErrUserNotFound
	}
	user := s.users[userID]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return cloneUser(user), nil
}

func (s *MemoryUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *MemoryUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.byEmail[normalizeEmail(email)]
	if !exists {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.users[userID]), nil
}

func (s *MemoryUserService) Update(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	updated, err := applyUpdate(*user, req, s.now(), s.maxChanges)
	if err != nil {
		return nil, err
	}
	s.users[id] = &updated
	return cloneUser(&updated), nil
}

func (s *MemoryUserService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.users, id)
	return nil
}

func (s *MemoryUserService) List(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	return users, nil
}

func (s *MemoryUserService) SetPushToken(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return ErrUserNotFound
	}
	user.PushToken = token
	user.PushTokenUpdatedAt = s.now()
	return nil
}

func (s *MemoryUserService) ClearPushToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.PushToken == token {
			u.PushToken = ""
			u.PushTokenUpdatedAt = s.now()
		}
	}
	return nil
}

// Seed bulk-loads fixture users (dev mode).
func (s *MemoryUserService) Seed(users []*models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		stored := cloneUser(u)
		stored.Email = normalizeEmail(stored.Email)
		s.users[stored.ID] = stored
		s.byEmail[stored.Email] = stored.ID
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.Hobbies != nil {
		c.Hobbies = append([]string(nil), u.Hobbies...)
	}
	return &c
}
