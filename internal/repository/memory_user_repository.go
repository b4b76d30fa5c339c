package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/domain"
)

// memoryUserRepository keeps users in process memory. Used for local runs and tests.
type memoryUserRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.User
	now  func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory user repository
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID: make(map[string]*domain.User),
		now:  time.Now,
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(user.Username, user.Email, "") {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicateUser)
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	r.byID[user.ID] = clone(user)
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}
	return clone(user), nil
}

func (r *memoryUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	if username == "" && email == "" {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return clone(user), nil
		}
	}
	return nil, fmt.Errorf("user %s/%s not found: %w", username, email, ErrNotFound)
}

func (r *memoryUserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	_, err := r.update(id, func(user *domain.User) error {
		user.RefreshTokenHash = tokenHash
		return nil
	})
	return err
}

func (r *memoryUserRepository) RotateRefreshToken(ctx context.Context, id, currentHash, nextHash string) error {
	_, err := r.update(id, func(user *domain.User) error {
		if currentHash == "" || user.RefreshTokenHash != currentHash {
			return ErrTokenMismatch
		}
		user.RefreshTokenHash = nextHash
		return nil
	})
	return err
}

func (r *memoryUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, revokeSessions bool) error {
	_, err := r.update(id, func(user *domain.User) error {
		user.PasswordHash = passwordHash
		if revokeSessions {
			user.RefreshTokenHash = ""
		}
		return nil
	})
	return err
}

func (r *memoryUserRepository) UpdateDetails(ctx context.Context, id, fullname, email string) (*domain.User, error) {
	return r.update(id, func(user *domain.User) error {
		if r.taken("", email, id) {
			return fmt.Errorf("email %s: %w", email, ErrDuplicateUser)
		}
		user.Fullname = fullname
		user.Email = email
		return nil
	})
}

func (r *memoryUserRepository) SetImage(ctx context.Context, id string, kind domain.ImageKind, url string) (*domain.User, error) {
	return r.update(id, func(user *domain.User) error {
		switch kind {
		case domain.ImageAvatar:
			user.Avatar = url
		case domain.ImageCoverImage:
			user.CoverImage = url
		default:
			return fmt.Errorf("unknown image kind %q", kind)
		}
		return nil
	})
}

// update applies mutate to a copy of the stored user and commits it only when mutate succeeds
func (r *memoryUserRepository) update(id string, mutate func(*domain.User) error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	next := clone(stored)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.now()
	r.byID[id] = next

	return clone(next), nil
}

// taken reports whether another user (not exceptID) already holds username or email.
// Callers must hold the lock.
func (r *memoryUserRepository) taken(username, email, exceptID string) bool {
	for id, user := range r.byID {
		if id == exceptID {
			continue
		}
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return true
		}
	}
	return false
}

func clone(user *domain.User) *domain.User {
	c := *user
	c.WatchHistory = append([]string(nil), user.WatchHistory...)
	if c.WatchHistory == nil {
		c.WatchHistory = []string{}
	}
	return &c
}
