package repository

import (
	"context"

	"github.com/prperemyshlev/account-service/internal/domain"
)

// UserRepository defines methods for user operations.
// Every mutation is a targeted field update; nothing is hashed here.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// FindByUsernameOrEmail matches on whichever identifiers are non-empty
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	// SetRefreshToken overwrites the stored refresh token hash; an empty hash clears it
	SetRefreshToken(ctx context.Context, id, tokenHash string) error
	// RotateRefreshToken replaces currentHash with nextHash, or returns ErrTokenMismatch
	RotateRefreshToken(ctx context.Context, id, currentHash, nextHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, revokeSessions bool) error
	UpdateDetails(ctx context.Context, id, fullname, email string) (*domain.User, error)
	SetImage(ctx context.Context, id string, kind domain.ImageKind, url string) (*domain.User, error)
}
