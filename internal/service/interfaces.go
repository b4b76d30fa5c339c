package service

import (
	"context"

	"github.com/prperemyshlev/account-service/internal/domain"
)

// LocalFile is an uploaded file already written to local disk
type LocalFile struct {
	Path         string
	OriginalName string
}

// RegisterInput carries the registration form. A nil file means it was not sent.
type RegisterInput struct {
	Username   string
	Email      string
	Fullname   string
	Password   string
	Avatar     *LocalFile
	CoverImage *LocalFile
}

// LoginInput identifies a user by username or email
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	User         *domain.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

// UserService defines the account and session operations
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, userID string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetCurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error)
	UpdateAccountDetails(ctx context.Context, userID, fullname, email string) (*domain.PublicUser, error)
	UpdateImage(ctx context.Context, userID string, kind domain.ImageKind, file *LocalFile) (*domain.PublicUser, error)
	GetWatchHistory(ctx context.Context, userID string) ([]string, error)
	// Authenticate resolves an access token to the user it was issued for
	Authenticate(ctx context.Context, accessToken string) (*domain.PublicUser, error)
}

// UserCache caches sanitized users by ID. Get returns (nil, nil) on a miss.
type UserCache interface {
	Get(ctx context.Context, userID string) (*domain.PublicUser, error)
	Set(ctx context.Context, user *domain.PublicUser) error
	Delete(ctx context.Context, userID string) error
}
