package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/domain"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, malformed payload, wrong type or expiry.
var ErrInvalidToken = errors.New("invalid token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type accessClaims struct {
	jwt.RegisteredClaims
	Type     string `json:"typ"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// JWTManager manages JWT token operations.
// Access and refresh tokens are signed with different secrets.
type JWTManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(accessSecret, refreshSecret string, accessTokenExpiry, refreshTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
}

// WithClock returns a copy of the manager that reads time from now
func (j *JWTManager) WithClock(now func() time.Time) *JWTManager {
	clone := *j
	clone.now = now
	return &clone
}

// GenerateAccessToken generates a new access token embedding the user's identity
func (j *JWTManager) GenerateAccessToken(user *domain.User) (string, error) {
	now := j.now()
	claims := &accessClaims{
		RegisteredClaims: j.registered(user.ID, now, j.accessTokenExpiry),
		Type:             tokenTypeAccess,
		Email:            user.Email,
		Username:         user.Username,
		Fullname:         user.Fullname,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken generates a new refresh token carrying only the user ID
func (j *JWTManager) GenerateRefreshToken(user *domain.User) (string, error) {
	now := j.now()
	claims := &refreshClaims{
		RegisteredClaims: j.registered(user.ID, now, j.refreshTokenExpiry),
		Type:             tokenTypeRefresh,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates an access token and returns its claims
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.AccessClaims, error) {
	claims := &accessClaims{}
	if err := j.verify(tokenString, j.accessSecret, claims); err != nil {
		return nil, err
	}

	if claims.Type != tokenTypeAccess {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}

	return &domain.AccessClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Username:  claims.Username,
		Fullname:  claims.Fullname,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*domain.RefreshClaims, error) {
	claims := &refreshClaims{}
	if err := j.verify(tokenString, j.refreshSecret, claims); err != nil {
		return nil, err
	}

	if claims.Type != tokenTypeRefresh {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}

	return &domain.RefreshClaims{
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}

func (j *JWTManager) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// verify checks signature and expiry of tokenString against secret and decodes it into claims
func (j *JWTManager) verify(tokenString string, secret []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return nil
}
