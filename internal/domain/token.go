package domain

import "time"

// AccessClaims is the identity asserted by a verified access token
type AccessClaims struct {
	UserID    string
	Email     string
	Username  string
	Fullname  string
	ExpiresAt time.Time
}

// RefreshClaims is the identity asserted by a verified refresh token
type RefreshClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

