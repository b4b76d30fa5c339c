package domain

import "time"

// User represents an account in the system
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Fullname         string    `json:"fullname"`
	PasswordHash     string    `json:"-"`
	Avatar           string    `json:"avatar"`
	CoverImage       string    `json:"coverImage"`
	WatchHistory     []string  `json:"watchHistory"`
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// PublicUser is a user with the password hash and refresh token removed.
// It is the only user shape handlers serialize.
type PublicUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Fullname     string    `json:"fullname"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitize strips secret fields
func (u *User) Sanitize() *PublicUser {
	history := make([]string, len(u.WatchHistory))
	copy(history, u.WatchHistory)

	return &PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Fullname:     u.Fullname,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// HasRefreshToken reports whether a refresh token is currently bound to the user
func (u *User) HasRefreshToken() bool {
	return u.RefreshTokenHash != ""
}

// ImageKind identifies one of the user's profile images
type ImageKind string

const (
	ImageAvatar     ImageKind = "avatar"
	ImageCoverImage ImageKind = "coverImage"
)

// Valid reports whether k is a known image kind
func (k ImageKind) Valid() bool {
	return k == ImageAvatar || k == ImageCoverImage
}
