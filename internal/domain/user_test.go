package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeDropsSecrets(t *testing.T) {
	user := &User{
		ID:               "u1",
		Username:         "alice",
		Email:            "alice@x.com",
		Fullname:         "Alice",
		PasswordHash:     "$2a$10$hash",
		Avatar:           "http://cdn/a.png",
		WatchHistory:     []string{"v1", "v2"},
		RefreshTokenHash: "deadbeef",
		CreatedAt:        time.Now(),
	}

	public := user.Sanitize()
	body, err := json.Marshal(public)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))

	assert.Equal(t, "alice", fields["username"])
	for _, secret := range []string{"password", "passwordHash", "refreshToken", "refreshTokenHash"} {
		assert.NotContains(t, fields, secret)
	}
	assert.NotContains(t, string(body), "deadbeef")
	assert.NotContains(t, string(body), "$2a$10$hash")
}

func TestSanitizeCopiesWatchHistory(t *testing.T) {
	user := &User{WatchHistory: []string{"v1"}}

	public := user.Sanitize()
	public.WatchHistory[0] = "changed"

	assert.Equal(t, "v1", user.WatchHistory[0])
}

func TestUserJSONHidesSecrets(t *testing.T) {
	body, err := json.Marshal(&User{PasswordHash: "hash", RefreshTokenHash: "token"})
	require.NoError(t, err)

	assert.NotContains(t, string(body), "hash")
	assert.NotContains(t, string(body), "token")
}

func TestImageKindValid(t *testing.T) {
	assert.True(t, ImageAvatar.Valid())
	assert.True(t, ImageCoverImage.Valid())
	assert.False(t, ImageKind("banner").Valid())
}
