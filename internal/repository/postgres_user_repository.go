package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
)

const userColumns = `id, username, email, fullname, password_hash, avatar, cover_image,
	watch_history, refresh_token_hash, created_at, updated_at`

// postgresUserRepository implements UserRepository on PostgreSQL
type postgresUserRepository struct {
	db *database.Postgres
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *database.Postgres) UserRepository {
	return &postgresUserRepository{db: db}
}

// Create creates a new user in the database
func (r *postgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, fullname, password_hash, avatar, cover_image,
			watch_history, refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Fullname,
		user.PasswordHash,
		user.Avatar,
		user.CoverImage,
		pq.Array(user.WatchHistory),
		user.RefreshTokenHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s already exists: %w", user.Username, ErrDuplicateUser)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// FindByUsernameOrEmail retrieves a user matching either identifier
func (r *postgresUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	if username == "" && email == "" {
		return nil, ErrNotFound
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		LIMIT 1
	`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, username, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s/%s not found: %w", username, email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// SetRefreshToken overwrites the stored refresh token hash
func (r *postgresUserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, tokenHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return expectRow(result, id)
}

// RotateRefreshToken swaps the refresh token hash only if it still equals currentHash
func (r *postgresUserRepository) RotateRefreshToken(ctx context.Context, id, currentHash, nextHash string) error {
	if currentHash == "" {
		return ErrTokenMismatch
	}

	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = $4
		WHERE id = $1 AND refresh_token_hash = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, currentHash, nextHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTokenMismatch
	}

	return nil
}

// UpdatePassword stores a new password hash, optionally clearing the refresh token in the same write
func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, revokeSessions bool) error {
	query := `
		UPDATE users
		SET password_hash = $2,
			refresh_token_hash = CASE WHEN $3 THEN '' ELSE refresh_token_hash END,
			updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, id, passwordHash, revokeSessions, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectRow(result, id)
}

// UpdateDetails updates fullname and email and returns the updated user
func (r *postgresUserRepository) UpdateDetails(ctx context.Context, id, fullname, email string) (*domain.User, error) {
	query := `
		UPDATE users
		SET fullname = $2, email = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id, fullname, email, time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email %s already exists: %w", email, ErrDuplicateUser)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// SetImage replaces the avatar or cover image URL
func (r *postgresUserRepository) SetImage(ctx context.Context, id string, kind domain.ImageKind, url string) (*domain.User, error) {
	var column string
	switch kind {
	case domain.ImageAvatar:
		column = "avatar"
	case domain.ImageCoverImage:
		column = "cover_image"
	default:
		return nil, fmt.Errorf("unknown image kind %q", kind)
	}

	query := `UPDATE users SET ` + column + ` = $2, updated_at = $3 WHERE id = $1 RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id, url, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update %s: %w", column, err)
	}

	return user, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var history pq.StringArray

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Fullname,
		&user.PasswordHash,
		&user.Avatar,
		&user.CoverImage,
		&history,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.WatchHistory = []string(history)
	if user.WatchHistory == nil {
		user.WatchHistory = []string{}
	}

	return user, nil
}

func expectRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
