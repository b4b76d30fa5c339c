package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/account-service/internal/apperror"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/storage"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.uber.org/zap"
)

const (
	msgAllFieldsRequired = "All fields are required"
	msgInvalidEmail      = "Invalid email format"
	msgPasswordTooLong   = "Password must be at most 72 bytes"
	msgUserExists        = "User with email or username already exists"
	msgAvatarRequired    = "Avatar file is required"
	msgRegisterFailed    = "Something went wrong while registering the user"
	msgIdentifierMissing = "Username or email is required"
	msgUserNotFound      = "User does not exist"
	msgInvalidCreds      = "Invalid user credentials"
	msgTokenFailed       = "Something went wrong while generating refresh and access token"
	msgUnauthorized      = "Unauthorized request"
	msgInvalidRefresh    = "Invalid refresh token"
	msgRefreshUsed       = "Refresh token is expired or used"
	msgInvalidAccess     = "Invalid access token"
	msgInvalidOldPass    = "Invalid old password"
	msgNewPassRequired   = "New password is required"
	msgEmailTaken        = "User with this email already exists"
	msgSomethingWrong    = "Something went wrong"
)

// Options tunes the user service
type Options struct {
	BcryptCost int
	// RevokeSessionsOnPasswordChange clears the stored refresh token when the password changes
	RevokeSessionsOnPasswordChange bool
}

// userService implements UserService interface
type userService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	uploader   storage.Uploader
	cache      UserCache
	metrics    *observability.AuthMetrics
	logger     *zap.Logger
	opts       Options
}

// NewUserService creates a new user service. cache and metrics may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	uploader storage.Uploader,
	cache UserCache,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
	opts Options,
) UserService {
	return &userService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		uploader:   uploader,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
	}
}

// Register creates a new account and uploads its images
func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error) {
	if utils.IsBlank(in.Username, in.Email, in.Fullname, in.Password) {
		return nil, apperror.Validation(msgAllFieldsRequired)
	}

	username := utils.SanitizeUsername(in.Username)
	email := utils.SanitizeEmail(in.Email)
	if !utils.ValidateEmail(email) {
		return nil, apperror.Validation(msgInvalidEmail)
	}
	if !utils.ValidatePassword(in.Password) {
		return nil, apperror.Validation(msgPasswordTooLong)
	}

	_, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, apperror.Conflict(msgUserExists)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Internal(msgRegisterFailed, fmt.Errorf("failed to check user existence: %w", err))
	}

	if in.Avatar == nil {
		return nil, apperror.Validation(msgAvatarRequired)
	}

	avatar, err := s.uploader.Upload(ctx, in.Avatar.Path)
	if err != nil {
		s.logger.Warn("avatar upload failed", zap.String("username", username), zap.Error(err))
		return nil, apperror.Validation(msgAvatarRequired)
	}

	var coverImage string
	if in.CoverImage != nil {
		cover, err := s.uploader.Upload(ctx, in.CoverImage.Path)
		if err != nil {
			s.logger.Warn("cover image upload failed", zap.String("username", username), zap.Error(err))
		} else {
			coverImage = cover.URL
		}
	}

	passwordHash, err := utils.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, apperror.Internal(msgRegisterFailed, err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		Fullname:     strings.TrimSpace(in.Fullname),
		PasswordHash: passwordHash,
		Avatar:       avatar.URL,
		CoverImage:   coverImage,
		WatchHistory: []string{},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperror.Conflict(msgUserExists)
		}
		return nil, apperror.Internal(msgRegisterFailed, err)
	}

	created, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperror.Internal(msgRegisterFailed, err)
	}

	s.metrics.Registered(ctx)
	s.logger.Info("user registered", zap.String("user_id", created.ID))

	return created.Sanitize(), nil
}

// Login verifies credentials and starts a new session, replacing any previous one
func (s *userService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := utils.SanitizeUsername(in.Username)
	email := utils.SanitizeEmail(in.Email)
	if username == "" && email == "" {
		return nil, apperror.Validation(msgIdentifierMissing)
	}

	user, err := s.userRepo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Login(ctx, observability.ResultFailure)
			return nil, apperror.NotFound(msgUserNotFound)
		}
		return nil, apperror.Internal(msgSomethingWrong, fmt.Errorf("failed to get user: %w", err))
	}

	if !utils.CheckPasswordHash(in.Password, user.PasswordHash) {
		s.metrics.Login(ctx, observability.ResultFailure)
		return nil, apperror.Authentication(msgInvalidCreds)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, apperror.Internal(msgTokenFailed, err)
	}

	// Overwriting the stored hash invalidates any refresh token issued earlier.
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, hashToken(tokens.RefreshToken)); err != nil {
		return nil, apperror.Internal(msgTokenFailed, fmt.Errorf("failed to save refresh token: %w", err))
	}

	s.metrics.Login(ctx, observability.ResultSuccess)

	return &LoginResult{
		User:         user.Sanitize(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout clears the stored refresh token. Repeating it is not an error.
func (s *userService) Logout(ctx context.Context, userID string) error {
	err := s.userRepo.SetRefreshToken(ctx, userID, "")
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperror.Internal(msgSomethingWrong, fmt.Errorf("failed to clear refresh token: %w", err))
	}
	return nil
}

// RefreshAccessToken exchanges the current refresh token for a new pair
func (s *userService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperror.Unauthorized(msgUnauthorized)
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.metrics.Refresh(ctx, observability.ResultFailure)
		return nil, apperror.Unauthorized(msgInvalidRefresh)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Refresh(ctx, observability.ResultFailure)
			return nil, apperror.Unauthorized(msgInvalidRefresh)
		}
		return nil, apperror.Internal(msgSomethingWrong, fmt.Errorf("failed to get user: %w", err))
	}

	currentHash := hashToken(refreshToken)
	if !user.HasRefreshToken() || user.RefreshTokenHash != currentHash {
		s.rejectReuse(ctx, user.ID)
		return nil, apperror.Unauthorized(msgRefreshUsed)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, apperror.Internal(msgTokenFailed, err)
	}

	err = s.userRepo.RotateRefreshToken(ctx, user.ID, currentHash, hashToken(tokens.RefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			s.rejectReuse(ctx, user.ID)
			return nil, apperror.Unauthorized(msgRefreshUsed)
		}
		return nil, apperror.Internal(msgTokenFailed, fmt.Errorf("failed to rotate refresh token: %w", err))
	}

	s.metrics.Refresh(ctx, observability.ResultSuccess)

	return tokens, nil
}

func (s *userService) rejectReuse(ctx context.Context, userID string) {
	s.metrics.Refresh(ctx, observability.ResultFailure)
	s.metrics.RefreshReuse(ctx)
	s.logger.Info("stale refresh token presented", zap.String("user_id", userID))
}

// ChangePassword replaces the password after checking the old one
func (s *userService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperror.Validation(msgNewPassRequired)
	}
	if !utils.ValidatePassword(newPassword) {
		return apperror.Validation(msgPasswordTooLong)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return s.lookupError(err)
	}

	if !utils.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperror.Authentication(msgInvalidOldPass)
	}

	// The new hash is computed here; the store never hashes on write.
	passwordHash, err := utils.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return apperror.Internal(msgSomethingWrong, err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, passwordHash, s.opts.RevokeSessionsOnPasswordChange); err != nil {
		return s.lookupError(err)
	}

	s.evict(ctx, userID)
	return nil
}

// GetCurrentUser returns the sanitized user, served from cache when possible
func (s *userService) GetCurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("profile cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.lookupError(err)
	}

	public := user.Sanitize()
	if s.cache != nil {
		if err := s.cache.Set(ctx, public); err != nil {
			s.logger.Warn("profile cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return public, nil
}

// UpdateAccountDetails changes fullname and email
func (s *userService) UpdateAccountDetails(ctx context.Context, userID, fullname, email string) (*domain.PublicUser, error) {
	if utils.IsBlank(fullname, email) {
		return nil, apperror.Validation(msgAllFieldsRequired)
	}

	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, apperror.Validation(msgInvalidEmail)
	}

	user, err := s.userRepo.UpdateDetails(ctx, userID, strings.TrimSpace(fullname), email)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperror.Conflict(msgEmailTaken)
		}
		return nil, s.lookupError(err)
	}

	s.evict(ctx, userID)
	return user.Sanitize(), nil
}

// UpdateImage uploads a new avatar or cover image
func (s *userService) UpdateImage(ctx context.Context, userID string, kind domain.ImageKind, file *LocalFile) (*domain.PublicUser, error) {
	if !kind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("Unknown image kind %q", kind))
	}

	label := "Avatar"
	if kind == domain.ImageCoverImage {
		label = "Cover image"
	}
	if file == nil {
		return nil, apperror.Validation(label + " file is missing")
	}

	uploaded, err := s.uploader.Upload(ctx, file.Path)
	if err != nil {
		return nil, apperror.Internal("Error while uploading "+strings.ToLower(label), err)
	}

	user, err := s.userRepo.SetImage(ctx, userID, kind, uploaded.URL)
	if err != nil {
		return nil, s.lookupError(err)
	}

	s.evict(ctx, userID)
	return user.Sanitize(), nil
}

// GetWatchHistory returns the user's watched video references in order
func (s *userService) GetWatchHistory(ctx context.Context, userID string) ([]string, error) {
	user, err := s.GetCurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.WatchHistory, nil
}

// Authenticate verifies an access token and loads its user
func (s *userService) Authenticate(ctx context.Context, accessToken string) (*domain.PublicUser, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperror.Unauthorized(msgInvalidAccess)
	}

	user, err := s.GetCurrentUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidAccess)
		}
		return nil, err
	}

	return user, nil
}

// lookupError maps a repository error on a known user ID to an AppError
func (s *userService) lookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msgUserNotFound)
	}
	return apperror.Internal(msgSomethingWrong, err)
}

func (s *userService) evict(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("profile cache evict failed", zap.String("user_id", userID), zap.Error(err))
	}
}
