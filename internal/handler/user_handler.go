package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/apperror"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/service"
	"go.uber.org/zap"
)

// UserHandler handles account and session requests
type UserHandler struct {
	userService service.UserService
	cookies     CookieConfig
	tempDir     string
	logger      *zap.Logger
}

// NewUserHandler creates a new user handler. Uploaded files are staged in tempDir.
func NewUserHandler(userService service.UserService, cookies CookieConfig, tempDir string, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		cookies:     cookies,
		tempDir:     tempDir,
		logger:      logger,
	}
}

// RegisterRoutes mounts the user routes on group. auth guards the routes that need a session.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup, auth gin.HandlerFunc) {
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/refresh-token", h.RefreshToken)

	secured := group.Group("", auth)
	secured.POST("/logout", h.Logout)
	secured.POST("/change-password", h.ChangePassword)
	secured.GET("/current-user", h.GetCurrentUser)
	secured.PATCH("/update-details", h.UpdateAccountDetails)
	secured.PATCH("/avatar", h.UpdateAvatar)
	secured.PATCH("/cover-image", h.UpdateCoverImage)
	secured.GET("/watch-history", h.GetWatchHistory)
}

// Register handles user registration
// @Summary Register a new user
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} dto.ApiResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var form dto.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		_ = c.Error(apperror.Validation("Invalid registration form", err.Error()))
		return
	}

	uploads := newTempUploads(h.tempDir, h.logger)
	defer uploads.cleanup()

	avatar, err := uploads.single(c, "avatar")
	if err != nil {
		_ = c.Error(err)
		return
	}

	cover, err := uploads.single(c, "coverImage")
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Username:   form.Username,
		Email:      form.Email,
		Fullname:   form.Fullname,
		Password:   form.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login handles user login
// @Summary Login with username or email
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.ApiResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation("Invalid request body", err.Error()))
		return
	}

	result, err := h.userService.Login(c.Request.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.setSessionCookies(c, result.AccessToken, result.RefreshToken)
	respond(c, http.StatusOK, result, "User logged in successfully")
}

// Logout handles user logout
// @Summary Logout and invalidate the refresh token
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ApiResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Unauthorized request"))
		return
	}

	if err := h.userService.Logout(c.Request.Context(), user.ID); err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.clearSessionCookies(c)
	respond(c, http.StatusOK, gin.H{}, "User logged out")
}

// RefreshToken handles token refresh
// @Summary Exchange a refresh token for a new token pair
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest false "Refresh token when not sent as cookie"
// @Success 200 {object} dto.ApiResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/refresh-token [post]
func (h *UserHandler) RefreshToken(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshTokenCookie)
	if refreshToken == "" {
		var req dto.RefreshRequest
		// a missing body is the same as a missing token
		_ = c.ShouldBindJSON(&req)
		refreshToken = req.RefreshToken
	}

	tokens, err := h.userService.RefreshAccessToken(c.Request.Context(), refreshToken)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.cookies.setSessionCookies(c, tokens.AccessToken, tokens.RefreshToken)
	respond(c, http.StatusOK, tokens, "Access token refreshed")
}

// ChangePassword handles password change
// @Summary Change the current user's password
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} dto.ApiResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/change-password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Unauthorized request"))
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation("Invalid request body", err.Error()))
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

// GetCurrentUser returns the authenticated user
// @Summary Get the current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ApiResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/current-user [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Unauthorized request"))
		return
	}

	respond(c, http.StatusOK, user, "User fetched successfully")
}

// UpdateAccountDetails handles fullname and email changes
// @Summary Update fullname and email
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateDetailsRequest true "New details"
// @Success 200 {object} dto.ApiResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /users/update-details [patch]
func (h *UserHandler) UpdateAccountDetails(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Unauthorized request"))
		return
	}

	var req dto.UpdateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation("Invalid request body", err.Error()))
		return
	}

	updated, err := h.userService.UpdateAccountDetails(c.Request.Context(), user.ID, req.Fullname, req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar replaces the avatar
// @Summary Replace the avatar image
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.ApiResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, domain.ImageAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage replaces the cover image
// @Summary Replace the cover image
// @Tags users
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} dto.ApiResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /users/cover-image [patch]
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, domain.ImageCoverImage, "Cover image updated successfully")
}

func (h *UserHandler) updateImage(c *gin.Context, kind domain.ImageKind, message string) {
	user, ok := currentUser(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Unauthorized request"))
		return
	}

	uploads := newTempUploads(h.tempDir, h.logger)
	defer uploads.cleanup()

	file, err := uploads.single(c, string(kind))
	if err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := h.userService.UpdateImage(c.Request.Context(), user.ID, kind, file)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, updated, message)
}

// GetWatchHistory returns the user's watch history
// @Summary Get the watch history
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ApiResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/watch-history [get]
func (h *UserHandler) GetWatchHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Unauthorized request"))
		return
	}

	history, err := h.userService.GetWatchHistory(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	respond(c, http.StatusOK, history, "Watch history fetched successfully")
}
