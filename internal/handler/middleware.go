package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/apperror"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/service"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "user_id"
)

// AuthMiddleware resolves the access token from the cookie or the Authorization header
// and adds the user to the context
func AuthMiddleware(userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFrom(c)
		if token == "" {
			_ = c.Error(apperror.Unauthorized("Unauthorized request"))
			c.Abort()
			return
		}

		user, err := userService.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextUserIDKey, user.ID)

		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// currentUser returns the user set by AuthMiddleware
func currentUser(c *gin.Context) (*domain.PublicUser, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.PublicUser)
	return user, ok
}

// BodyLimitMiddleware caps the size of request bodies
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
