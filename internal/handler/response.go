package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/apperror"
	"github.com/prperemyshlev/account-service/internal/dto"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal Server Error"

// respond writes a success envelope
func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, dto.NewApiResponse(status, data, message))
}

// ErrorMiddleware turns the last error pushed with c.Error into an error envelope
func ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.StatusCode(err)

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || status == http.StatusInternalServerError {
			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			}
			if appErr != nil && appErr.Cause != nil {
				fields = append(fields, zap.NamedError("cause", appErr.Cause))
			}
			logger.Error("request failed", fields...)
		}

		if appErr == nil {
			c.JSON(status, dto.NewErrorResponse(status, internalErrorMessage, nil))
			return
		}

		c.JSON(status, dto.NewErrorResponse(status, appErr.Message, appErr.Errors))
	}
}

// RecoveryMiddleware converts panics into a 500 error envelope
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorResponse(http.StatusInternalServerError, internalErrorMessage, nil))
	})
}

// NotFoundHandler answers unknown routes with an error envelope
func NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "Route not found", nil))
}
