package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwodeola/mwodeola-server/internal/common"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

// writeError maps domain errors onto HTTP statuses and the uniform
// {code, message, detail} body. Anything unmapped is a 500 with a generic
// message so internals never leak to clients.
func (s *Server) writeError(c *gin.Context, err error) {
	var failed *common.AuthFailedError
	if errors.As(err, &failed) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Code:    "AUTHENTICATION_FAILED",
			Message: failed.Error(),
			Detail:  gin.H{"count": failed.Count, "limit": failed.Limit},
		})
		return
	}

	var field *common.FieldError
	if errors.As(err, &field) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    "INVALID_REQUEST",
			Message: field.Error(),
			Detail:  gin.H{"field": field.Field},
		})
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, common.ErrUserNotFound):
		status, code = http.StatusUnauthorized, "USER_NOT_FOUND"
	case errors.Is(err, common.ErrAuthExceeded):
		status, code = http.StatusForbidden, "AUTHENTICATION_EXCEEDED"
	case errors.Is(err, common.ErrAccountLocked):
		status, code = http.StatusForbidden, "ACCOUNT_LOCKED"
	case errors.Is(err, common.ErrAccountInactive):
		status, code = http.StatusForbidden, "ACCOUNT_INACTIVE"
	case errors.Is(err, common.ErrTokenExpired):
		status, code = http.StatusUnauthorized, "TOKEN_EXPIRED"
	case errors.Is(err, common.ErrTokenBlacklisted):
		status, code = http.StatusUnauthorized, "TOKEN_BLACKLISTED"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, common.ErrDuplicated):
		status, code = http.StatusConflict, "DUPLICATED"
	case errors.Is(err, common.ErrNotOwner):
		status, code = http.StatusForbidden, "NOT_OWNER"
	case errors.Is(err, common.ErrorNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}

	message := "internal error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	} else {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: msg})
}
