package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondError maps a service error onto a status code and a stable API code.
// Unclassified errors become an opaque 500; their detail stays in the logs.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case domainErrors.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case domainErrors.IsConflict(err):
		status = http.StatusConflict
	case domainErrors.IsNotFound(err):
		status = http.StatusNotFound
	case domainErrors.IsStateViolation(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domainErrors.ErrInvalidRequest):
		status = http.StatusBadRequest
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{
		Code:    domainErrors.Code(err),
		Message: message,
	}})
}

func respondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "INVALID_REQUEST",
		Message: message,
	}})
}
