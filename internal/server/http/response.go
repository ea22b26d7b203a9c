package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/domain"
)

const (
	msgInternal     = "Internal server error"
	msgUnauthorized = "Unauthorized"
	msgConflict     = "Email already used for quiz"
	msgNotFound     = "Endpoint not found"
	msgInvalidBody  = "Invalid request body"
)

type apiErrorResponse struct {
	Error     string `json:"error"`
	ResetTime int64  `json:"resetTime,omitempty"`
}

// mapDomainError converts a lifecycle error into a status code and a client-safe body.
func mapDomainError(err error, now time.Time) (int, apiErrorResponse, http.Header) {
	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		header := http.Header{}
		wait := rateErr.ResetAt.Sub(now)
		if wait < 0 {
			wait = 0
		}
		header.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return http.StatusTooManyRequests, apiErrorResponse{
			Error:     rateErr.Error(),
			ResetTime: rateErr.ResetAt.UnixMilli(),
		}, header
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, apiErrorResponse{Error: validationErr.Error()}, nil
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, apiErrorResponse{Error: "Missing required fields"}, nil
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, apiErrorResponse{Error: msgConflict}, nil
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, apiErrorResponse{Error: msgUnauthorized}, nil
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, apiErrorResponse{Error: "Not found"}, nil
	default:
		return http.StatusInternalServerError, apiErrorResponse{Error: msgInternal}, nil
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, body, header := mapDomainError(err, h.now())
	logger := logging.FromContext(c.Request.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("HTTP %d %s %s: %v", status, c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Debug("HTTP %d %s %s: %v", status, c.Request.Method, c.Request.URL.Path, err)
	}
	for key, values := range header {
		for _, v := range values {
			c.Header(key, v)
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, apiErrorResponse{Error: message})
}
