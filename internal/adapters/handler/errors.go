package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindDependency:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status and an ErrorResponse. Unclassified
// errors are reported as internal without their text.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var de *domain.Error
	switch {
	case errors.As(err, &de):
		c.JSON(statusFor(de.Kind), ErrorResponse{
			Kind:    string(de.Kind),
			Code:    de.Code,
			Message: de.Message,
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Kind:    string(domain.KindDependency),
			Message: "request timed out",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Kind:    "INTERNAL",
			Message: "internal server error",
		})
	}
}

func writeBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Kind:    string(domain.KindValidation),
		Message: "invalid request body: " + err.Error(),
	})
}
