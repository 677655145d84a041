package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cipherkeep/internal/api"
	"cipherkeep/internal/failure"
)

func statusOf(r failure.Reason) int {
	switch r {
	case failure.ReasonInvalidArgument, failure.ReasonWeakPassword, failure.ReasonSignatureInvalid:
		return http.StatusBadRequest
	case failure.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case failure.ReasonNotFound:
		return http.StatusNotFound
	case failure.ReasonAlreadyExists, failure.ReasonFailedPrecondition, failure.ReasonConcurrencyViolation:
		return http.StatusConflict
	case failure.ReasonRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// abort writes err as the error body and stops the handler chain.
func (s *Server) abort(c *gin.Context, err error) {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		fe = &failure.Error{Reason: failure.ReasonInternal, Message: "internal error", Cause: err}
	}
	status := statusOf(fe.Reason)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(status, api.ErrorResponse{Code: string(failure.ReasonInternal), Message: "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Code: string(fe.Reason), Message: fe.Message})
}
