package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/usecase"
)

type errorBody struct {
	Code      usecase.Kind `json:"code"`
	Message   string       `json:"message"`
	RequestID string       `json:"requestId,omitempty"`
}

func statusOf(k usecase.Kind) int {
	switch k {
	case usecase.KindValidation:
		return http.StatusBadRequest
	case usecase.KindAuth:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	s.failAs(c, err, "internal server error")
}

// failAs writes err as a JSON error. Server faults are logged and replaced
// with serverMsg so internals never reach the client.
func (s *Server) failAs(c *gin.Context, err error, serverMsg string) {
	kind := usecase.KindOf(err)
	msg := err.Error()
	if kind == usecase.KindServer {
		s.log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
		msg = serverMsg
	}
	c.AbortWithStatusJSON(statusOf(kind), errorBody{
		Code:      kind,
		Message:   msg,
		RequestID: c.GetHeader("Idempotency-Key"),
	})
}

func badRequest(msg string) error { return usecase.ErrValidation(msg) }

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}
