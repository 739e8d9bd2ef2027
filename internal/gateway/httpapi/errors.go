package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AltairaLabs/portalops/internal/types"
)

// ErrorBody is the error half of every failed response
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope of a failed request
type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error ErrorBody `json:"error"`
}

// HTTPStatus maps an error kind onto a response code
func HTTPStatus(kind string) int {
	switch kind {
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindForbidden:
		return http.StatusForbidden
	case types.KindInvalidTransition, types.KindTerminalState, types.KindInvalidState, types.KindConflict:
		return http.StatusConflict
	case types.KindExpired:
		return http.StatusGone
	case types.KindInvalidArgument:
		return http.StatusBadRequest
	case types.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := types.KindOf(err)
	code := HTTPStatus(kind)
	message := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"error", err)
		message = "internal error"
	}
	c.JSON(code, ErrorResponse{
		OK:    false,
		Error: ErrorBody{Kind: kind, Message: message},
	})
}
