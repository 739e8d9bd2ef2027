package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AltairaLabs/portalops/internal/identity"
)

// requireIdentity resolves the agent from identity headers and stores it in
// the request context. Requests without one are rejected with 401.
func (s *Server) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, err := identity.FromHeader(c.Request.Header)
		if err != nil {
			s.writeError(c, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(identity.WithAgent(c.Request.Context(), agent))
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
