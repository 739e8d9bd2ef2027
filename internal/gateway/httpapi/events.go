package httpapi

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AltairaLabs/portalops/internal/coordinator"
	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/types"
)

// handleEvents upgrades to a websocket and forwards published events as
// JSON messages until the client disconnects or the server shuts down.
// Agents receive only the events of tasks assigned to them; observers
// receive all of them. A client that falls behind by more than eventBuffer
// events misses them.
func (s *Server) handleEvents(c *gin.Context) {
	agent, err := identity.Require(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	var allow func(coordinator.Event) bool
	switch {
	case agent.IsAgent():
		allow = coordinator.AssignedTo(agent.ID)
	case agent.Role == types.RoleObserver:
	default:
		s.writeError(c, fmt.Errorf("%w: role %q may not watch events", types.ErrForbidden, agent.Role))
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subscriberID := uuid.NewString()
	events := make(chan coordinator.Event, eventBuffer)
	var sender coordinator.EventSender = coordinator.NewChannelEventSender(events)
	if allow != nil {
		sender = coordinator.NewFilteredEventSender(sender, allow)
	}
	s.events.Subscribe(subscriberID, sender)
	defer s.events.Unsubscribe(subscriberID)

	s.logger.DebugContext(c.Request.Context(), "event stream opened",
		"subscriber_id", subscriberID,
		"user_id", agent.ID,
		"role", agent.Role)

	// The read loop only detects the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeTimeout))
			return
		case event := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.DebugContext(c.Request.Context(), "event stream write failed",
					"subscriber_id", subscriberID,
					"error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
