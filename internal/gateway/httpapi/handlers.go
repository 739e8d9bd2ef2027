package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AltairaLabs/portalops/internal/identity"
	"github.com/AltairaLabs/portalops/internal/taskstatus"
	"github.com/AltairaLabs/portalops/internal/types"
)

// setStatusRequest is the body of POST .../status. Any agent id in the body
// is ignored.
type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"statuses": s.service.Statuses(),
		"edges":    taskstatus.Edges(),
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	agent, err := identity.Require(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	var filter *types.TaskStatus
	if raw := c.Query("status"); raw != "" {
		status, ok := types.ParseTaskStatus(raw)
		if !ok {
			s.writeError(c, fmt.Errorf("%w: unknown status %q", types.ErrInvalidArgument, raw))
			return
		}
		filter = &status
	}

	tasks, err := s.service.ListTasks(c.Request.Context(), agent, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*types.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tasks": tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	agent, err := identity.Require(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	detail, err := s.service.GetTaskDetail(c.Request.Context(), agent, c.Param("taskId"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	attachments := detail.Attachments
	if attachments == nil {
		attachments = []types.Attachment{}
	}
	sessions := detail.Sessions
	if sessions == nil {
		sessions = []types.Session{}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"task":        detail.Task,
		"case":        detail.Case,
		"attachments": attachments,
		"sessions":    sessions,
	})
}

func (s *Server) handleSetStatus(c *gin.Context) {
	agent, err := identity.Require(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: invalid body: %v", types.ErrInvalidArgument, err))
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		s.writeError(c, fmt.Errorf("%w: status is required", types.ErrInvalidArgument))
		return
	}

	// Unknown statuses reach the service so assignment is checked first
	status, ok := types.ParseTaskStatus(req.Status)
	if !ok {
		status = types.TaskStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	}

	task, err := s.service.SetStatus(c.Request.Context(), agent, c.Param("taskId"), status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": task})
}

func (s *Server) handleRequestSession(c *gin.Context) {
	agent, err := identity.Require(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	session, err := s.service.StartSession(c.Request.Context(), agent, c.Param("taskId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "session": session})
}
