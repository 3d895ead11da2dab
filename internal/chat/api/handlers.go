package api

import (
	goerrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/agent/agents"
	"github.com/ninedotdev/jean/internal/agent/discovery"
	"github.com/ninedotdev/jean/internal/chat/service"
	"github.com/ninedotdev/jean/internal/common/errors"
	"github.com/ninedotdev/jean/internal/common/logger"
)

// Handler contains HTTP handlers for the chat API.
type Handler struct {
	service  *service.Service
	resolver *discovery.Resolver
	logger   *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.Service, resolver *discovery.Resolver, log *logger.Logger) *Handler {
	return &Handler{
		service:  svc,
		resolver: resolver,
		logger:   log.WithFields(zap.String("component", "chat-api")),
	}
}

// StartRun starts a chat turn
// POST /api/v1/chat/runs
func (h *Handler) StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest("invalid request body: " + err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	handle, err := h.service.StartTurn(c.Request.Context(), service.StartTurnRequest{
		SessionID:     req.SessionID,
		WorktreeID:    req.WorktreeID,
		Vendor:        req.Vendor,
		Prompt:        req.Prompt,
		Model:         req.Model,
		ExecutionMode: req.ExecutionMode,
		ThinkingLevel: req.ThinkingLevel,
		WorkingDir:    req.WorkingDir,
	})
	if err != nil {
		h.logger.Error("failed to start run", zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handle)
}

// ListRuns lists sessions with a live run
// GET /api/v1/chat/runs
func (h *Handler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, ListRunsResponse{Runs: h.service.ListRunning()})
}

// CancelRun terminates a session's running turn
// DELETE /api/v1/chat/runs/:sessionId
func (h *Handler) CancelRun(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.service.Cancel(sessionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "cancelled": true})
}

// GetRunStatus reports whether a session has a live run
// GET /api/v1/chat/runs/:sessionId
func (h *Handler) GetRunStatus(c *gin.Context) {
	sessionID := c.Param("sessionId")
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"running":    h.service.IsRunning(sessionID),
	})
}

// ReplayRun replays a finished session's recorded output through the event bus
// POST /api/v1/chat/runs/:sessionId/replay
func (h *Handler) ReplayRun(c *gin.Context) {
	sessionID := c.Param("sessionId")
	vendor := c.Query("vendor")
	worktreeID := c.Query("worktree_id")

	transcript, err := h.service.Replay(sessionID, worktreeID, vendor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReplayResponse{SessionID: sessionID, Transcript: transcript})
}

// ListVendors lists supported vendors and their install state
// GET /api/v1/chat/vendors
func (h *Handler) ListVendors(c *gin.Context) {
	installed := h.resolver.Installed()

	vendors := make([]VendorResponse, 0, len(agents.All()))
	for _, agent := range agents.All() {
		v := VendorResponse{
			ID:          agent.ID(),
			DisplayName: agent.DisplayName(),
		}
		if path, ok := installed[agent.ID()]; ok {
			v.Installed = true
			v.BinaryPath = path
		} else {
			v.InstallHint = agent.InstallHint()
		}
		vendors = append(vendors, v)
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

func writeError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !goerrors.As(err, &appErr) {
		appErr = errors.InternalError("internal error", err)
	}
	c.JSON(errors.GetHTTPStatus(appErr), appErr)
}
