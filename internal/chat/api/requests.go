package api

import "github.com/ninedotdev/jean/internal/chat/service"

// StartRunRequest is the body of POST /api/v1/chat/runs.
type StartRunRequest struct {
	SessionID     string `json:"session_id"`
	WorktreeID    string `json:"worktree_id"`
	Vendor        string `json:"vendor" binding:"required"`
	Prompt        string `json:"prompt" binding:"required"`
	Model         string `json:"model"`
	ExecutionMode string `json:"execution_mode"`
	ThinkingLevel string `json:"thinking_level"`
	WorkingDir    string `json:"working_dir"`
}

// ListRunsResponse is the body of GET /api/v1/chat/runs.
type ListRunsResponse struct {
	Runs []service.RunInfo `json:"runs"`
}

// VendorResponse describes one vendor in GET /api/v1/chat/vendors.
type VendorResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Installed   bool   `json:"installed"`
	BinaryPath  string `json:"binary_path,omitempty"`
	InstallHint string `json:"install_hint,omitempty"`
}

// ReplayResponse is the body of POST /api/v1/chat/runs/:sessionId/replay.
type ReplayResponse struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
}
