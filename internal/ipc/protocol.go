// Package ipc implements the control socket behind --reconfigure,
// --restart, and --exit: a second invocation of the CLI finds a running
// instance and asks it to act, rather than duplicating the window manager
// core. The wire shape is newline-delimited JSON, one request per
// connection, with connection slots, deadlines, and size caps on the accept
// side. The listener is split into a Unix-domain-socket backend and a
// Windows named-pipe backend.
package ipc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ControlRequest is a single control-socket command.
type ControlRequest struct {
	ID      uuid.UUID `json:"id"`
	Command string    `json:"command"`
	Args    []string  `json:"args,omitempty"`
}

// ControlResponse answers a ControlRequest by the same ID.
type ControlResponse struct {
	ID       uuid.UUID `json:"id"`
	ExitCode int       `json:"exit_code"`
	Message  string    `json:"message,omitempty"`
}

// CommandExecutor handles a decoded ControlRequest and produces a response.
// *wm.Server satisfies this via the adapter in internal/ipc/executor.go.
type CommandExecutor interface {
	Execute(req ControlRequest) ControlResponse
}

// NewRequest fills in a fresh correlation ID for command.
func NewRequest(command string, args ...string) ControlRequest {
	return ControlRequest{ID: uuid.New(), Command: command, Args: args}
}

// DefaultSocketPath returns the per-user control-socket path used when no
// explicit address is configured.
func DefaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = filepath.Join(os.TempDir(), fmt.Sprintf("hxm-%d", os.Getuid()))
	}
	return filepath.Join(dir, "hxm.sock")
}

// DefaultPipeName returns the per-user Windows named-pipe path used when no
// explicit address is configured.
func DefaultPipeName() string {
	return `\\.\pipe\hxm-` + sanitizeUser(os.Getenv("USERNAME"))
}

func sanitizeUser(s string) string {
	if s == "" {
		return "default"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "default"
	}
	return string(out)
}

func encodeRequest(req ControlRequest) ([]byte, error)   { return json.Marshal(req) }
func encodeResponse(resp ControlResponse) ([]byte, error) { return json.Marshal(resp) }

func decodeRequest(raw []byte) (ControlRequest, error) {
	var req ControlRequest
	err := json.Unmarshal(raw, &req)
	return req, err
}

func decodeResponse(raw []byte) (ControlResponse, error) {
	var resp ControlResponse
	err := json.Unmarshal(raw, &resp)
	return resp, err
}
