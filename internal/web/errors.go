package web

// errors.go renders error responses. Every error body carries the
// operator-facing message and support code from core.MapError; the
// technical error only reaches the log, tagged with the request ID.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	msgBadRequest = core.UserMessage{
		Message: "The sync request body is not valid JSON",
		Action:  `Send {"partitions":[...],"clearFirst":false,"dryRun":false} or an empty body`,
		Code:    "REQ001",
	}
	msgRateLimited = core.UserMessage{
		Message: "Too many sync requests",
		Action:  "Wait before triggering another sync",
		Code:    "REQ002",
	}
	msgNoReport = core.UserMessage{
		Message: "No sync has finished yet",
		Action:  "Trigger one with POST /api/sync",
		Code:    "REQ003",
	}
)

// respondError logs err and writes its mapped message with status. err
// must not be nil.
// Errors without a specific code are logged at error level; known ones
// are expected operating conditions and only warn.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	ue := core.NewUserError(err)

	level := slog.LevelError
	if core.IsUserFacing(err) {
		level = slog.LevelWarn
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err,
		"code", ue.User.Code,
	)
	writeError(w, status, ue.User)
}

func writeError(w http.ResponseWriter, status int, msg core.UserMessage) {
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v with status. Encoding errors are only logged since
// the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
