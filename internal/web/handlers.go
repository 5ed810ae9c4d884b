package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/JonMunkholm/catalogsync/internal/core"
)

// maxSyncRequestBytes bounds the trigger body; it only ever holds a few
// tab names.
const maxSyncRequestBytes = 64 << 10

// handleSync runs a synchronization and returns its report. The report is
// returned with 200 even when it records a failed run; 409 means another
// run is active.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req core.SyncRequest
	body := http.MaxBytesReader(w, r.Body, maxSyncRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	// The run outlives a disconnected client; it keeps the request's
	// values (request ID) but not its cancellation.
	report, err := s.syncer.Sync(context.WithoutCancel(r.Context()), req)
	if errors.Is(err, core.ErrSyncInProgress) {
		s.respondError(w, r, err, http.StatusConflict)
		return
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.syncer.Status())
}

func (s *Server) handleLastReport(w http.ResponseWriter, r *http.Request) {
	report := s.syncer.LastReport()
	if report == nil {
		writeError(w, http.StatusNotFound, msgNoReport)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
