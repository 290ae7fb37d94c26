package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
	"github.com/zasa-35/oura-visualizer/internal/dashboard"
	"github.com/zasa-35/oura-visualizer/internal/models"
	"github.com/zasa-35/oura-visualizer/internal/oura"
	"github.com/zasa-35/oura-visualizer/internal/storage"
)

// handleProxySleep republishes /sleep and /daily_sleep for ?start=&end=.
// The credential is checked before the query.
func (s *Server) handleProxySleep(w http.ResponseWriter, r *http.Request) {
	if !s.oura.Configured() {
		writeError(w, apperr.NewConfiguration(oura.MsgMissingToken))
		return
	}
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if err := oura.ValidateRange(start, end); err != nil {
		writeError(w, err)
		return
	}

	payload, err := s.oura.FetchRange(r.Context(), start, end)
	if err != nil {
		s.log.Error("proxy fetch failed", "start", start, "end", end, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		day = s.today()
	}

	c, err := s.refreshDay(r.Context(), day)
	if err != nil {
		writeError(w, err)
		return
	}
	start, end := c.Range()
	writeJSON(w, http.StatusOK, models.MetricsReport{
		Date:      day,
		Start:     start,
		End:       end,
		Metrics:   c.Metrics(),
		UpdatedAt: c.UpdatedAt(),
	})
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, apperr.Body{Error: dashboard.ErrNoStore.Error()})
		return
	}

	var snap models.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, &apperr.Error{Kind: apperr.Validation, Message: "invalid JSON", Detail: err.Error()})
		return
	}
	if snap.Start == "" || snap.End == "" || len(snap.Payload) == 0 || string(snap.Payload) == "null" {
		writeError(w, apperr.NewValidation(storage.ErrInvalidSnapshot.Error()))
		return
	}
	if err := oura.ValidateRange(snap.Start, snap.End); err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.store.Save(r.Context(), snap)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidSnapshot) {
			writeError(w, apperr.NewValidation(err.Error()))
			return
		}
		s.log.Error("snapshot save failed", "start", snap.Start, "end", snap.End, "error", err)
		writeError(w, apperr.NewInternal(err))
		return
	}
	s.log.Info("snapshot saved", "id", saved.ID, "start", saved.Start, "end", saved.End)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its status and the {error, detail} body.
func writeError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	writeJSON(w, e.HTTPStatus(), e.Body())
}
