package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"labdesk/internal/models"
	"labdesk/internal/service"
)

const (
	defaultOperator = "admin"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *HTTPServer) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Operator string `json:"operator"`
	}
	if err := decodeOptionalBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	operator := strings.TrimSpace(body.Operator)
	if client, ok := ClientFromContext(r.Context()); ok && strings.TrimSpace(client.Name) != "" {
		operator = strings.TrimSpace(client.Name)
	}
	if operator == "" {
		operator = defaultOperator
	}

	session, err := s.sessions.Open(r.Context(), operator)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to open session")
		writeError(w, http.StatusServiceUnavailable, "failed to open session")
		return
	}
	writeJSON(w, http.StatusCreated, session.View())
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Reload(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, func(sessionID string, kind models.Kind, id int64) (*service.Session, error) {
		return s.sessions.Approve(r.Context(), sessionID, kind, id)
	})
}

func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := decodeOptionalBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.handleDecision(w, r, func(sessionID string, kind models.Kind, id int64) (*service.Session, error) {
		return s.sessions.Reject(r.Context(), sessionID, kind, id, body.Comment)
	})
}

type decideFunc func(sessionID string, kind models.Kind, id int64) (*service.Session, error)

func (s *HTTPServer) handleDecision(w http.ResponseWriter, r *http.Request, decide decideFunc) {
	kind, ok := models.ParseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown request kind")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("requestID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	if !service.Actionable(kind) {
		writeError(w, http.StatusUnprocessableEntity, "approve and reject are not available for "+string(kind)+"s")
		return
	}

	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	if err := s.sessions.CheckMutationRate(r.Context(), session.Operator()); err != nil {
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	session, err = decide(session.ID(), kind, id)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		s.writeSessionError(w, err)
	case err == nil:
		writeJSON(w, http.StatusOK, session.View())
	case errors.Is(err, service.ErrActionInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": session.LastError(),
			"view":  session.View(),
		})
	}
}

func (s *HTTPServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := session.Navigate(body.Destination); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"destination": strings.TrimSpace(body.Destination)})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	labID, err := strconv.ParseInt(r.PathValue("labID"), 10, 64)
	if err != nil || labID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid lab id")
		return
	}

	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	now := s.now()
	buf, err := service.ExportLabBookings(session.Snapshot(), labID, now)
	if errors.Is(err, service.ErrLabNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("lab_id", labID).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ExportFileName(labID, now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) lookup(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	session, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (s *HTTPServer) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error().Err(err).Msg("session lookup failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeOptionalBody decodes JSON into out, accepting an empty body.
func decodeOptionalBody(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
