package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/requestctx"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		ledgerState := "disabled"
		if s.store != nil {
			ledgerState = "ok"
		}
		resp["components"] = map[string]interface{}{
			"detectors": s.sanitizer.Detectors(),
			"ledger":    ledgerState,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sanitizeResponse struct {
	RunID    string            `json:"run_id"`
	Document json.RawMessage   `json:"document"`
	Summary  sanitizer.Summary `json:"summary"`
	LedgerID string            `json:"ledger_id,omitempty"`
}

// readDocument reads and parses the request body, answering the client
// itself on failure.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, *document.Document, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large",
				"document exceeds "+strconv.FormatInt(s.maxBodyBytes, 10)+" bytes")
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "reading body: "+err.Error())
		return nil, nil, false
	}
	doc, err := document.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_document", err.Error())
		return nil, nil, false
	}
	return body, doc, true
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	res, err := s.sanitizer.Sanitize(r.Context(), doc)
	if err != nil {
		var ge *sanitizer.GeneratorError
		if errors.As(err, &ge) {
			writeError(w, http.StatusUnprocessableEntity, "generation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	out, err := document.EncodeNode(res.Document.Root())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "encoding document: "+err.Error())
		return
	}

	resp := sanitizeResponse{RunID: res.RunID, Document: out, Summary: res.Summary}
	if s.recorder != nil {
		rec, err := s.recorder.Record(r.Context(), ledger.Run{
			Source:    ledger.SourceAPI,
			Result:    res,
			Input:     body,
			Output:    out,
			Detectors: s.sanitizer.Detectors(),
			Seeded:    s.seeded,
			Duration:  time.Since(start),
		})
		if err != nil {
			log.Error().Err(err).Str("run_id", res.RunID).Msg("ledger_append_failed")
		} else {
			resp.LedgerID = rec.ID
		}
	}
	log.Info().
		Str("caller", requestctx.Caller(r.Context())).
		Str("run_id", res.RunID).
		Int("records", res.Summary.RecordsProcessed).
		Int("replacements", res.Summary.ReplacementsMade).
		Func(otel.LogTraceFields(r.Context())).
		Msg("document_sanitized")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	_, doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	report, err := s.sanitizer.Scan(r.Context(), doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRunsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{Source: q.Get("source"), Limit: 20}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	for param, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", param+" must be RFC 3339")
			return
		}
		*dst = t
	}
	runs, err := s.store.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if runs == nil {
		runs = []ledger.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "count": len(runs)})
}

func (s *Server) handleRunVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	valid, err := s.store.Verify(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "valid": valid})
}
