package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wesm/livesearch/internal/index"
)

// maxQueryRunes bounds the prefix matched against the index.
const maxQueryRunes = 256

// Result is one search hit. It encodes as a flat JSON object whose keys keep
// the schema's field order, with "id" first.
type Result struct {
	ID     string
	Names  []string
	Values []string
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair := func(k, v string) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	if err := writePair("id", r.ID); err != nil {
		return nil, err
	}
	for i, name := range r.Names {
		buf.WriteByte(',')
		v := ""
		if i < len(r.Values) {
			v = r.Values[i]
		}
		if err := writePair(name, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Schema  string `json:"schema"`
	Records int    `json:"records"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// handleSearch answers GET /?q=prefix with the matching records. An empty
// query or a query without hits yields an empty array.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.metrics.observe(outcomeEmpty, 0, 0)
		writeJSON(w, http.StatusOK, []Result{})
		return
	}
	if len([]rune(query)) > maxQueryRunes {
		writeError(w, http.StatusBadRequest, "query_too_long", "Query exceeds 256 characters")
		return
	}

	start := time.Now()
	matches := s.searcher.FindMatches(query, s.cfg.Index.MaxDistance, s.cfg.Index.MaxResults)
	elapsed := time.Since(start)

	results := toResults(s.searcher.Schema(), matches)
	outcome := outcomeHit
	if len(results) == 0 {
		outcome = outcomeMiss
	}
	s.metrics.observe(outcome, len(results), elapsed)

	s.logger.Debug("search",
		"query", query,
		"results", len(results),
		"duration", elapsed,
	)
	writeJSON(w, http.StatusOK, results)
}

// handleHealth reports liveness and the size of the loaded index.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Schema:  s.searcher.Schema().Name,
		Records: s.searcher.Len(),
	})
}

func toResults(schema index.Schema, matches []index.Match) []Result {
	names := schema.FieldNames()
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{
			ID:     m.Record.ID,
			Names:  names,
			Values: m.Record.Values,
		})
	}
	return results
}
