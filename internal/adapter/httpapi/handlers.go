package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/middleware"
)

// searchFailedMessage is the public error text for any searcher failure.
const searchFailedMessage = "Failed to fetch search results"

type searchResponse struct {
	Content string                `json:"content"`
	Results []domain.SearchResult `json:"results"`
	Layout  string                `json:"layout"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", domain.CodeInvalidInput)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		msg := "invalid JSON: " + err.Error()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		writeError(w, http.StatusBadRequest, msg, domain.CodeInvalidInput)
		return
	}
	var doc any
	_ = json.Unmarshal(raw, &doc)
	if err := s.schema.validate(doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error(), domain.CodeInvalidInput)
		return
	}
	var req domain.SearchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error(), domain.CodeInvalidInput)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required", domain.CodeInvalidInput)
		return
	}
	if s.layouts != nil && req.Layout != "" {
		if _, err := s.layouts.Get(req.Layout); err != nil {
			writeError(w, http.StatusBadRequest, "unknown layout: "+req.Layout, domain.CodeLayoutNotFound)
			return
		}
	}

	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		code := domain.ErrorCodeOf(err)
		status := statusFor(err)
		s.logger.Error("search request failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"code", code,
			"status", status,
			"error", err,
		)
		msg := searchFailedMessage
		if code == domain.CodeLayoutNotFound {
			msg = "unknown layout: " + req.Layout
		}
		writeError(w, status, msg, code)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Content: resp.Content,
		Results: resp.Results,
		Layout:  resp.Layout,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"searcher": s.searcher.Name(),
	})
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Default string   `json:"default"`
		Layouts []string `json:"layouts"`
	}{Layouts: []string{}}
	if s.layouts != nil {
		body.Default = s.layouts.Default()
		body.Layouts = s.layouts.Names()
	}
	writeJSON(w, http.StatusOK, body)
}

// statusFor maps a searcher error onto an HTTP status.
func statusFor(err error) int {
	switch domain.ErrorCodeOf(err) {
	case domain.CodeLayoutNotFound:
		return http.StatusBadRequest
	case domain.CodeSearchBlocked, domain.CodeSearchUnreachable:
		return http.StatusBadGateway
	case domain.CodeSearchTimeout, domain.CodeBrowserTimeout, domain.CodeTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeBrowserPoolFull, domain.CodeLimitReached:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, code domain.ErrorCode) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
