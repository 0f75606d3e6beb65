package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pysnip/internal/domain"
	"pysnip/internal/infra/hashutil"
	"pysnip/internal/infra/telemetry"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/categories/{key}", s.handleCategory)
	mux.HandleFunc("GET /api/categories/{key}/related", s.handleRelated)
	mux.HandleFunc("GET /api/tools/{path...}", s.handleTool)
	mux.HandleFunc("GET /api/params/{path...}", s.handleParams)
	mux.HandleFunc("GET /api/schema/{path...}", s.handleSchema)
	mux.HandleFunc("GET /api/docs/{path...}", s.handleDocs)
	mux.HandleFunc("GET /api/source/{path...}", s.handleSource)
	mux.HandleFunc("GET /api/guide/{path...}", s.handleGuide)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/random", s.handleRandom)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("GET /api/featured", s.handleFeatured)
	mux.HandleFunc("GET /api/top-categories", s.handleTopCategories)
	mux.HandleFunc("POST /api/execute", s.handleExecute)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

type executeRequest struct {
	ToolPath string         `json:"tool_path"`
	Params   map[string]any `json:"params"`
}

type refreshResponse struct {
	Name          string    `json:"name"`
	GeneratedAt   time.Time `json:"generatedAt"`
	ToolCount     int       `json:"toolCount"`
	CategoryCount int       `json:"categoryCount"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code,omitempty"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := s.explorer.Catalog()
	if etag := hashutil.CatalogETag(s.logger, catalog); etag != "" {
		quoted := `"` + etag + `"`
		w.Header().Set("ETag", quoted)
		if r.Header.Get("If-None-Match") == quoted {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.explorer.Stats())
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	category, ok := s.explorer.Category(key)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeToolNotFound, "category not found: "+key)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	count, ok := countParam(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	if _, found := s.explorer.Category(key); !found {
		writeError(w, http.StatusNotFound, domain.CodeToolNotFound, "category not found: "+key)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.explorer.RelatedTools(key, count)))
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	tool, ok := s.explorer.Tool(path)
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeToolNotFound, "tool not found: "+path)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	params, err := s.explorer.ExtractParameters(r.PathValue("path"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(params))
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.explorer.ParameterSchema(r.PathValue("path"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := s.explorer.ExtractDocumentation(r.PathValue("path"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	view, err := s.explorer.ReadSource(r.PathValue("path"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGuide(w http.ResponseWriter, r *http.Request) {
	view, err := s.explorer.ReadGuide(r.PathValue("path"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.explorer.Search(r.URL.Query().Get("q"))))
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	tool, ok := s.explorer.RandomTool()
	if !ok {
		writeError(w, http.StatusNotFound, domain.CodeToolNotFound, "catalog is empty")
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	count, ok := countParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.explorer.RecentTools(count)))
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	count, ok := countParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.explorer.FeaturedTools(count)))
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	count, ok := countParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.explorer.TopCategories(count)))
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.CodeInvalidArgument, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "invalid request body: "+err.Error())
		return
	}
	if req.ToolPath == "" {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "tool_path is required")
		return
	}

	result := s.explorer.Execute(r.Context(), req.ToolPath, req.Params)
	status := http.StatusOK
	switch result.ErrorKind {
	case domain.CodeToolNotFound:
		status = http.StatusNotFound
	case domain.CodePolicyViolation, domain.CodeExecutionDisabled:
		status = http.StatusForbidden
	}
	writeJSON(w, status, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "force must be a boolean")
			return
		}
		force = parsed
	}
	catalog, err := s.explorer.RefreshCatalog(r.Context(), force)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	telemetry.LoggerWithRequest(r.Context(), s.logger).Info("catalog refreshed",
		telemetry.EventField(telemetry.EventRefresh),
		zap.Bool("force", force),
		zap.Int("tools", catalog.ToolCount),
	)
	writeJSON(w, http.StatusOK, refreshResponse{
		Name:          catalog.Name,
		GeneratedAt:   catalog.GeneratedAt,
		ToolCount:     catalog.ToolCount,
		CategoryCount: len(catalog.Categories),
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code, _ := domain.CodeFrom(err)
	if status >= http.StatusInternalServerError {
		telemetry.LoggerWithRequest(r.Context(), s.logger).Error("request failed", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	code, ok := domain.CodeFrom(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case domain.CodeToolNotFound, domain.CodeRootNotFound:
		return http.StatusNotFound
	case domain.CodePolicyViolation, domain.CodeExecutionDisabled, domain.CodeSourceViewDisabled:
		return http.StatusForbidden
	case domain.CodeInvalidArgument, domain.CodeParseFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func countParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidArgument, "n must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
