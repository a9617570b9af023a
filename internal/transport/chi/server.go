package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/logger"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
)

// Error codes returned in error bodies.
const (
	codeBadRequest    = "bad_request"
	codeUnauthorized  = "unauthorized"
	codeForbidden     = "forbidden"
	codeNotFound      = "not_found"
	codeLimitExceeded = "limit_exceeded"
	codeUnavailable   = "index_unavailable"
	codeInternal      = "internal_error"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// searchService is what the server needs from the search use case.
type searchService interface {
	Search(ctx context.Context, req request.Request) (result.Result, error)
	SearchAllVersions(ctx context.Context, req request.Request) (result.Result, error)
	Groups(section string) []searchuc.Group
}

type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the search HTTP API.
type Server struct {
	search        searchService
	health        healthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search searchService, health healthService, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(db.ErrUnsupportedQuery, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrLimitExceeded, http.StatusBadRequest, codeLimitExceeded),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/search", s.Search)
	r.Get("/{section}/search", s.Search)
}

// Search handles GET /search and GET /{section}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	args := request.FromValues(query)
	if section := chi.URLParam(r, "section"); section != "" {
		args[request.ArgSection] = section
	}

	// size and from are typed; everything else stays raw for the pipeline.
	for _, name := range []string{request.ArgSize, request.ArgFrom} {
		var n *int
		if err := runtime.BindQueryParameter("form", true, false, name, query, &n); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid "+name+" parameter")
			return
		}
		if n != nil {
			args[name] = *n
		} else {
			delete(args, name)
		}
	}

	req, err := request.New(UserIDFromContext(r.Context()), args)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if fields, ok, _ := args.List("projections"); ok {
		req.Projection = fields
	}

	ctx := logger.With(r.Context(), zap.String("user_id", req.UserID))
	var res result.Result
	if args.Bool(request.ArgAllVersions, false) {
		res, err = s.search.SearchAllVersions(ctx, req)
	} else {
		res, err = s.search.Search(ctx, req)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.searchResponse(&res, args.String(request.ArgSection)))
}

type searchResponse struct {
	Items        []map[string]any              `json:"_items"`
	Meta         searchMeta                    `json:"_meta"`
	Aggregations map[string]result.Aggregation `json:"_aggregations,omitempty"`
	Links        *searchLinks                  `json:"_links,omitempty"`
}

type searchMeta struct {
	Total  int         `json:"total"`
	Groups []groupJSON `json:"groups,omitempty"`
}

type groupJSON struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

type searchLinks struct {
	MatchedIDs []string `json:"matched_ids"`
}

func (s *Server) searchResponse(res *result.Result, section string) searchResponse {
	out := searchResponse{
		Items:        make([]map[string]any, 0, len(res.Items())),
		Meta:         searchMeta{Total: res.Total()},
		Aggregations: res.Aggregations(),
	}
	for _, it := range res.Items() {
		out.Items = append(out.Items, itemJSON(&it))
	}
	if out.Aggregations != nil {
		for _, g := range s.search.Groups(section) {
			out.Meta.Groups = append(out.Meta.Groups, groupJSON{Field: g.Field, Label: g.Label})
		}
	}
	if ids := res.MatchedIDs(); ids != nil {
		out.Links = &searchLinks{MatchedIDs: ids}
	}
	return out
}

func itemJSON(it *item.Item) map[string]any {
	doc := make(map[string]any, len(it.Fields())+2)
	for k, v := range it.Fields() {
		doc[k] = v
	}
	doc[item.FieldID] = it.ID()
	if h := it.Highlights(); len(h) > 0 {
		doc["es_highlight"] = h
	}
	return doc
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// NotFound replies to unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
func safeDomainMessage(err error) string {
	var pe *domain.ParameterError
	if errors.As(err, &pe) {
		if pe.Reason != "" {
			return pe.Reason
		}
		return "Invalid " + pe.Param + " parameter"
	}
	var fe *domain.ForbiddenError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nf.Reason
	}
	switch {
	case errors.Is(err, domain.ErrLimitExceeded):
		return "Page limit exceeded"
	case errors.Is(err, db.ErrUnsupportedQuery):
		return "Invalid search query"
	case errors.Is(err, domain.ErrIndexUnavailable):
		return domain.ErrIndexUnavailable.Error()
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrForbidden):
		return domain.ErrForbidden.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful can be written.
		return
	}
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Debug("request rejected", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
