package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
)

// --- Mocks ---

type fakeSearch struct {
	res        result.Result
	err        error
	last       request.Request
	allVersion bool
}

func (f *fakeSearch) Search(_ context.Context, req request.Request) (result.Result, error) {
	f.last = req
	return f.res, f.err
}

func (f *fakeSearch) SearchAllVersions(_ context.Context, req request.Request) (result.Result, error) {
	f.last = req
	f.allVersion = true
	return f.res, f.err
}

func (f *fakeSearch) Groups(section string) []searchuc.Group {
	if section == "wire" {
		return []searchuc.Group{{Field: "genre", Label: "Genre"}}
	}
	return nil
}

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(context.Context) healthuc.Report { return f.report }

func newTestRouter(search *fakeSearch, health *fakeHealth, tokens map[string]string) http.Handler {
	srv := NewServer(search, health, zap.NewNop())
	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(tokens))
	r.NotFound(NotFound)
	srv.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return rr, body
}

var tokens = map[string]string{"tok": "u1"}

func TestSearch_SectionRoute(t *testing.T) {
	stored := item.Reconstruct("i1", map[string]any{"headline": "Storm", "type": "text"})
	it := stored.WithHighlights(map[string][]string{"body_html": {"<b>storm</b>"}})
	search := &fakeSearch{res: result.New([]item.Item{it}, 7, map[string]result.Aggregation{
		"genre": {Buckets: []result.Bucket{{Key: "News", DocCount: 3}}},
	})}
	h := newTestRouter(search, &fakeHealth{}, tokens)

	rr, body := do(t, h, "/wire/search?q=storm&size=5&from=10&filter=%7B%7D")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "u1", search.last.UserID)
	assert.Equal(t, "wire", search.last.Args[request.ArgSection])
	assert.Equal(t, 5, search.last.Args[request.ArgSize])
	assert.Equal(t, 10, search.last.Args[request.ArgFrom])
	assert.Equal(t, "storm", search.last.Args[request.ArgQ])
	assert.False(t, search.allVersion)

	items := body["_items"].([]any)
	require.Len(t, items, 1)
	doc := items[0].(map[string]any)
	assert.Equal(t, "i1", doc["_id"])
	assert.Equal(t, "Storm", doc["headline"])
	assert.NotNil(t, doc["es_highlight"])

	meta := body["_meta"].(map[string]any)
	assert.EqualValues(t, 7, meta["total"])
	assert.Len(t, meta["groups"], 1)
	assert.Contains(t, body, "_aggregations")
	assert.NotContains(t, body, "_links")
}

func TestSearch_AllVersionsLinksMatchedIDs(t *testing.T) {
	res := result.New([]item.Item{item.Reconstruct("v2", nil)}, 1, nil)
	search := &fakeSearch{res: res.WithMatchedIDs([]string{"v1"})}
	h := newTestRouter(search, &fakeHealth{}, tokens)

	rr, body := do(t, h, "/search?all_versions=true")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, search.allVersion)
	assert.NotContains(t, search.last.Args, request.ArgSection)
	assert.NotContains(t, search.last.Args, request.ArgSize)

	links := body["_links"].(map[string]any)
	assert.Equal(t, []any{"v1"}, links["matched_ids"])
	assert.NotContains(t, body, "_aggregations")
}

func TestSearch_Projections(t *testing.T) {
	search := &fakeSearch{}
	h := newTestRouter(search, &fakeHealth{}, tokens)

	rr, _ := do(t, h, "/search?projections=headline,slugline")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"headline", "slugline"}, search.last.Projection)
}

func TestSearch_InvalidSize(t *testing.T) {
	search := &fakeSearch{}
	h := newTestRouter(search, &fakeHealth{}, tokens)

	rr, body := do(t, h, "/search?size=ten")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, codeBadRequest, body["code"])
	assert.Equal(t, "Invalid size parameter", body["message"])
	assert.Empty(t, search.last.UserID, "service not called")
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"parameter", domain.NewParameterError("navigation", "Invalid navigation parameter"),
			http.StatusBadRequest, codeBadRequest, "Invalid navigation parameter"},
		{"limit", fmt.Errorf("compile: %w", domain.ErrLimitExceeded),
			http.StatusBadRequest, codeLimitExceeded, "Page limit exceeded"},
		{"forbidden", fmt.Errorf("validate: %w", domain.NewForbidden("User does not belong to a company")),
			http.StatusForbidden, codeForbidden, "User does not belong to a company"},
		{"not_found", domain.NewNotFound("Invalid product parameter"),
			http.StatusNotFound, codeNotFound, "Invalid product parameter"},
		{"rejected_query", fmt.Errorf("search items: %w",
			&db.Error{Op: db.OpSearch, Err: db.RejectedQuery(errors.New("Syntax error at offset 4 near )"))}),
			http.StatusBadRequest, codeBadRequest, "Invalid search query"},
		{"unavailable", fmt.Errorf("search items: %w", domain.ErrIndexUnavailable),
			http.StatusServiceUnavailable, codeUnavailable, "index unavailable"},
		{"internal", errors.New("dial tcp: connection refused"),
			http.StatusInternalServerError, codeInternal, "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&fakeSearch{err: tc.err}, &fakeHealth{}, tokens)

			rr, body := do(t, h, "/wire/search")
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestSearch_QueryTooLong(t *testing.T) {
	h := newTestRouter(&fakeSearch{}, &fakeHealth{}, tokens)

	long := make([]byte, request.MaxQueryLength+1)
	for i := range long {
		long[i] = 'a'
	}
	rr, body := do(t, h, "/search?q="+string(long))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, codeBadRequest, body["code"])
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		status int
	}{
		{"healthy", healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK}}, http.StatusOK},
		{"degraded", healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckError}}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&fakeSearch{}, &fakeHealth{report: tc.report}, tokens)

			req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, string(tc.report.Status), body["status"])
		})
	}
}

func TestNotFoundRoute(t *testing.T) {
	h := newTestRouter(&fakeSearch{}, &fakeHealth{}, tokens)

	rr, body := do(t, h, "/nope/nope/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, codeNotFound, body["code"])
}
