package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
)

// headsIndex answers the candidate pass with matches and the second pass
// with the items whose ids are listed in the terms _id clause.
func headsIndex(matches []item.Item, stored ...item.Item) *mockIndex {
	index := newMockIndex(stored...)
	index.searchFn = func(req *query.Request) (result.Result, error) {
		b := req.BoolQuery()
		if b != nil && len(b.Must) == 1 && b.Must[0].Terms != nil && b.Must[0].Terms.Field == item.FieldID {
			var out []item.Item
			for _, id := range b.Must[0].Terms.Values {
				if it, ok := index.items[id]; ok {
					out = append(out, it)
				}
			}
			return result.New(out, len(out), nil), nil
		}
		if b != nil && len(b.Must) > 0 && b.Must[0].Term != nil && b.Must[0].Term.Field == item.FieldOriginalID {
			return result.New(nil, 0, nil), nil
		}
		return result.New(matches, len(matches), nil), nil
	}
	return index
}

func TestSearch_DispatchesCompiledRequest(t *testing.T) {
	want := []item.Item{chainItem("x1", "", "")}
	index := newMockIndex()
	index.searchFn = func(*query.Request) (result.Result, error) {
		return result.New(want, 1, nil), nil
	}
	s, _ := newTestService(index, testConfig())

	res, err := s.Search(context.Background(), newRequest(editorID, request.Args{"q": "budget", "size": "10"}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
	assert.Equal(t, []string{"x1"}, res.IDs())
	assert.Nil(t, res.MatchedIDs())

	require.Equal(t, 1, index.searchCount())
	assert.Equal(t, 10, index.searches[0].Size)
}

func TestSearch_IndexError(t *testing.T) {
	index := newMockIndex()
	index.searchFn = func(*query.Request) (result.Result, error) {
		return result.Result{}, errors.New("boom")
	}
	s, _ := newTestService(index, testConfig())

	_, err := s.Search(context.Background(), newRequest(adminID, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search items")
}

func TestSearchAllVersions_DeduplicatesChainHeads(t *testing.T) {
	v1 := chainItem("v1", "", "v2")
	v2 := chainItem("v2", "", "v3")
	v3 := chainItem("v3", "", "")
	other := chainItem("o1", "", "")
	index := headsIndex([]item.Item{v1, v2, other}, v1, v2, v3, other)
	s, _ := newTestService(index, testConfig())

	res, err := s.SearchAllVersions(context.Background(), newRequest(editorID, request.Args{
		"q": "election", "size": "5", "from": "0",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"v3", "o1"}, res.IDs())
	assert.Equal(t, []string{"v1", "v2", "o1"}, res.MatchedIDs())

	require.Equal(t, 2, index.searchCount())
	candidates := index.searches[0]
	assert.Equal(t, 1000, candidates.Size)
	assert.Zero(t, candidates.From)
	assert.Nil(t, candidates.Aggs)
	assert.NotContains(t, jsonOf(t, candidates.Query), "nextversion", "candidates include stale revisions")
	assert.Contains(t, jsonOf(t, candidates.Query), `"query":"election"`)

	heads := index.searches[1]
	assert.Equal(t, 5, heads.Size)
	assert.JSONEq(t, `{"bool":{"must":[{"terms":{"_id":["v3","o1"]}}],"must_not":[],"should":[]}}`,
		jsonOf(t, heads.Query))
}

func TestSearchAllVersions_KeepsCallerPagination(t *testing.T) {
	index := headsIndex([]item.Item{chainItem("a", "", "")}, chainItem("a", "", ""))
	s, _ := newTestService(index, testConfig())

	_, err := s.SearchAllVersions(context.Background(), newRequest(adminID, request.Args{"size": "2", "from": "4"}))
	require.NoError(t, err)
	require.Equal(t, 2, index.searchCount())
	assert.Equal(t, 2, index.searches[1].Size)
	assert.Equal(t, 4, index.searches[1].From)
	assert.Nil(t, index.searches[1].Aggs)
}

func TestSearchAllVersions_Rejections(t *testing.T) {
	index := newMockIndex()
	s, _ := newTestService(index, testConfig())

	_, err := s.SearchAllVersions(context.Background(), newRequest(emptyID, nil))
	require.Error(t, err)
	assert.Zero(t, index.searchCount())

	_, err = s.SearchAllVersions(context.Background(), newRequest(adminID, request.Args{"from": "1000"}))
	require.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Zero(t, index.searchCount())
}

func TestSearchAllVersions_NoLeakBetweenRequests(t *testing.T) {
	a1 := chainItem("a1", "", "a2")
	a2 := chainItem("a2", "", "")
	b1 := chainItem("b1", "", "")
	stored := []item.Item{a1, a2, b1}

	byQuery := map[string][]item.Item{"alpha": {a1}, "beta": {b1}}
	index := newMockIndex(stored...)
	index.searchFn = func(req *query.Request) (result.Result, error) {
		b := req.BoolQuery()
		if len(b.Must) == 1 && b.Must[0].Terms != nil && b.Must[0].Terms.Field == item.FieldID {
			var out []item.Item
			for _, id := range b.Must[0].Terms.Values {
				out = append(out, index.items[id])
			}
			return result.New(out, len(out), nil), nil
		}
		for _, c := range b.Must {
			if c.QueryString != nil {
				hits := byQuery[c.QueryString.Query]
				return result.New(hits, len(hits), nil), nil
			}
		}
		return result.New(nil, 0, nil), nil
	}
	s, _ := newTestService(index, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		q, wantMatched, wantHeads := "alpha", []string{"a1"}, []string{"a2"}
		if i%2 == 1 {
			q, wantMatched, wantHeads = "beta", []string{"b1"}, []string{"b1"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.SearchAllVersions(context.Background(), newRequest(adminID, request.Args{"q": q}))
			assert.NoError(t, err)
			assert.Equal(t, wantMatched, res.MatchedIDs())
			assert.Equal(t, wantHeads, res.IDs())
		}()
	}
	wg.Wait()
}

func TestGroups(t *testing.T) {
	s, _ := newTestService(newMockIndex(), testConfig())
	assert.Equal(t, []Group{{Field: "genre", Label: "Genre"}}, s.Groups(""))
	assert.Empty(t, s.Groups("agenda"))
}

func TestOutcome(t *testing.T) {
	s, _ := newTestService(newMockIndex(), testConfig())
	_, err := s.Search(context.Background(), newRequest(editorID, request.Args{"from": "1000"}))
	assert.Equal(t, "limit_exceeded", outcome(err))
	_, err = s.Search(context.Background(), newRequest(noCompID, nil))
	assert.Equal(t, "forbidden", outcome(err))
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "invalid", outcome(fmt.Errorf("search items: %w", db.ErrUnsupportedQuery)))
	assert.Equal(t, "error", outcome(errors.New("x")))
}
