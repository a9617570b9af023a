package sectionfilter

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/newsdex/internal/db"
)

type mockStore struct {
	created  *db.IndexDefinition
	exists   bool
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return nil
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) { return m.exists, nil }

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	return m.searchFn(ctx, q)
}

func TestForSection(t *testing.T) {
	var got *db.SearchQuery
	s := &mockStore{searchFn: func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:    "newsdex:section_filter:f1",
			Fields: map[string]string{"$": `{"_id":"f1","filter_type":"wire","query":"service.code:a","is_enabled":true}`},
		}}}, nil
	}}

	filters, err := New(s, "newsdex:").ForSection(context.Background(), "wire")
	if err != nil {
		t.Fatalf("ForSection: %v", err)
	}
	if len(filters) != 1 || filters[0].Query != "service.code:a" || !filters[0].IsEnabled {
		t.Errorf("unexpected filters %+v", filters)
	}
	if got.Index.Name != "newsdex:section_filters" || got.Query.Term.Value != "wire" {
		t.Errorf("unexpected query %+v on %s", got.Query, got.Index.Name)
	}
}

func TestForSection_Errors(t *testing.T) {
	s := &mockStore{searchFn: func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}}
	if _, err := New(s, "newsdex:").ForSection(context.Background(), "wire"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}

	s.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{Key: "k", Fields: map[string]string{"$": "not json"}}}}, nil
	}
	if _, err := New(s, "newsdex:").ForSection(context.Background(), "wire"); err == nil {
		t.Error("expected decode error")
	}
}

func TestEnsureIndex(t *testing.T) {
	s := &mockStore{}
	if err := New(s, "newsdex:").EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if s.created == nil || s.created.Prefixes[0] != "newsdex:section_filter:" {
		t.Errorf("unexpected index %+v", s.created)
	}
}
