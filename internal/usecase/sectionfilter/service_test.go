package sectionfilter

import (
	"context"
	"errors"
	"testing"

	domsf "github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

type mockRepo struct {
	filters []domsf.Filter
	err     error
	calls   int
}

func (m *mockRepo) ForSection(_ context.Context, _ string) ([]domsf.Filter, error) {
	m.calls++
	return m.filters, m.err
}

func TestApply_StoredFilters(t *testing.T) {
	repo := &mockRepo{filters: []domsf.Filter{
		{FilterType: "wire", Query: "service.code:a", IsEnabled: true},
		{FilterType: "wire", Query: "service.code:b"},
	}}
	b := query.NewBool()
	if err := New(repo, true).Apply(context.Background(), b, "wire", nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(b.Must) != 1 {
		t.Fatalf("expected one must clause, got %d", len(b.Must))
	}
	qs := b.Must[0].QueryString
	if qs == nil || qs.Query != "service.code:a" || !qs.Lenient || !qs.AnalyzeWildcard || qs.DefaultOperator != "AND" {
		t.Errorf("unexpected clause %+v", qs)
	}
}

func TestApply_ExplicitFilters(t *testing.T) {
	repo := &mockRepo{}
	b := query.NewBool()
	explicit := []domsf.Filter{{FilterType: "wire", Query: "x", IsEnabled: true}}
	if err := New(repo, false).Apply(context.Background(), b, "wire", explicit); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if repo.calls != 0 {
		t.Error("explicit filters must not hit the repository")
	}
	if len(b.Must) != 1 {
		t.Errorf("expected one must clause, got %d", len(b.Must))
	}
}

func TestApply_RepoError(t *testing.T) {
	boom := errors.New("boom")
	b := query.NewBool()
	if err := New(&mockRepo{err: boom}, false).Apply(context.Background(), b, "wire", nil); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
	if !b.IsEmpty() {
		t.Error("query must be untouched on error")
	}
}
