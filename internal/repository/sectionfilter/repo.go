package sectionfilter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/newsdex/internal/db"
	domsf "github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

const maxFilters = 500

// store is the consumer interface for section filters (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo implements usecase/sectionfilter.Repository.
type Repo struct {
	store store
	index *db.IndexDefinition
}

// New creates a section filter repository over documents stored under
// prefix + "section_filter:".
func New(s store, prefix string) *Repo {
	return &Repo{
		store: s,
		index: db.NewIndex(strings.TrimSuffix(prefix, ":")+":section_filters").OnJSON().
			Prefix(prefix+"section_filter:").
			JSONField("$.filter_type", "filter_type", db.IndexFieldTag).
			MustBuild(),
	}
}

// EnsureIndex creates the section filters index unless it exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.index.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index.Name, err)
	}
	if ok {
		return nil
	}
	if err := r.store.CreateIndex(ctx, r.index); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.index.Name, err)
	}
	return nil
}

// ForSection returns the filters stored for section, enabled or not.
func (r *Repo) ForSection(ctx context.Context, section string) ([]domsf.Filter, error) {
	q := query.NewTerm("filter_type", section)
	res, err := r.store.Search(ctx, &db.SearchQuery{
		Index:        r.index,
		Query:        &q,
		Limit:        maxFilters,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search section filters: %w", err)
	}

	filters := make([]domsf.Filter, 0, len(res.Entries))
	for _, e := range res.Entries {
		var f domsf.Filter
		if err := json.Unmarshal([]byte(e.Fields["$"]), &f); err != nil {
			return nil, fmt.Errorf("section filter %s: %w", e.Key, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}
