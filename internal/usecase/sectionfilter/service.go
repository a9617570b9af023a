package sectionfilter

import (
	"context"
	"fmt"

	domsf "github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// Service scopes searches to the saved queries of their section.
type Service struct {
	repo            Repository
	analyzeWildcard bool
}

// New creates a section filter service.
func New(repo Repository, analyzeWildcard bool) *Service {
	return &Service{repo: repo, analyzeWildcard: analyzeWildcard}
}

// Apply appends a must query_string for each enabled filter of section.
// When explicit is non-nil it replaces the stored filters.
func (s *Service) Apply(ctx context.Context, b *query.Bool, section string, explicit []domsf.Filter) error {
	filters := explicit
	if filters == nil {
		stored, err := s.repo.ForSection(ctx, section)
		if err != nil {
			return fmt.Errorf("section filters %s: %w", section, err)
		}
		filters = stored
	}

	for i := range filters {
		if !filters[i].Applies(section) {
			continue
		}
		b.AddMust(query.NewQueryString(query.QueryString{
			Query:           filters[i].Query,
			DefaultOperator: "AND",
			AnalyzeWildcard: s.analyzeWildcard,
			Lenient:         true,
		}))
	}
	return nil
}
