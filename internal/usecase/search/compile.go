package search

import (
	"context"
	"maps"
	"slices"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
)

// checkPage rejects offsets past the index pagination ceiling.
func checkPage(qc *Context) error {
	if qc.From >= domain.MaxResultWindow {
		return domain.ErrLimitExceeded
	}
	return nil
}

// compile serializes the context into the request sent to the index.
func (s *Service) compile(_ context.Context, qc *Context) error {
	if err := checkPage(qc); err != nil {
		return err
	}

	src := query.Request{
		Query:     query.NewBoolClause(qc.Query),
		Sort:      slices.Clone(qc.Sort),
		Size:      qc.Size,
		From:      qc.From,
		Highlight: qc.Highlight,
	}
	if qc.PostFilter != nil {
		pf := query.NewBoolClause(qc.PostFilter)
		src.PostFilter = &pf
	}
	if qc.From == 0 && qc.Args.Bool(request.ArgAggs, true) {
		if aggs := s.cfg.section(qc.Section).Aggregations; len(aggs) > 0 {
			src.Aggs = maps.Clone(aggs)
		}
	}
	qc.Source = src
	return nil
}
