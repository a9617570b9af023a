package config

import (
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
)

// Settings converts the search section into the search service configuration.
func (s *SearchConfig) Settings() searchuc.Config {
	out := searchuc.Config{
		DefaultSection:     s.DefaultSection,
		DefaultPageSize:    s.DefaultPageSize,
		PostFilter:         s.PostFilter,
		FilterAggregations: s.FilterAggregations == nil || *s.FilterAggregations,
		AnalyzeWildcard:    s.QueryString.AnalyzeWildcard,
		Highlight: searchuc.HighlightConfig{
			Enabled: s.Highlight.Enabled,
			Field:   s.Highlight.Field,
			PreTag:  s.Highlight.PreTag,
			PostTag: s.Highlight.PostTag,
		},
		MaxChainHops:    s.MaxChainHops,
		AllVersionsSize: s.AllVersionsSize,
		Sections:        make(map[string]searchuc.SectionConfig, len(s.Sections)),
	}

	for name, sec := range s.Sections {
		groups := make([]searchuc.Group, 0, len(sec.Groups))
		for _, g := range sec.Groups {
			groups = append(groups, searchuc.Group{Field: g.Field, Label: g.Label})
		}
		aggs := make(map[string]query.Aggregation, len(sec.Aggregations))
		for k, a := range sec.Aggregations {
			if a.Terms.Size <= 0 {
				a.Terms.Size = defaultAggregationSize
			}
			aggs[k] = a
		}
		out.Sections[name] = searchuc.SectionConfig{
			Aggregations: aggs,
			Groups:       groups,
			LimitDays:    sec.LimitDays,
		}
	}

	for _, ct := range s.CompanyTypes {
		out.CompanyTypes = append(out.CompanyTypes, searchuc.CompanyType{
			ID:      ct.ID,
			Name:    ct.Name,
			Must:    ct.Must,
			MustNot: ct.MustNot,
		})
	}

	out.ApplyDefaults()
	return out
}

const defaultAggregationSize = 50
