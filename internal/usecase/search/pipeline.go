package search

import (
	"context"
	"fmt"
)

// stage is one named step of the pipeline. Stages read what earlier stages
// wrote and own the Context fields they set.
type stage struct {
	name string
	run  func(ctx context.Context, qc *Context) error
}

// prefillStages derive request state. Order matters: identity before
// company, navigation before products, exclusions before any filter.
func (s *Service) prefillStages() []stage {
	return []stage{
		{"args", s.prefillArgs},
		{"lookup", s.prefillLookup},
		{"page", s.prefillPage},
		{"user", s.prefillUser},
		{"company", s.prefillCompany},
		{"section", s.prefillSection},
		{"navigation", s.prefillNavigation},
		{"products", s.prefillProducts},
		{"items", s.prefillItems},
		{"highlights", s.prefillHighlights},
	}
}

func (s *Service) validateStages() []stage {
	return []stage{
		{"validate", s.validate},
	}
}

// filterStages append clauses to the bool query.
func (s *Service) filterStages() []stage {
	return []stage{
		{"section_filter", s.applySectionFilter},
		{"company_filter", s.applyCompanyFilter},
		{"time_limit_filter", s.applyTimeLimitFilter},
		{"products_filter", s.applyProductsFilter},
		{"request_filter", s.applyRequestFilter},
		{"should_match", s.applyMinimumShouldMatch},
	}
}

func (s *Service) compileStages() []stage {
	return []stage{
		{"compile", s.compile},
	}
}

// runStages runs stages in order and stops at the first error.
func runStages(ctx context.Context, qc *Context, groups ...[]stage) error {
	for _, stages := range groups {
		for _, st := range stages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := st.run(ctx, qc); err != nil {
				return fmt.Errorf("%s: %w", st.name, err)
			}
		}
	}
	return nil
}
