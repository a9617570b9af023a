package sectionfilter

import (
	"context"

	domsf "github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
)

// Repository reads stored section filters.
type Repository interface {
	ForSection(ctx context.Context, section string) ([]domsf.Filter, error)
}
