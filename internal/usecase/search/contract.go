package search

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain/account"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
)

// Index executes compiled requests.
type Index interface {
	Search(ctx context.Context, req *query.Request, lookup map[string]string, projection []string) (result.Result, error)
	FindByID(ctx context.Context, id string) (item.Item, error)
	HighlightingApplicable(req request.Request) bool
}

// Accounts reads identities and their entitlements.
// Find methods return domain.ErrNotFound for unknown ids.
type Accounts interface {
	FindUser(ctx context.Context, id string) (*account.User, error)
	FindCompany(ctx context.Context, id string) (*account.Company, error)
	ProductsForCompany(
		ctx context.Context, companyID string, navigationIDs []string, section string,
	) ([]account.Product, error)
	ProductsForNavigation(ctx context.Context, navigationIDs []string, section string) ([]account.Product, error)
	FindProduct(ctx context.Context, id, section string) ([]account.Product, error)
}

// SectionFilters appends the saved filters of a section to a query.
type SectionFilters interface {
	Apply(ctx context.Context, b *query.Bool, section string, explicit []sectionfilter.Filter) error
}
