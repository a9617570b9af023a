package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/account"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// entitledProducts computes the products visible to the requester in the
// section. For administrators an empty result means no restriction.
func (s *Service) entitledProducts(ctx context.Context, qc *Context) ([]account.Product, error) {
	if qc.IsAdmin {
		return s.adminProducts(ctx, qc)
	}
	if qc.Company == nil {
		return nil, nil
	}

	if id := qc.productID(); id != "" {
		found, err := s.accounts.FindProduct(ctx, id, qc.Section)
		if err != nil {
			return nil, fmt.Errorf("find product: %w", err)
		}
		provisioned := make([]account.Product, 0, len(found))
		for i := range found {
			if found[i].ProvisionedTo(qc.Company.ID) {
				provisioned = append(provisioned, found[i])
			}
		}
		return provisioned, nil
	}

	products, err := s.accounts.ProductsForCompany(ctx, qc.Company.ID, qc.NavigationIDs, qc.Section)
	if err != nil {
		return nil, fmt.Errorf("company products: %w", err)
	}
	return products, nil
}

func (s *Service) adminProducts(ctx context.Context, qc *Context) ([]account.Product, error) {
	if len(qc.NavigationIDs) > 0 {
		products, err := s.accounts.ProductsForNavigation(ctx, qc.NavigationIDs, qc.Section)
		if err != nil {
			return nil, fmt.Errorf("navigation products: %w", err)
		}
		return products, nil
	}

	id := qc.productID()
	if id == "" {
		return nil, nil
	}
	products, err := s.accounts.FindProduct(ctx, id, qc.Section)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if len(products) == 0 {
		return nil, domain.NewNotFound("Invalid product parameter")
	}
	return products, nil
}

// unrestricted reports an administrator searching without a product scope.
func (qc *Context) unrestricted() bool {
	return qc.IsAdmin && len(qc.NavigationIDs) == 0 && qc.productID() == ""
}

// applyProductsFilter ORs the entitled products: one terms clause over product
// codes plus a query_string per stored product query.
func (s *Service) applyProductsFilter(_ context.Context, qc *Context) error {
	if qc.unrestricted() {
		return nil
	}

	var codes []string
	for i := range qc.Products {
		if code := qc.Products[i].SDProductID; code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) > 0 {
		qc.Query.AddShould(query.NewTerms(item.FieldProductsCode, codes...))
	}

	for i := range qc.Products {
		p := &qc.Products[i]
		if p.Query == "" {
			continue
		}
		if len(qc.RequestedProducts) > 0 && !qc.requested(p.ID) {
			continue
		}
		qc.Query.AddShould(query.NewQueryString(query.QueryString{
			Query:           p.Query,
			DefaultOperator: "AND",
			AnalyzeWildcard: s.cfg.AnalyzeWildcard,
			Lenient:         true,
		}))
	}

	// Products without codes or queries must not widen the search to everything.
	if len(qc.Query.Should) == 0 {
		qc.Query.AddMust(query.NewTerms(item.FieldProductsCode))
	}
	return nil
}
