// Package account reads users, companies and products.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	domacc "github.com/kailas-cloud/newsdex/internal/domain/account"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// maxProducts bounds a single products lookup.
const maxProducts = 1000

// store is the consumer interface for account records (ISP).
type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Accounts.
type Repo struct {
	store    store
	prefix   string
	products *db.IndexDefinition
}

// New creates an account repository. Records live under prefix followed by
// "user:", "company:" or "product:".
func New(s store, prefix string) *Repo {
	return &Repo{
		store:  s,
		prefix: prefix,
		products: db.NewIndex(strings.TrimSuffix(prefix, ":")+":products").OnJSON().
			Prefix(prefix+"product:").
			JSONField("$.product_type", "product_type", db.IndexFieldTag).
			JSONField("$.companies[*]", "companies", db.IndexFieldTag).
			JSONField("$.navigations[*]", "navigations", db.IndexFieldTag).
			MustBuild(),
	}
}

// EnsureIndex creates the products index unless it exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.products.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.products.Name, err)
	}
	if ok {
		return nil
	}
	if err := r.store.CreateIndex(ctx, r.products); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.products.Name, err)
	}
	return nil
}

// FindUser returns a user by id, domain.ErrNotFound when absent.
func (r *Repo) FindUser(ctx context.Context, id string) (*domacc.User, error) {
	var u domacc.User
	if err := r.get(ctx, "user:", id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindCompany returns a company by id, domain.ErrNotFound when absent.
func (r *Repo) FindCompany(ctx context.Context, id string) (*domacc.Company, error) {
	var c domacc.Company
	if err := r.get(ctx, "company:", id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindProduct returns the enabled product with id if it belongs to section.
// The result has at most one element.
func (r *Repo) FindProduct(ctx context.Context, id, section string) ([]domacc.Product, error) {
	var p domacc.Product
	if err := r.get(ctx, "product:", id, &p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !p.IsEnabled || p.ProductType != section {
		return nil, nil
	}
	return []domacc.Product{p}, nil
}

// ProductsForCompany returns the enabled products of section provisioned for
// the company, narrowed to navigationIDs when given.
func (r *Repo) ProductsForCompany(
	ctx context.Context, companyID string, navigationIDs []string, section string,
) ([]domacc.Product, error) {
	b := query.NewBool()
	b.AddMust(query.NewTerm("product_type", section), query.NewTerm("companies", companyID))
	if len(navigationIDs) > 0 {
		b.AddMust(query.NewTerms("navigations", navigationIDs...))
	}
	return r.searchProducts(ctx, b)
}

// ProductsForNavigation returns the enabled products of section in any of
// the navigations.
func (r *Repo) ProductsForNavigation(
	ctx context.Context, navigationIDs []string, section string,
) ([]domacc.Product, error) {
	b := query.NewBool()
	b.AddMust(query.NewTerm("product_type", section), query.NewTerms("navigations", navigationIDs...))
	return r.searchProducts(ctx, b)
}

func (r *Repo) searchProducts(ctx context.Context, b *query.Bool) ([]domacc.Product, error) {
	q := query.NewBoolClause(b)
	res, err := r.store.Search(ctx, &db.SearchQuery{
		Index:        r.products,
		Query:        &q,
		Limit:        maxProducts,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	products := make([]domacc.Product, 0, len(res.Entries))
	for _, e := range res.Entries {
		var p domacc.Product
		if err := decode(e.Fields["$"], &p); err != nil {
			return nil, fmt.Errorf("product %s: %w", e.Key, err)
		}
		if p.ID == "" {
			p.ID = strings.TrimPrefix(e.Key, r.prefix+"product:")
		}
		if p.IsEnabled {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *Repo) get(ctx context.Context, kind, id string, dst any) error {
	if id == "" {
		return fmt.Errorf("%s%q: %w", kind, id, domain.ErrNotFound)
	}
	key := r.prefix + kind + id
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("json.get %s: %w", key, err)
	}
	if err := decode(string(raw), dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// decode reads a single JSON document, unwrapping the array JSON.GET "$" returns.
func decode(raw string, dst any) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if len(arr) == 0 {
			return fmt.Errorf("empty document")
		}
		raw = string(arr[0])
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
