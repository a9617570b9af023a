package search

import (
	"context"
	"slices"
	"sync"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/account"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
)

// --- index mock ---

type mockIndex struct {
	mu        sync.Mutex
	items     map[string]item.Item
	searches  []*query.Request
	searchFn  func(req *query.Request) (result.Result, error)
	findErr   error
	highlight bool
}

func newMockIndex(items ...item.Item) *mockIndex {
	m := &mockIndex{items: make(map[string]item.Item)}
	for _, it := range items {
		m.items[it.ID()] = it
	}
	return m
}

func (m *mockIndex) Search(_ context.Context, req *query.Request, _ map[string]string, _ []string) (result.Result, error) {
	m.mu.Lock()
	m.searches = append(m.searches, req)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(req)
	}
	return result.New(nil, 0, nil), nil
}

func (m *mockIndex) FindByID(_ context.Context, id string) (item.Item, error) {
	if m.findErr != nil {
		return item.Item{}, m.findErr
	}
	it, ok := m.items[id]
	if !ok {
		return item.Item{}, domain.ErrItemNotFound
	}
	return it, nil
}

func (m *mockIndex) HighlightingApplicable(req request.Request) bool {
	return m.highlight && req.Args.Bool(request.ArgESHighlight, false)
}

func (m *mockIndex) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}

// --- accounts mock ---

type mockAccounts struct {
	users     map[string]*account.User
	companies map[string]*account.Company
	products  []account.Product
}

func (m *mockAccounts) FindUser(_ context.Context, id string) (*account.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockAccounts) FindCompany(_ context.Context, id string) (*account.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockAccounts) ProductsForCompany(
	_ context.Context, companyID string, navigationIDs []string, section string,
) ([]account.Product, error) {
	var out []account.Product
	for _, p := range m.products {
		if p.ProductType != section || !p.ProvisionedTo(companyID) {
			continue
		}
		if len(navigationIDs) > 0 && !inAny(p.Navigations, navigationIDs) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockAccounts) ProductsForNavigation(
	_ context.Context, navigationIDs []string, section string,
) ([]account.Product, error) {
	var out []account.Product
	for _, p := range m.products {
		if p.ProductType == section && inAny(p.Navigations, navigationIDs) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockAccounts) FindProduct(_ context.Context, id, section string) ([]account.Product, error) {
	for _, p := range m.products {
		if p.ID == id && p.ProductType == section {
			return []account.Product{p}, nil
		}
	}
	return nil, nil
}

func inAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// --- section filters mock ---

type mockSections struct {
	calls []string
	must  []query.Clause
}

func (m *mockSections) Apply(_ context.Context, b *query.Bool, section string, _ []sectionfilter.Filter) error {
	m.calls = append(m.calls, section)
	b.AddMust(m.must...)
	return nil
}

// --- fixtures ---

const (
	adminID   = "u-admin"
	editorID  = "u-editor"
	noCompID  = "u-nocompany"
	emptyID   = "u-empty"
	companyID = "c-1"
	emptyCoID = "c-empty"
)

func fixtureAccounts() *mockAccounts {
	return &mockAccounts{
		users: map[string]*account.User{
			adminID:  {ID: adminID, UserType: account.UserTypeAdministrator, IsEnabled: true},
			editorID: {ID: editorID, UserType: "public", CompanyID: companyID, IsEnabled: true},
			noCompID: {ID: noCompID, UserType: "public", IsEnabled: true},
			emptyID:  {ID: emptyID, UserType: "public", CompanyID: emptyCoID, IsEnabled: true},
		},
		companies: map[string]*account.Company{
			companyID: {ID: companyID, Name: "Press", CompanyType: "broadcaster", IsEnabled: true},
			emptyCoID: {ID: emptyCoID, Name: "Empty", IsEnabled: true},
		},
		products: []account.Product{
			{
				ID: "p1", Name: "Politics", SDProductID: "C1", ProductType: "wire",
				Companies: []string{companyID}, Navigations: []string{"n1"}, IsEnabled: true,
			},
			{
				ID: "p2", Name: "Sports", Query: "category:sports", ProductType: "wire",
				Companies: []string{companyID}, Navigations: []string{"n2"}, IsEnabled: true,
			},
			{
				ID: "p3", Name: "Other", SDProductID: "C3", ProductType: "wire",
				Companies: []string{"c-other"}, Navigations: []string{"n1"}, IsEnabled: true,
			},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Sections = map[string]SectionConfig{
		"wire": {
			Aggregations: map[string]query.Aggregation{
				"genre":   {Terms: query.TermsAggregation{Field: "genre.name", Size: 50}},
				"service": {Terms: query.TermsAggregation{Field: "service.name", Size: 50}},
			},
			Groups: []Group{{Field: "genre", Label: "Genre"}},
		},
	}
	return cfg
}

func newTestService(index *mockIndex, cfg Config) (*Service, *mockSections) {
	sections := &mockSections{}
	return New(index, fixtureAccounts(), sections, cfg), sections
}

func newRequest(userID string, args request.Args) request.Request {
	if args == nil {
		args = request.Args{}
	}
	return request.Request{UserID: userID, Args: args}
}

func chainItem(id, originalID, next string) item.Item {
	fields := map[string]any{item.FieldType: item.TypeText}
	if originalID != "" {
		fields[item.FieldOriginalID] = originalID
	}
	if next != "" {
		fields[item.FieldNextVersion] = next
	}
	return item.Reconstruct(id, fields)
}
