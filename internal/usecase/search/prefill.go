package search

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/account"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
)

func (s *Service) prefillArgs(_ context.Context, qc *Context) error {
	qc.Args = qc.Request.Args.Clone()
	qc.Projection = slices.Clone(qc.Request.Projection)
	return nil
}

func (s *Service) prefillLookup(_ context.Context, qc *Context) error {
	qc.Lookup = maps.Clone(qc.Request.Lookup)
	return nil
}

func (s *Service) prefillPage(_ context.Context, qc *Context) error {
	switch {
	case qc.Args.Has(request.ArgSort):
		sorts, err := query.ParseSort(qc.Args.String(request.ArgSort))
		if err != nil {
			return domain.NewParameterError(request.ArgSort, err.Error())
		}
		qc.Sort = sorts
	case len(qc.Request.Sort) > 0:
		qc.Sort = slices.Clone(qc.Request.Sort)
	}
	if len(qc.Sort) == 0 {
		qc.Sort = slices.Clone(s.cfg.DefaultSort)
	}

	size, ok, err := qc.Args.Int(request.ArgSize)
	switch {
	case err != nil:
		return domain.NewParameterError(request.ArgSize, "must be an integer")
	case !ok || size == 0:
		size = s.cfg.DefaultPageSize
	case size < 0 || size > domain.MaxResultWindow:
		return domain.NewParameterError(request.ArgSize, fmt.Sprintf("must be between 0 and %d", domain.MaxResultWindow))
	}
	qc.Size = size

	from, _, err := qc.Args.Int(request.ArgFrom)
	if err != nil {
		return domain.NewParameterError(request.ArgFrom, "must be an integer")
	}
	if from < 0 {
		return domain.NewParameterError(request.ArgFrom, "must not be negative")
	}
	qc.From = from
	return nil
}

// prefillUser resolves the requester. Administrators may preview another
// user's view through the user argument.
func (s *Service) prefillUser(ctx context.Context, qc *Context) error {
	current, err := s.findUser(ctx, qc.Request.UserID)
	if err != nil {
		return err
	}
	qc.User = current
	qc.IsAdmin = current.IsAdmin()

	if qc.IsAdmin && qc.Args.Has(request.ArgUser) {
		impersonated, err := s.findUser(ctx, qc.Args.String(request.ArgUser))
		if err != nil {
			return err
		}
		qc.User = impersonated
		qc.IsAdmin = impersonated.IsAdmin()
	}
	return nil
}

func (s *Service) findUser(ctx context.Context, id string) (*account.User, error) {
	if id == "" {
		return nil, nil
	}
	u, err := s.accounts.FindUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !u.IsEnabled {
		return nil, nil
	}
	return u, nil
}

func (s *Service) prefillCompany(ctx context.Context, qc *Context) error {
	if qc.User == nil || qc.User.CompanyID == "" {
		return nil
	}
	c, err := s.accounts.FindCompany(ctx, qc.User.CompanyID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find company: %w", err)
	}
	if c.IsEnabled {
		qc.Company = c
	}
	return nil
}

func (s *Service) prefillSection(_ context.Context, qc *Context) error {
	qc.Section = qc.Args.String(request.ArgSection)
	if qc.Section == "" {
		qc.Section = s.cfg.DefaultSection
	}
	return nil
}

func (s *Service) prefillNavigation(_ context.Context, qc *Context) error {
	ids, _, err := qc.Args.List(request.ArgNavigation)
	if err != nil {
		return domain.NewParameterError(request.ArgNavigation, "Invalid navigation parameter")
	}
	qc.NavigationIDs = ids
	return nil
}

func (s *Service) prefillProducts(ctx context.Context, qc *Context) error {
	requested, _, err := qc.Args.List(request.ArgRequestedProducts)
	if err != nil {
		return domain.NewParameterError(request.ArgRequestedProducts, "Invalid requested_products parameter")
	}
	qc.RequestedProducts = requested

	products, err := s.entitledProducts(ctx, qc)
	if err != nil {
		return err
	}
	qc.Products = products
	return nil
}

// prefillItems seeds the exclusions every search carries: composites never
// match, and only chain heads match unless all versions are asked for.
func (s *Service) prefillItems(_ context.Context, qc *Context) error {
	qc.Query.AddMustNot(query.NewTerm(item.FieldType, item.TypeComposite))
	qc.Query.AddMust(query.NewTerm("_type", "items"))
	if !qc.Args.Bool(request.ArgIgnoreLatest, false) {
		qc.Query.AddMustNot(query.NewConstantScore(query.NewExists(item.FieldNextVersion)))
	}
	return nil
}

func (s *Service) prefillHighlights(_ context.Context, qc *Context) error {
	q := qc.Args.String(request.ArgQ)
	if q == "" || !s.cfg.Highlight.Enabled || !s.index.HighlightingApplicable(qc.Request.WithArgs(qc.Args)) {
		return nil
	}
	hq := query.NewQueryString(query.QueryString{
		Query:           q,
		DefaultOperator: "AND",
		AnalyzeWildcard: s.cfg.AnalyzeWildcard,
		Lenient:         true,
	})
	qc.Highlight = &query.Highlight{
		PreTags:  []string{s.cfg.Highlight.PreTag},
		PostTags: []string{s.cfg.Highlight.PostTag},
		Fields: map[string]query.HighlightField{
			s.cfg.Highlight.Field: {NumberOfFragments: 0, HighlightQuery: &hq},
		},
	}
	return nil
}

func (s *Service) validate(_ context.Context, qc *Context) error {
	if qc.IsAdmin {
		return nil
	}
	switch {
	case qc.Company == nil:
		return domain.NewForbidden("User does not belong to a company.")
	case len(qc.Products) == 0:
		return domain.NewForbidden("Your company doesn't have any products defined.")
	}
	entitled := account.ProductIDs(qc.Products)
	for _, id := range qc.RequestedProducts {
		if !slices.Contains(entitled, id) {
			return domain.NewNotFound("Invalid product parameter")
		}
	}
	return nil
}
