package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/mode"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/logger"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// Service compiles search requests, enforces entitlements and executes them.
type Service struct {
	index    Index
	accounts Accounts
	sections SectionFilters
	chains   *ChainResolver
	cfg      Config
}

// New creates a search service. cfg is copied and read-only afterwards.
func New(index Index, accounts Accounts, sections SectionFilters, cfg Config) *Service {
	cfg.ApplyDefaults()
	return &Service{
		index:    index,
		accounts: accounts,
		sections: sections,
		chains:   NewChainResolver(index, cfg.MaxChainHops),
		cfg:      cfg,
	}
}

// Chains returns the version chain resolver.
func (s *Service) Chains() *ChainResolver { return s.chains }

// Groups returns the aggregation groups shown for section.
func (s *Service) Groups(section string) []Group {
	if section == "" {
		section = s.cfg.DefaultSection
	}
	return slices.Clone(s.cfg.section(section).Groups)
}

// Compile runs the pipeline without touching the index. The returned request
// is owned by the returned context.
func (s *Service) Compile(ctx context.Context, req request.Request) (*query.Request, *Context, error) {
	start := time.Now()
	qc := newContext(req)
	err := runStages(ctx, qc, s.prefillStages(), s.validateStages(), s.filterStages(), s.compileStages())
	metrics.SearchCompileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, qc, err
	}
	return &qc.Source, qc, nil
}

// Search returns one page of the latest revisions matching req.
func (s *Service) Search(ctx context.Context, req request.Request) (res result.Result, err error) {
	section := s.sectionOf(req)
	defer func() { s.observe(ctx, section, mode.Latest, err) }()

	src, qc, err := s.Compile(ctx, req)
	if err != nil {
		return result.Result{}, err
	}
	res, err = s.index.Search(ctx, src, qc.Lookup, qc.Projection)
	if err != nil {
		return result.Result{}, fmt.Errorf("search items: %w", err)
	}
	return res, nil
}

// SearchAllVersions matches any revision and returns the chain heads of the
// matches, paginated as the caller asked. The result lists the ids of the
// revisions that matched.
func (s *Service) SearchAllVersions(ctx context.Context, req request.Request) (res result.Result, err error) {
	section := s.sectionOf(req)
	defer func() { s.observe(ctx, section, mode.AllVersions, err) }()

	// The caller's page is checked before the candidate pass resets it.
	qc := newContext(req)
	if err := runStages(ctx, qc, s.prefillStages(), s.validateStages()); err != nil {
		return result.Result{}, err
	}
	if err := checkPage(qc); err != nil {
		return result.Result{}, fmt.Errorf("page: %w", err)
	}

	matched, heads, err := s.matchAllVersions(ctx, req)
	if err != nil {
		return result.Result{}, err
	}

	qc.Query = query.NewBool()
	qc.Query.AddMust(query.NewTerms(item.FieldID, heads...))
	qc.PostFilter = nil
	if err := runStages(ctx, qc, s.compileStages()); err != nil {
		return result.Result{}, err
	}

	res, err = s.index.Search(ctx, &qc.Source, qc.Lookup, qc.Projection)
	if err != nil {
		return result.Result{}, fmt.Errorf("search chain heads: %w", err)
	}
	return res.WithMatchedIDs(matched), nil
}

// matchAllVersions gathers every matching revision and resolves the heads of
// their chains, deduplicated in first-seen order.
func (s *Service) matchAllVersions(ctx context.Context, req request.Request) (matched, heads []string, err error) {
	args := req.Args.Clone()
	args[request.ArgIgnoreLatest] = true
	args[request.ArgSize] = s.cfg.AllVersionsSize
	args[request.ArgFrom] = 0
	args[request.ArgAggs] = false

	src, qc, err := s.Compile(ctx, req.WithArgs(args))
	if err != nil {
		return nil, nil, err
	}
	candidates, err := s.index.Search(ctx, src, qc.Lookup, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("search revisions: %w", err)
	}

	matched = candidates.IDs()
	seen := make(map[string]struct{}, len(matched))
	heads = make([]string, 0, len(matched))
	for _, it := range candidates.Items() {
		head, err := s.chains.ResolveLatest(ctx, it)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[head.ID()]; dup {
			continue
		}
		seen[head.ID()] = struct{}{}
		heads = append(heads, head.ID())
	}
	return matched, heads, nil
}

func (s *Service) sectionOf(req request.Request) string {
	if section := req.Args.String(request.ArgSection); section != "" {
		return section
	}
	return s.cfg.DefaultSection
}

func (s *Service) observe(ctx context.Context, section string, m mode.Mode, err error) {
	o := outcome(err)
	metrics.SearchRequestsTotal.WithLabelValues(section, string(m), o).Inc()
	if err == nil {
		return
	}
	log := logger.FromContext(ctx)
	fields := []zap.Field{zap.String("section", section), zap.String("mode", string(m)), zap.Error(err)}
	if o == "error" {
		log.Error("search failed", fields...)
		return
	}
	log.Info("search rejected", append(fields, zap.String("outcome", o))...)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, db.ErrUnsupportedQuery):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrLimitExceeded):
		return "limit_exceeded"
	default:
		return "error"
	}
}
