package search

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
	startOfDay     = "00:00:00"
	endOfDay       = "23:59:59"
)

func (s *Service) applySectionFilter(ctx context.Context, qc *Context) error {
	if err := s.sections.Apply(ctx, qc.Query, qc.Section, qc.Request.SectionFilters); err != nil {
		return fmt.Errorf("apply section filters: %w", err)
	}
	return nil
}

func (s *Service) applyCompanyFilter(_ context.Context, qc *Context) error {
	if qc.IsAdmin || qc.Company == nil || qc.Company.CompanyType == "" {
		return nil
	}
	ct, ok := s.cfg.companyType(qc.Company.CompanyType)
	if !ok {
		return nil
	}
	if c, ok := ct.Must[qc.Section]; ok && !c.IsZero() {
		qc.Query.AddMust(c)
	}
	if c, ok := ct.MustNot[qc.Section]; ok && !c.IsZero() {
		qc.Query.AddMustNot(c)
	}
	return nil
}

func (s *Service) applyTimeLimitFilter(_ context.Context, qc *Context) error {
	if qc.IsAdmin {
		return nil
	}
	days := s.cfg.section(qc.Section).LimitDays
	if days <= 0 || (qc.Company != nil && qc.Company.ArchiveAccess) {
		return nil
	}
	qc.Query.AddMust(query.NewRange(query.Range{
		Field: item.FieldVersionCreated,
		GTE:   fmt.Sprintf("now-%dd/d", days),
	}))
	return nil
}

// applyRequestFilter merges the caller's free text, structured filter and
// date range. Filter and dates go to the post filter in post filter mode.
func (s *Service) applyRequestFilter(_ context.Context, qc *Context) error {
	if q := qc.Args.String(request.ArgQ); q != "" {
		op := strings.ToUpper(qc.Args.String(request.ArgDefaultOperator))
		if op == "" {
			op = "AND"
		}
		qc.Query.AddMust(query.NewQueryString(query.QueryString{
			Query:           q,
			DefaultOperator: op,
			AnalyzeWildcard: s.cfg.AnalyzeWildcard,
			Lenient:         true,
		}))
	}

	target := qc.Query
	if s.cfg.PostFilter {
		qc.PostFilter = query.NewBool()
		target = qc.PostFilter
	}

	filters, err := s.requestFilters(qc)
	if err != nil {
		return err
	}
	target.AddMust(filters...)

	dates, err := createdRange(qc.Args)
	if err != nil {
		return err
	}
	if dates != nil {
		target.AddMust(*dates)
	}

	if s.cfg.PostFilter && qc.PostFilter.IsEmpty() {
		qc.PostFilter = nil
	}
	return nil
}

func (s *Service) requestFilters(qc *Context) ([]query.Clause, error) {
	filter, ok, err := qc.Args.Object(request.ArgFilter)
	if err != nil {
		return nil, domain.NewParameterError(request.ArgFilter, "Incorrect type supplied for filter parameter")
	}
	if !ok || len(filter) == 0 {
		return nil, nil
	}

	if !s.cfg.FilterAggregations {
		raw, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		var c query.Clause
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, domain.NewParameterError(request.ArgFilter, err.Error())
		}
		return []query.Clause{c}, nil
	}

	aggs := s.cfg.section(qc.Section).Aggregations
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	clauses := make([]query.Clause, 0, len(keys))
	for _, key := range keys {
		agg, ok := aggs[key]
		if !ok {
			return nil, domain.NewParameterError(request.ArgFilter, fmt.Sprintf("unknown filter %q", key))
		}
		values, err := query.ParseValues(filter[key])
		if err != nil {
			return nil, domain.NewParameterError(request.ArgFilter, fmt.Sprintf("%s: %v", key, err))
		}
		if len(values) == 0 {
			continue
		}
		clauses = append(clauses, query.NewTerms(agg.Terms.Field, values...))
	}
	return clauses, nil
}

// createdRange converts created_from/created_to, given in the caller's local
// time, to a UTC range on versioncreated. Date math values pass through.
func createdRange(args request.Args) (*query.Clause, error) {
	from := args.String(request.ArgCreatedFrom)
	to := args.String(request.ArgCreatedTo)
	if from == "" && to == "" {
		return nil, nil
	}

	offset, _, err := args.Int(request.ArgTimezoneOffset)
	if err != nil {
		return nil, domain.NewParameterError(request.ArgTimezoneOffset, "must be an integer number of minutes")
	}

	r := query.Range{Field: item.FieldVersionCreated}
	if from != "" {
		fromTime := args.String(request.ArgCreatedFromTime)
		if fromTime == "" {
			fromTime = startOfDay
		}
		if r.GTE, err = localToUTC(from, fromTime, offset); err != nil {
			return nil, domain.NewParameterError(request.ArgCreatedFrom, err.Error())
		}
	}
	if to != "" {
		if r.LTE, err = localToUTC(to, endOfDay, offset); err != nil {
			return nil, domain.NewParameterError(request.ArgCreatedTo, err.Error())
		}
	}
	c := query.NewRange(r)
	return &c, nil
}

// localToUTC shifts date at clock by offset minutes, where UTC = local + offset.
func localToUTC(date, clock string, offset int) (string, error) {
	if strings.HasPrefix(date, "now") {
		return date, nil
	}
	t, err := time.Parse(dateTimeLayout, date+"T"+clock)
	if err != nil {
		if _, derr := time.Parse(dateLayout, date); derr != nil {
			return "", fmt.Errorf("expected %s", dateLayout)
		}
		return "", fmt.Errorf("invalid time %q", clock)
	}
	return t.Add(time.Duration(offset) * time.Minute).Format(dateTimeLayout), nil
}

func (s *Service) applyMinimumShouldMatch(_ context.Context, qc *Context) error {
	if len(qc.Query.Should) > 0 {
		qc.Query.SetMinimumShouldMatch(1)
	}
	return nil
}
