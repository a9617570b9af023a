package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	domitem "github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
)

// store is the consumer interface for items (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error)
}

// Repo executes compiled search requests against the items index.
// Implements usecase/search.Index.
type Repo struct {
	store  store
	index  *db.IndexDefinition
	prefix string
	now    func() time.Time
}

// New creates an items repository. Items live under prefix; extra lists
// indexed fields beyond the built-in ones.
func New(s store, indexName, prefix string, extra []Field) (*Repo, error) {
	def, err := buildIndex(indexName, prefix, extra)
	if err != nil {
		return nil, err
	}
	return &Repo{store: s, index: def, prefix: prefix, now: time.Now}, nil
}

// Index returns the index definition.
func (r *Repo) Index() *db.IndexDefinition { return r.index }

// EnsureIndex creates the items index unless it exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.index.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index.Name, err)
	}
	if ok {
		return nil
	}
	if err := r.store.CreateIndex(ctx, r.index); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.index.Name, err)
	}
	return nil
}

// HealthCheck reports whether the items index is present.
func (r *Repo) HealthCheck(ctx context.Context) error {
	ok, err := r.store.IndexExists(ctx, r.index.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.index.Name, err)
	}
	if !ok {
		return fmt.Errorf("index %s: %w", r.index.Name, db.ErrIndexNotFound)
	}
	return nil
}

// Save stores items in one round-trip.
func (r *Repo) Save(ctx context.Context, items ...domitem.Item) error {
	batch := make([]db.JSONSetItem, 0, len(items))
	for i := range items {
		data, err := json.Marshal(buildJSONDoc(&items[i]))
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", items[i].ID(), err)
		}
		batch = append(batch, db.JSONSetItem{Key: itemKey(r.prefix, items[i].ID()), Path: "$", Data: data})
	}
	if err := r.store.JSONSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	return nil
}

// FindByID returns an item by id.
func (r *Repo) FindByID(ctx context.Context, id string) (domitem.Item, error) {
	key := itemKey(r.prefix, id)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domitem.Item{}, domain.ErrItemNotFound
		}
		return domitem.Item{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	m, err := parseDocument(string(raw))
	if err != nil {
		return domitem.Item{}, fmt.Errorf("item %s: %w", id, err)
	}
	return toItem(id, m, nil), nil
}

// HighlightingApplicable reports whether highlights can be produced for the
// request: the caller asks for them and the body is a full-text field.
func (r *Repo) HighlightingApplicable(req request.Request) bool {
	if !req.Args.Bool(request.ArgESHighlight, false) {
		return false
	}
	f, ok := r.index.Field(domitem.FieldBodyHTML)
	return ok && f.Type == db.IndexFieldText
}

// Search executes a compiled request. lookup entries become exact-match
// filters; projection limits the returned document fields.
func (r *Repo) Search(
	ctx context.Context, req *query.Request, lookup map[string]string, projection []string,
) (result.Result, error) {
	main := withLookup(req.Query, lookup)
	now := r.now()

	q := &db.SearchQuery{
		Index:        r.index,
		Query:        main,
		PostFilter:   req.PostFilter,
		Sort:         req.Sort,
		Offset:       req.From,
		Limit:        req.Size,
		ReturnFields: []string{"$"},
		Now:          now,
	}
	highlighted := r.highlightFields(req.Highlight)
	if len(highlighted) > 0 {
		q.ReturnFields = append(q.ReturnFields, aliases(highlighted)...)
		q.Highlight = &db.HighlightSpec{
			Fields:   aliases(highlighted),
			OpenTag:  firstOrEmpty(req.Highlight.PreTags),
			CloseTag: firstOrEmpty(req.Highlight.PostTags),
		}
	}

	res, err := r.store.Search(ctx, q)
	if err != nil {
		return result.Result{}, fmt.Errorf("search %s: %w", r.index.Name, err)
	}

	items := make([]domitem.Item, 0, len(res.Entries))
	for _, e := range res.Entries {
		m, err := parseDocument(e.Fields["$"])
		if err != nil {
			return result.Result{}, fmt.Errorf("hit %s: %w", e.Key, err)
		}
		it := toItem(trimPrefix(e.Key, r.prefix), m, projection)
		if h := entryHighlights(e, highlighted); len(h) > 0 {
			it = it.WithHighlights(h)
		}
		items = append(items, it)
	}

	aggs, err := r.aggregate(ctx, main, req.Aggs, now)
	if err != nil {
		return result.Result{}, err
	}
	return result.New(items, res.Total, aggs), nil
}

// aggregate runs one FT.AGGREGATE per terms aggregation, on the main query
// only so post filters do not narrow the counts.
func (r *Repo) aggregate(
	ctx context.Context, main *query.Clause, aggs map[string]query.Aggregation, now time.Time,
) (map[string]result.Aggregation, error) {
	if len(aggs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]result.Aggregation, len(aggs))
	for _, name := range names {
		a := aggs[name]
		rows, err := r.store.Aggregate(ctx, &db.AggregateQuery{
			Index: r.index,
			Query: main,
			Field: a.Terms.Field,
			Limit: a.Terms.Size,
			Now:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", name, err)
		}
		buckets := make([]result.Bucket, 0, len(rows))
		for _, row := range rows {
			buckets = append(buckets, result.Bucket{Key: row.Value, DocCount: row.Count})
		}
		out[name] = result.Aggregation{Buckets: buckets}
	}
	return out, nil
}

// highlightFields returns the requested fields the index can highlight, sorted.
func (r *Repo) highlightFields(h *query.Highlight) []string {
	if h == nil {
		return nil
	}
	var fields []string
	for name := range h.Fields {
		if f, ok := r.index.Field(name); ok && f.Type == db.IndexFieldText {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// withLookup ANDs exact-match lookup filters onto the compiled query.
func withLookup(c query.Clause, lookup map[string]string) *query.Clause {
	if len(lookup) == 0 {
		if c.IsZero() {
			return nil
		}
		return &c
	}
	keys := make([]string, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := query.NewBool()
	if !c.IsZero() {
		b.AddMust(c)
	}
	for _, k := range keys {
		b.AddMust(query.NewTerm(k, lookup[k]))
	}
	merged := query.NewBoolClause(b)
	return &merged
}

func entryHighlights(e db.SearchEntry, fields []string) map[string][]string {
	var out map[string][]string
	for _, name := range fields {
		v, ok := e.Fields[db.FieldAlias(name)]
		if !ok || v == "" {
			continue
		}
		if out == nil {
			out = make(map[string][]string, len(fields))
		}
		out[name] = []string{v}
	}
	return out
}

func aliases(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = db.FieldAlias(n)
	}
	return out
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func trimPrefix(key, prefix string) string {
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}
