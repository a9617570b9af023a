package result

import "github.com/kailas-cloud/newsdex/internal/domain/item"

// Bucket is one value of a terms aggregation with its document count.
type Bucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

// Aggregation holds the buckets of one terms aggregation.
type Aggregation struct {
	Buckets []Bucket `json:"buckets"`
}

// Result is one page of search hits.
type Result struct {
	items        []item.Item
	total        int
	aggregations map[string]Aggregation
	matchedIDs   []string
}

// New creates a search result page.
func New(items []item.Item, total int, aggs map[string]Aggregation) Result {
	return Result{items: items, total: total, aggregations: aggs}
}

// Items returns the hits of this page.
func (r *Result) Items() []item.Item { return r.items }

// Total returns the number of documents matching the query.
func (r *Result) Total() int { return r.total }

// Aggregations returns the terms aggregations, nil when not requested.
func (r *Result) Aggregations() map[string]Aggregation { return r.aggregations }

// MatchedIDs returns the ids of the revisions that matched an all-versions
// query before chain resolution. Nil for latest-only searches.
func (r *Result) MatchedIDs() []string { return r.matchedIDs }

// WithMatchedIDs returns a copy annotated with matched revision ids.
func (r *Result) WithMatchedIDs(ids []string) Result {
	c := *r
	c.matchedIDs = ids
	return c
}

// IDs returns the ids of the hits in order.
func (r *Result) IDs() []string {
	ids := make([]string, 0, len(r.items))
	for i := range r.items {
		ids = append(ids, r.items[i].ID())
	}
	return ids
}
