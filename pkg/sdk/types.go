package newsdex

import (
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
)

// SearchRequest is a search on behalf of a user.
type SearchRequest struct {
	UserID string
	// Args are the request arguments: section, q, filter, created_from,
	// created_to, timezone_offset, sort, size, from, navigation, product,
	// requested_products, aggs, es_highlight.
	Args map[string]any
	// Projection lists the item fields to return; empty returns all.
	Projection []string
	// Lookup adds exact-match field constraints.
	Lookup map[string]string
}

// Item is one story revision.
type Item struct {
	ID         string
	Fields     map[string]any
	Highlights map[string][]string
}

// Bucket is one aggregation value.
type Bucket struct {
	Key   string
	Count int
}

// Result is one page of search hits.
type Result struct {
	Items        []Item
	Total        int
	Aggregations map[string][]Bucket
	// MatchedIDs lists the revisions that matched an all-versions search.
	MatchedIDs []string
}

func (r *SearchRequest) toDomain() (request.Request, error) {
	req, err := request.New(r.UserID, request.Args(r.Args).Clone())
	if err != nil {
		return request.Request{}, err
	}
	req.Projection = r.Projection
	req.Lookup = r.Lookup
	return req, nil
}

func resultFromDomain(res *result.Result) Result {
	out := Result{
		Items:      make([]Item, 0, len(res.Items())),
		Total:      res.Total(),
		MatchedIDs: res.MatchedIDs(),
	}
	for _, it := range res.Items() {
		out.Items = append(out.Items, itemFromDomain(&it))
	}
	if aggs := res.Aggregations(); aggs != nil {
		out.Aggregations = make(map[string][]Bucket, len(aggs))
		for name, agg := range aggs {
			buckets := make([]Bucket, 0, len(agg.Buckets))
			for _, b := range agg.Buckets {
				buckets = append(buckets, Bucket{Key: b.Key, Count: b.DocCount})
			}
			out.Aggregations[name] = buckets
		}
	}
	return out
}

func itemFromDomain(it *item.Item) Item {
	return Item{
		ID:         it.ID(),
		Fields:     it.Fields(),
		Highlights: it.Highlights(),
	}
}
