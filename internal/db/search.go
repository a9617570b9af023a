package db

import (
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// SearchQuery is the input for a bool-query search over an FT index.
type SearchQuery struct {
	Index *IndexDefinition
	// Query selects the documents; nil matches everything.
	Query *query.Clause
	// PostFilter narrows hits only, never aggregations.
	PostFilter *query.Clause
	Sort       []query.Sort
	Offset     int
	Limit      int
	// ReturnFields are FT field names returned next to the raw document.
	ReturnFields []string
	Highlight    *HighlightSpec
	// Now anchors date math ("now-7d/d"); zero means time.Now().
	Now time.Time
}

// HighlightSpec asks FT.SEARCH to wrap matched terms of the given fields.
type HighlightSpec struct {
	Fields   []string
	OpenTag  string
	CloseTag string
}

// AggregateQuery counts documents per value of one field.
type AggregateQuery struct {
	Index *IndexDefinition
	Query *query.Clause
	Field string
	Limit int
	Now   time.Time
}

// AggregateRow is a single group of an aggregation.
type AggregateRow struct {
	Value string
	Count int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
