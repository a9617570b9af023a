package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Sort order values.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Sort is one sort key.
type Sort struct {
	Field string
	Order string
}

// MarshalJSON renders {"field": "order"}.
func (s Sort) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{s.Field: s.Order})
}

// UnmarshalJSON accepts "field", {"field": "desc"} and {"field": {"order": "desc"}}.
func (s *Sort) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Sort{Field: name, Order: OrderAsc}
		return nil
	}
	field, raw, err := singleField(data)
	if err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	var order string
	if err := json.Unmarshal(raw, &order); err != nil {
		var wrapped struct {
			Order string `json:"order"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return fmt.Errorf("sort %q: %w", field, err)
		}
		order = wrapped.Order
	}
	order = strings.ToLower(order)
	if order != OrderAsc && order != OrderDesc {
		return fmt.Errorf("sort %q: invalid order %q", field, order)
	}
	*s = Sort{Field: field, Order: order}
	return nil
}

// ParseSort accepts a JSON list of sort keys or a comma separated list where a
// leading "-" marks descending order ("-versioncreated,headline").
func ParseSort(s string) ([]Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var out []Sort
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []Sort
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, ok := strings.CutPrefix(part, "-"); ok {
			out = append(out, Sort{Field: name, Order: OrderDesc})
			continue
		}
		out = append(out, Sort{Field: part, Order: OrderAsc})
	}
	return out, nil
}

// Aggregation is a terms aggregation over one field.
type Aggregation struct {
	Terms TermsAggregation `json:"terms" yaml:"terms"`
}

// TermsAggregation buckets documents by the values of a field.
type TermsAggregation struct {
	Field string `json:"field" yaml:"field"`
	Size  int    `json:"size" yaml:"size"`
}

// Highlight asks the index to mark query terms in returned fields.
type Highlight struct {
	PreTags  []string                  `json:"pre_tags"`
	PostTags []string                  `json:"post_tags"`
	Fields   map[string]HighlightField `json:"fields"`
}

// HighlightField configures highlighting of one field.
type HighlightField struct {
	NumberOfFragments int     `json:"number_of_fragments"`
	HighlightQuery    *Clause `json:"highlight_query,omitempty"`
}

// Request is a compiled search request ready for dispatch.
type Request struct {
	Query      Clause                 `json:"query"`
	Sort       []Sort                 `json:"sort"`
	Size       int                    `json:"size"`
	From       int                    `json:"from"`
	Aggs       map[string]Aggregation `json:"aggs,omitempty"`
	Highlight  *Highlight             `json:"highlight,omitempty"`
	PostFilter *Clause                `json:"post_filter,omitempty"`
}

// BoolQuery returns the top-level bool query, or nil.
func (r *Request) BoolQuery() *Bool {
	return r.Query.Bool
}
