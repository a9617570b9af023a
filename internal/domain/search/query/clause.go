package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Clause is a single query DSL clause. Exactly one of the fields is set.
type Clause struct {
	Term          *Term
	Terms         *Terms
	Range         *Range
	Exists        *Exists
	QueryString   *QueryString
	ConstantScore *Clause
	Bool          *Bool
}

// Term matches documents whose field equals value exactly.
type Term struct {
	Field string
	Value string
}

// Terms matches documents whose field equals any of the values.
type Terms struct {
	Field  string
	Values []string
}

// Range bounds a field. Values are numbers, dates or date math ("now-7d/d").
type Range struct {
	Field string
	GT    string
	GTE   string
	LT    string
	LTE   string
}

// Exists matches documents that carry a value for field.
type Exists struct {
	Field string
}

// QueryString is a free-text query in the index query syntax.
type QueryString struct {
	Query           string
	DefaultOperator string
	AnalyzeWildcard bool
	Lenient         bool
}

// NewTerm creates a term clause.
func NewTerm(field, value string) Clause {
	return Clause{Term: &Term{Field: field, Value: value}}
}

// NewTerms creates a terms clause.
func NewTerms(field string, values ...string) Clause {
	return Clause{Terms: &Terms{Field: field, Values: values}}
}

// NewRange creates a range clause.
func NewRange(r Range) Clause {
	return Clause{Range: &r}
}

// NewExists creates an exists clause.
func NewExists(field string) Clause {
	return Clause{Exists: &Exists{Field: field}}
}

// NewQueryString creates a query_string clause.
func NewQueryString(qs QueryString) Clause {
	return Clause{QueryString: &qs}
}

// NewConstantScore wraps a filter in a constant_score clause.
func NewConstantScore(filter Clause) Clause {
	return Clause{ConstantScore: &filter}
}

// NewBoolClause wraps a bool query in a clause.
func NewBoolClause(b *Bool) Clause {
	return Clause{Bool: b}
}

// IsZero reports whether no clause kind is set.
func (c Clause) IsZero() bool {
	return c.Term == nil && c.Terms == nil && c.Range == nil && c.Exists == nil &&
		c.QueryString == nil && c.ConstantScore == nil && c.Bool == nil
}

// MarshalJSON renders the clause in the index query DSL.
func (c Clause) MarshalJSON() ([]byte, error) {
	switch {
	case c.Term != nil:
		return json.Marshal(map[string]any{"term": map[string]string{c.Term.Field: c.Term.Value}})
	case c.Terms != nil:
		values := c.Terms.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(map[string]any{"terms": map[string][]string{c.Terms.Field: values}})
	case c.Range != nil:
		bounds := make(map[string]string, 2)
		for op, v := range map[string]string{"gt": c.Range.GT, "gte": c.Range.GTE, "lt": c.Range.LT, "lte": c.Range.LTE} {
			if v != "" {
				bounds[op] = v
			}
		}
		return json.Marshal(map[string]any{"range": map[string]any{c.Range.Field: bounds}})
	case c.Exists != nil:
		return json.Marshal(map[string]any{"exists": map[string]string{"field": c.Exists.Field}})
	case c.QueryString != nil:
		qs := map[string]any{
			"query":            c.QueryString.Query,
			"default_operator": c.QueryString.DefaultOperator,
			"analyze_wildcard": c.QueryString.AnalyzeWildcard,
			"lenient":          c.QueryString.Lenient,
		}
		return json.Marshal(map[string]any{"query_string": qs})
	case c.ConstantScore != nil:
		return json.Marshal(map[string]any{"constant_score": map[string]any{"filter": *c.ConstantScore}})
	case c.Bool != nil:
		return json.Marshal(map[string]any{"bool": c.Bool})
	default:
		return nil, errors.New("query: empty clause")
	}
}

// UnmarshalJSON parses a clause from the index query DSL.
func (c *Clause) UnmarshalJSON(data []byte) error {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return fmt.Errorf("query: clause must be an object: %w", err)
	}
	if len(outer) != 1 {
		return fmt.Errorf("query: clause must have exactly one key, got %d", len(outer))
	}

	*c = Clause{}
	for kind, body := range outer {
		switch kind {
		case "term":
			field, raw, err := singleField(body)
			if err != nil {
				return fmt.Errorf("query: term: %w", err)
			}
			value, err := termValue(raw)
			if err != nil {
				return fmt.Errorf("query: term %q: %w", field, err)
			}
			c.Term = &Term{Field: field, Value: value}
		case "terms":
			field, raw, err := singleField(body)
			if err != nil {
				return fmt.Errorf("query: terms: %w", err)
			}
			values, err := ParseValues(raw)
			if err != nil {
				return fmt.Errorf("query: terms %q: %w", field, err)
			}
			c.Terms = &Terms{Field: field, Values: values}
		case "range":
			field, raw, err := singleField(body)
			if err != nil {
				return fmt.Errorf("query: range: %w", err)
			}
			var bounds map[string]json.RawMessage
			if err := json.Unmarshal(raw, &bounds); err != nil {
				return fmt.Errorf("query: range %q: %w", field, err)
			}
			r := Range{Field: field}
			for op, v := range bounds {
				s, err := scalarString(v)
				if err != nil {
					return fmt.Errorf("query: range %q %s: %w", field, op, err)
				}
				switch op {
				case "gt":
					r.GT = s
				case "gte":
					r.GTE = s
				case "lt":
					r.LT = s
				case "lte":
					r.LTE = s
				}
			}
			c.Range = &r
		case "exists":
			var e struct {
				Field string `json:"field"`
			}
			if err := json.Unmarshal(body, &e); err != nil || e.Field == "" {
				return errors.New("query: exists requires a field")
			}
			c.Exists = &Exists{Field: e.Field}
		case "query_string":
			var qs struct {
				Query           string `json:"query"`
				DefaultOperator string `json:"default_operator"`
				AnalyzeWildcard bool   `json:"analyze_wildcard"`
				Lenient         bool   `json:"lenient"`
			}
			if err := json.Unmarshal(body, &qs); err != nil {
				return fmt.Errorf("query: query_string: %w", err)
			}
			c.QueryString = &QueryString{
				Query: qs.Query, DefaultOperator: qs.DefaultOperator,
				AnalyzeWildcard: qs.AnalyzeWildcard, Lenient: qs.Lenient,
			}
		case "constant_score":
			var cs struct {
				Filter Clause `json:"filter"`
			}
			if err := json.Unmarshal(body, &cs); err != nil {
				return fmt.Errorf("query: constant_score: %w", err)
			}
			c.ConstantScore = &cs.Filter
		case "bool":
			b := NewBool()
			if err := json.Unmarshal(body, b); err != nil {
				return fmt.Errorf("query: bool: %w", err)
			}
			c.Bool = b
		default:
			return fmt.Errorf("query: unsupported clause %q", kind)
		}
	}
	return nil
}

// UnmarshalYAML lets clauses be written inline in YAML configuration.
func (c *Clause) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	data, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return fmt.Errorf("query: re-encode yaml clause: %w", err)
	}
	return c.UnmarshalJSON(data)
}

// ParseValues accepts a JSON scalar or list of scalars and returns them as strings.
func ParseValues(raw json.RawMessage) ([]string, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		s, serr := scalarString(raw)
		if serr != nil {
			return nil, serr
		}
		return []string{s}, nil
	}
	values := make([]string, 0, len(list))
	for _, item := range list {
		s, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		values = append(values, s)
	}
	return values, nil
}

func singleField(body json.RawMessage) (string, json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return "", nil, err
	}
	if len(m) != 1 {
		return "", nil, fmt.Errorf("expected exactly one field, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

// termValue accepts both {"f": v} and {"f": {"value": v}}.
func termValue(raw json.RawMessage) (string, error) {
	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != nil {
		return scalarString(wrapped.Value)
	}
	return scalarString(raw)
}

func scalarString(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar value, got %T", v)
	}
}

// normalizeYAML converts map[any]any nodes into map[string]any for JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
