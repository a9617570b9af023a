package query

import (
	"encoding/json"
	"fmt"
)

// Bool is the boolean accumulator of a search query.
// Must/MustNot/Should marshal as arrays even when empty.
type Bool struct {
	Must               []Clause
	MustNot            []Clause
	Should             []Clause
	MinimumShouldMatch *int
}

// NewBool creates an empty bool query.
func NewBool() *Bool {
	return &Bool{
		Must:    []Clause{},
		MustNot: []Clause{},
		Should:  []Clause{},
	}
}

// AddMust appends clauses to must.
func (b *Bool) AddMust(c ...Clause) { b.Must = append(b.Must, c...) }

// AddMustNot appends clauses to must_not.
func (b *Bool) AddMustNot(c ...Clause) { b.MustNot = append(b.MustNot, c...) }

// AddShould appends clauses to should.
func (b *Bool) AddShould(c ...Clause) { b.Should = append(b.Should, c...) }

// SetMinimumShouldMatch sets minimum_should_match.
func (b *Bool) SetMinimumShouldMatch(n int) { b.MinimumShouldMatch = &n }

// IsEmpty reports whether the bool query has no clauses.
func (b *Bool) IsEmpty() bool {
	return b == nil || (len(b.Must) == 0 && len(b.MustNot) == 0 && len(b.Should) == 0)
}

// Clone returns a copy whose clause slices can be appended to independently.
func (b *Bool) Clone() *Bool {
	if b == nil {
		return NewBool()
	}
	out := &Bool{
		Must:    append([]Clause{}, b.Must...),
		MustNot: append([]Clause{}, b.MustNot...),
		Should:  append([]Clause{}, b.Should...),
	}
	if b.MinimumShouldMatch != nil {
		out.SetMinimumShouldMatch(*b.MinimumShouldMatch)
	}
	return out
}

type boolJSON struct {
	Must               []Clause `json:"must"`
	MustNot            []Clause `json:"must_not"`
	Should             []Clause `json:"should"`
	MinimumShouldMatch *int     `json:"minimum_should_match,omitempty"`
}

// MarshalJSON renders the bool body.
func (b *Bool) MarshalJSON() ([]byte, error) {
	out := boolJSON{
		Must:               b.Must,
		MustNot:            b.MustNot,
		Should:             b.Should,
		MinimumShouldMatch: b.MinimumShouldMatch,
	}
	if out.Must == nil {
		out.Must = []Clause{}
	}
	if out.MustNot == nil {
		out.MustNot = []Clause{}
	}
	if out.Should == nil {
		out.Should = []Clause{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts each occurrence as a single clause or a list of clauses.
func (b *Bool) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = *NewBool()
	for key, body := range raw {
		switch key {
		case "must", "filter":
			clauses, err := clauseList(body)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			b.Must = append(b.Must, clauses...)
		case "must_not":
			clauses, err := clauseList(body)
			if err != nil {
				return fmt.Errorf("must_not: %w", err)
			}
			b.MustNot = clauses
		case "should":
			clauses, err := clauseList(body)
			if err != nil {
				return fmt.Errorf("should: %w", err)
			}
			b.Should = clauses
		case "minimum_should_match":
			var n int
			if err := json.Unmarshal(body, &n); err != nil {
				return fmt.Errorf("minimum_should_match: %w", err)
			}
			b.SetMinimumShouldMatch(n)
		default:
			return fmt.Errorf("unsupported bool occurrence %q", key)
		}
	}
	return nil
}

func clauseList(body json.RawMessage) ([]Clause, error) {
	var list []Clause
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var single Clause
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []Clause{single}, nil
}
