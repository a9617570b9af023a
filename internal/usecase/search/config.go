package search

import (
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/item"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// Group labels an aggregation shown as a result group.
type Group struct {
	Field string
	Label string
}

// SectionConfig holds the behaviour that varies by section.
type SectionConfig struct {
	// Aggregations are attached to first-page requests.
	Aggregations map[string]query.Aggregation
	Groups       []Group
	// LimitDays restricts non-archive companies to a rolling window; 0 disables it.
	LimitDays int
}

// CompanyType holds mandatory clauses for companies of one type, keyed by section.
type CompanyType struct {
	ID      string
	Name    string
	Must    map[string]query.Clause
	MustNot map[string]query.Clause
}

// HighlightConfig controls highlighting of free-text matches.
type HighlightConfig struct {
	Enabled bool
	Field   string
	PreTag  string
	PostTag string
}

// Config is read-only search configuration shared by all requests.
type Config struct {
	DefaultSection  string
	DefaultPageSize int
	DefaultSort     []query.Sort
	// PostFilter moves request filters into the post filter so aggregation
	// counts ignore them.
	PostFilter bool
	// FilterAggregations maps filter keys through aggregation fields; when
	// false the filter argument is a query clause itself.
	FilterAggregations bool
	AnalyzeWildcard    bool
	Highlight          HighlightConfig
	MaxChainHops       int
	AllVersionsSize    int
	Sections           map[string]SectionConfig
	CompanyTypes       []CompanyType
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	c := Config{FilterAggregations: true}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.DefaultSection == "" {
		c.DefaultSection = domain.DefaultSection
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = domain.DefaultPageSize
	}
	if len(c.DefaultSort) == 0 {
		c.DefaultSort = []query.Sort{{Field: item.FieldVersionCreated, Order: query.OrderDesc}}
	}
	if c.Highlight.Field == "" {
		c.Highlight.Field = item.FieldBodyHTML
	}
	if c.Highlight.PreTag == "" && c.Highlight.PostTag == "" {
		c.Highlight.PreTag = `<span class="es-highlight">`
		c.Highlight.PostTag = "</span>"
	}
	if c.MaxChainHops <= 0 {
		c.MaxChainHops = domain.DefaultMaxChainHops
	}
	if c.AllVersionsSize <= 0 || c.AllVersionsSize > domain.MaxResultWindow {
		c.AllVersionsSize = domain.AllVersionsCandidates
	}
}

// section returns the configuration of name; unknown sections get none.
func (c *Config) section(name string) SectionConfig {
	return c.Sections[name]
}

// companyType returns the rules for a company type id.
func (c *Config) companyType(id string) (CompanyType, bool) {
	for _, ct := range c.CompanyTypes {
		if ct.ID == id {
			return ct, true
		}
	}
	return CompanyType{}, false
}
