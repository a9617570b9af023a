package item

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/newsdex/internal/db"
	domitem "github.com/kailas-cloud/newsdex/internal/domain/item"
)

// Field is an extra document field indexed next to the built-in ones.
type Field struct {
	// Name is the dotted field name queries use ("genre.name").
	Name string
	// Path is the JSON path below the document root ("genre[*].name").
	// Defaults to Name.
	Path     string
	Type     db.IndexFieldType
	Sortable bool
}

// Field names only present in storage.
const (
	fieldDocType = "_type"
	// fieldTimestamps holds epoch milliseconds of date fields for range queries.
	fieldTimestamps = "_ts"
	docTypeItems    = "items"
)

// buildIndex creates the items index definition: fields the search pipeline
// relies on, followed by the configured extras.
func buildIndex(name, prefix string, extra []Field) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).OnJSON().Prefix(prefix).
		JSONField("$._id", domitem.FieldID, db.IndexFieldTag).
		JSONField("$._type", fieldDocType, db.IndexFieldTag).
		JSONField("$.type", domitem.FieldType, db.IndexFieldTag).
		JSONField("$.original_id", domitem.FieldOriginalID, db.IndexFieldTag).
		JSONField("$.nextversion", domitem.FieldNextVersion, db.IndexFieldTag).IndexMissing().
		JSONField("$.products[*].code", db.FieldAlias(domitem.FieldProductsCode), db.IndexFieldTag).
		Date("$._ts.versioncreated", domitem.FieldVersionCreated).
		JSONField("$.headline", "headline", db.IndexFieldText).
		JSONField("$.slugline", "slugline", db.IndexFieldText).
		JSONField("$.body_html", domitem.FieldBodyHTML, db.IndexFieldText)

	for _, f := range extra {
		if f.Name == "" {
			return nil, fmt.Errorf("index field name is required")
		}
		path := f.Path
		if path == "" {
			path = f.Name
		}
		b.JSONField("$."+strings.TrimPrefix(path, "$."), db.FieldAlias(f.Name), f.Type)
		if f.Sortable {
			b.Sortable()
		}
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("items index: %w", err)
	}
	return def, nil
}
