package item

import (
	"fmt"
	"maps"
	"time"
)

// Document field names the search pipeline depends on.
const (
	FieldID             = "_id"
	FieldType           = "type"
	FieldOriginalID     = "original_id"
	FieldNextVersion    = "nextversion"
	FieldVersionCreated = "versioncreated"
	FieldProductsCode   = "products.code"
	FieldBodyHTML       = "body_html"
)

// Item types.
const (
	TypeText      = "text"
	TypeComposite = "composite"
)

// Item is one indexed revision of a story (immutable value object).
type Item struct {
	id             string
	itemType       string
	originalID     string
	nextVersion    string
	versionCreated time.Time
	fields         map[string]any
	highlights     map[string][]string
}

// New validates and creates an Item from its document fields.
func New(id string, fields map[string]any) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("item ID is required")
	}
	if len(id) > 512 {
		return Item{}, fmt.Errorf("item ID too long (max 512)")
	}
	it := Reconstruct(id, fields)
	if v, ok := fields[FieldVersionCreated]; ok && it.versionCreated.IsZero() {
		return Item{}, fmt.Errorf("invalid %s %v: expected RFC3339 timestamp", FieldVersionCreated, v)
	}
	return it, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(id string, fields map[string]any) Item {
	it := Item{id: id, fields: maps.Clone(fields)}
	if it.fields == nil {
		it.fields = map[string]any{}
	}
	it.itemType, _ = fields[FieldType].(string)
	it.originalID, _ = fields[FieldOriginalID].(string)
	it.nextVersion, _ = fields[FieldNextVersion].(string)
	if s, ok := fields[FieldVersionCreated].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			it.versionCreated = t
		}
	}
	return it
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Type returns the item type ("text", "composite", ...).
func (i *Item) Type() string { return i.itemType }

// OriginalID identifies the story shared by all of its revisions.
func (i *Item) OriginalID() string { return i.originalID }

// NextVersion is the id of the following revision, empty for the latest.
func (i *Item) NextVersion() string { return i.nextVersion }

// VersionCreated is the revision timestamp.
func (i *Item) VersionCreated() time.Time { return i.versionCreated }

// Fields returns the full document.
func (i *Item) Fields() map[string]any { return i.fields }

// Highlights returns highlighted fragments keyed by field.
func (i *Item) Highlights() map[string][]string { return i.highlights }

// IsLatest reports whether no newer revision is linked.
func (i *Item) IsLatest() bool { return i.nextVersion == "" }

// WithHighlights returns a copy carrying highlighted fragments.
func (i *Item) WithHighlights(h map[string][]string) Item {
	c := *i
	c.highlights = h
	return c
}
