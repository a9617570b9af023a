package db

import (
	"errors"
	"strconv"
	"strings"
)

// StorageType defines the document storage backend for FT indexes (HASH or JSON).
type StorageType string

const (
	// StorageHash stores documents as Redis hashes.
	StorageHash StorageType = "HASH"
	// StorageJSON stores documents as JSON.
	StorageJSON StorageType = "JSON"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a text field.
	IndexFieldText
)

// ParseIndexFieldType maps "tag", "text" and "numeric" to a field type.
func ParseIndexFieldType(s string) (IndexFieldType, error) {
	switch strings.ToLower(s) {
	case "tag":
		return IndexFieldTag, nil
	case "text":
		return IndexFieldText, nil
	case "numeric", "date":
		return IndexFieldNumeric, nil
	default:
		return 0, errors.New("unknown field type " + strconv.Quote(s))
	}
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name  string // JSON path or hash field
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool

	Sortable bool
	// IndexMissing lets queries match documents lacking the field (ismissing).
	IndexMissing bool
	// Date marks numeric fields holding epoch milliseconds of a timestamp.
	Date bool
}

// QueryName is the name the field is referenced by in FT queries.
func (f *IndexField) QueryName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		key := f.QueryName()
		if seen[key] {
			return errors.New("duplicate field name: " + key)
		}
		seen[key] = true

		if f.Date && f.Type != IndexFieldNumeric {
			return errors.New("date field must be numeric: " + key)
		}
	}

	return nil
}

// Field resolves a dotted document field ("products.code") to its schema entry.
// Dots map to underscores in aliases.
func (idx *IndexDefinition) Field(name string) (*IndexField, bool) {
	alias := FieldAlias(name)
	for i := range idx.Fields {
		if idx.Fields[i].QueryName() == alias {
			return &idx.Fields[i], true
		}
	}
	return nil, false
}

// FieldAlias converts a dotted document field name to an FT alias.
func FieldAlias(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
