package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("test-idx").
		Prefix("doc:").
		Tag("category").
		Numeric("price").
		MustBuild()

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name != "test-idx" {
		t.Errorf("name = %q, want test-idx", idx.Name)
	}
	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "price" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want price NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_JSONFields(t *testing.T) {
	idx := NewIndex("items-idx").
		OnJSON().
		Prefix("newsdex:item:").
		JSONField("$._id", "_id", IndexFieldTag).
		JSONField("$.nextversion", "nextversion", IndexFieldTag).IndexMissing().
		JSONField("$.headline", "headline", IndexFieldText).Sortable().
		Date("$._ts.versioncreated", "versioncreated").
		MustBuild()

	if len(idx.Fields) != 4 {
		t.Fatalf("fields count = %d, want 4", len(idx.Fields))
	}
	if !idx.Fields[1].IndexMissing {
		t.Error("expected nextversion INDEXMISSING")
	}
	if !idx.Fields[2].Sortable || idx.Fields[2].IndexMissing {
		t.Errorf("headline = %+v", idx.Fields[2])
	}
	f := idx.Fields[3]
	if f.Type != IndexFieldNumeric || !f.Date || !f.Sortable {
		t.Errorf("versioncreated = %+v, want sortable numeric date", f)
	}
}

func TestIndexDefinition_Field(t *testing.T) {
	idx := NewIndex("items-idx").
		OnJSON().
		JSONField("$.products[*].code", "products_code", IndexFieldTag).
		Tag("plain").
		MustBuild()

	f, ok := idx.Field("products.code")
	if !ok || f.Name != "$.products[*].code" {
		t.Errorf("Field(products.code) = %+v, %v", f, ok)
	}
	if f, ok := idx.Field("plain"); !ok || f.QueryName() != "plain" {
		t.Errorf("Field(plain) = %+v, %v", f, ok)
	}
	if _, ok := idx.Field("missing"); ok {
		t.Error("expected missing field lookup to fail")
	}
}

func TestParseIndexFieldType(t *testing.T) {
	for in, want := range map[string]IndexFieldType{
		"tag": IndexFieldTag, "TEXT": IndexFieldText, "numeric": IndexFieldNumeric, "date": IndexFieldNumeric,
	} {
		got, err := ParseIndexFieldType(in)
		if err != nil || got != want {
			t.Errorf("ParseIndexFieldType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseIndexFieldType("vector"); err == nil {
		t.Error("expected error for vector")
	}
}

func TestIndexBuilder_JSON(t *testing.T) {
	idx := NewIndex("json-idx").
		OnJSON().
		Prefix("$.").
		Text("content").
		MustBuild()

	if idx.StorageType != StorageJSON {
		t.Errorf("storage = %q, want JSON", idx.StorageType)
	}
}

func TestIndexBuilder_TagOptions(t *testing.T) {
	idx := NewIndex("tag-idx").
		Prefix("t:").
		TagWithOpts("tags", "|", true).
		MustBuild()

	f := idx.Fields[0]
	if f.TagSeparator != "|" {
		t.Errorf("separator = %q, want |", f.TagSeparator)
	}
	if !f.TagCaseSensitive {
		t.Error("expected TagCaseSensitive=true")
	}
}

func TestIndexBuilder_MultiplePrefixes(t *testing.T) {
	idx := NewIndex("multi-idx").
		Prefix("a:", "b:", "c:").
		Tag("x").
		MustBuild()

	if len(idx.Prefixes) != 3 {
		t.Errorf("prefix count = %d, want 3", len(idx.Prefixes))
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").Tag("x").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "date on tag",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").add(IndexField{Name: "d", Type: IndexFieldTag, Date: true}).Build()
			},
			wantErr: "date field must be numeric",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").Tag("x").Build()
			},
			wantErr: "invalid characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := NewIndex("my-idx").
		Prefix("doc:").
		Tag("cat").
		Date("$._ts.versioncreated", "versioncreated").
		MustBuild()

	s := idx.String()
	if !strings.HasPrefix(s, "FT.CREATE ") {
		t.Errorf("expected FT.CREATE prefix, got %q", s)
	}
	if !strings.Contains(s, "my-idx") {
		t.Error("missing index name in string output")
	}
	if !strings.Contains(s, "AS versioncreated NUMERIC SORTABLE") {
		t.Errorf("missing sortable date field in %q", s)
	}
}

func TestIndexBuilder_Alias(t *testing.T) {
	idx := &IndexDefinition{
		Name:     "alias-idx",
		Prefixes: []string{"a:"},
		Fields: []IndexField{
			{Name: "$.field", Alias: "field", Type: IndexFieldTag},
		},
	}

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Fields[0].Alias != "field" {
		t.Errorf("alias = %q, want field", idx.Fields[0].Alias)
	}
}

func TestIndexBuilder_DuplicateFields(t *testing.T) {
	idx := &IndexDefinition{
		Name: "dup-idx",
		Fields: []IndexField{
			{Name: "field1", Type: IndexFieldTag},
			{Name: "field1", Type: IndexFieldNumeric},
		},
	}

	if err := idx.Validate(); err == nil {
		t.Fatal("expected error for duplicate fields")
	}
}
