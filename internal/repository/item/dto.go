package item

import (
	"encoding/json"
	"fmt"
	"strings"

	domitem "github.com/kailas-cloud/newsdex/internal/domain/item"
)

// alwaysReturned fields survive any projection: chain resolution needs them.
var alwaysReturned = []string{
	domitem.FieldID,
	domitem.FieldType,
	domitem.FieldOriginalID,
	domitem.FieldNextVersion,
	domitem.FieldVersionCreated,
}

// buildJSONDoc converts an item into its stored form.
func buildJSONDoc(it *domitem.Item) map[string]any {
	doc := make(map[string]any, len(it.Fields())+3)
	for k, v := range it.Fields() {
		doc[k] = v
	}
	doc[domitem.FieldID] = it.ID()
	doc[fieldDocType] = docTypeItems
	if vc := it.VersionCreated(); !vc.IsZero() {
		doc[fieldTimestamps] = map[string]any{domitem.FieldVersionCreated: vc.UnixMilli()}
	}
	return doc
}

// parseDocument decodes a JSON.GET "$" reply or an FT.SEARCH "$" field.
// The former is wrapped in an array.
func parseDocument(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("empty item document")
		}
		return arr[0], nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return m, nil
}

// toItem strips storage-only fields and applies the projection.
func toItem(fallbackID string, m map[string]any, projection []string) domitem.Item {
	delete(m, fieldDocType)
	delete(m, fieldTimestamps)
	id, _ := m[domitem.FieldID].(string)
	if id == "" {
		id = fallbackID
	}
	if len(projection) > 0 {
		m = project(m, projection)
	}
	return domitem.Reconstruct(id, m)
}

func project(m map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields)+len(alwaysReturned))
	for _, group := range [][]string{alwaysReturned, fields} {
		for _, f := range group {
			if v, ok := m[f]; ok {
				out[f] = v
			}
		}
	}
	return out
}

func itemKey(prefix, id string) string {
	return prefix + id
}

