package request

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
	"github.com/kailas-cloud/newsdex/internal/domain/sectionfilter"
)

// Recognized argument names.
const (
	ArgQ                 = "q"
	ArgDefaultOperator   = "default_operator"
	ArgFilter            = "filter"
	ArgCreatedFrom       = "created_from"
	ArgCreatedFromTime   = "created_from_time"
	ArgCreatedTo         = "created_to"
	ArgTimezoneOffset    = "timezone_offset"
	ArgSort              = "sort"
	ArgSize              = "size"
	ArgFrom              = "from"
	ArgUser              = "user"
	ArgSection           = "section"
	ArgNavigation        = "navigation"
	ArgProduct           = "product"
	ArgRequestedProducts = "requested_products"
	ArgIgnoreLatest      = "ignore_latest"
	ArgAggs              = "aggs"
	ArgESHighlight       = "es_highlight"
	ArgAllVersions       = "all_versions"
)

// MaxQueryLength is the maximum allowed free-text query length.
const MaxQueryLength = 4096

// Args holds raw request parameters. Values are strings, string lists, bools,
// numbers or JSON-like maps.
type Args map[string]any

// FromValues converts URL query values: single values become strings,
// repeated ones string lists.
func FromValues(v url.Values) Args {
	args := make(Args, len(v))
	for k, vals := range v {
		switch len(vals) {
		case 0:
		case 1:
			args[k] = vals[0]
		default:
			args[k] = append([]string{}, vals...)
		}
	}
	return args
}

// Clone returns a shallow copy.
func (a Args) Clone() Args {
	if a == nil {
		return Args{}
	}
	return maps.Clone(a)
}

// Has reports whether key is present with a non-empty value.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// String returns the value of key as a string.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int parses key as an integer. ok is false when the key is absent.
func (a Args) Int(key string) (n int, ok bool, err error) {
	switch v := a[key].(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, true, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), true, nil
	case string:
		if v == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, true, fmt.Errorf("%s must be an integer", key)
		}
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("%s must be an integer", key)
	}
}

// Bool interprets key as a flag. Absent keys yield def.
func (a Args) Bool(key string, def bool) bool {
	switch v := a[key].(type) {
	case nil:
		return def
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return def
		case "false", "0", "no", "off":
			return false
		default:
			return true
		}
	default:
		return true
	}
}

// List returns key as a list of strings: a comma-delimited string or a literal list.
// ok is false when the key is absent.
func (a Args) List(key string) (values []string, ok bool, err error) {
	switch v := a[key].(type) {
	case nil:
		return nil, false, nil
	case string:
		if v == "" {
			return nil, false, nil
		}
		return splitList(v), true, nil
	case []string:
		return append([]string{}, v...), true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, isString := e.(string)
			if !isString {
				return nil, true, fmt.Errorf("%s must be a list of strings", key)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, fmt.Errorf("%s must be a string or a list", key)
	}
}

// Object returns key as a JSON object, decoding it from a string when needed.
func (a Args) Object(key string) (map[string]json.RawMessage, bool, error) {
	var data []byte
	switch v := a[key].(type) {
	case nil:
		return nil, false, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false, nil
		}
		data = []byte(v)
	case map[string]any, map[string][]string, map[string]string:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, true, fmt.Errorf("%s: %w", key, err)
		}
		data = raw
	default:
		return nil, true, fmt.Errorf("%s must be a JSON object", key)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, true, fmt.Errorf("%s must be a JSON object", key)
	}
	return out, true, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Request is an incoming search request.
type Request struct {
	// UserID identifies the requester; empty for anonymous calls.
	UserID string
	Args   Args
	// Projection lists fields to return; empty means the index default.
	Projection []string
	// Sort is the request-level sort, used when no sort argument is given.
	Sort []query.Sort
	// Lookup is an external selector merged as exact-match filters at dispatch.
	Lookup map[string]string
	// SectionFilters replace the stored filters of the section when non-nil.
	SectionFilters []sectionfilter.Filter
}

// New creates a request, validating the free-text query length.
func New(userID string, args Args) (Request, error) {
	if args == nil {
		args = Args{}
	}
	if q := args.String(ArgQ); len(q) > MaxQueryLength {
		return Request{}, domain.NewParameterError(ArgQ, fmt.Sprintf("too long (max %d chars)", MaxQueryLength))
	}
	return Request{UserID: userID, Args: args}, nil
}

// WithArgs returns a copy of the request with args replaced.
func (r Request) WithArgs(args Args) Request {
	r.Args = args
	return r
}
