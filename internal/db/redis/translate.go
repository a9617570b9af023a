package redis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain/search/query"
)

// errMatchNone marks a clause that can never match (e.g. terms with no values).
var errMatchNone = errors.New("query matches no documents")

const matchAll = "*"

// translator turns query DSL clauses into FT.SEARCH query syntax.
type translator struct {
	index *db.IndexDefinition
	now   time.Time
}

func newTranslator(index *db.IndexDefinition, now time.Time) *translator {
	if now.IsZero() {
		now = time.Now()
	}
	return &translator{index: index, now: now.UTC()}
}

// hits combines the main query with the post filter.
func (t *translator) hits(main, post *query.Clause) (string, error) {
	expr, err := t.optional(main)
	if err != nil {
		return "", err
	}
	if post == nil {
		return expr, nil
	}
	pf, err := t.clause(*post)
	if err != nil {
		return "", err
	}
	return joinAnd(expr, pf), nil
}

func (t *translator) optional(c *query.Clause) (string, error) {
	if c == nil || c.IsZero() {
		return matchAll, nil
	}
	return t.clause(*c)
}

func (t *translator) clause(c query.Clause) (string, error) {
	switch {
	case c.Term != nil:
		return t.term(c.Term.Field, c.Term.Value)
	case c.Terms != nil:
		return t.terms(c.Terms.Field, c.Terms.Values)
	case c.Range != nil:
		return t.rangeExpr(c.Range)
	case c.Exists != nil:
		f, err := t.field(c.Exists.Field)
		if err != nil {
			return "", err
		}
		if !f.IndexMissing {
			return "", fmt.Errorf("%w: exists on %q requires INDEXMISSING", db.ErrUnsupportedQuery, c.Exists.Field)
		}
		return "-ismissing(@" + f.QueryName() + ")", nil
	case c.QueryString != nil:
		return t.queryString(c.QueryString)
	case c.ConstantScore != nil:
		return t.clause(*c.ConstantScore)
	case c.Bool != nil:
		return t.boolExpr(c.Bool)
	default:
		return "", fmt.Errorf("%w: empty clause", db.ErrUnsupportedQuery)
	}
}

func (t *translator) field(name string) (*db.IndexField, error) {
	f, ok := t.index.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not indexed", db.ErrUnsupportedQuery, name)
	}
	return f, nil
}

func (t *translator) term(field, value string) (string, error) {
	f, err := t.field(field)
	if err != nil {
		return "", err
	}
	name := f.QueryName()
	switch f.Type {
	case db.IndexFieldTag:
		return fmt.Sprintf("@%s:{%s}", name, tagEscaper.Replace(value)), nil
	case db.IndexFieldText:
		return fmt.Sprintf(`@%s:"%s"`, name, phraseEscaper.Replace(value)), nil
	default:
		v, err := t.numericValue(f, value, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("@%s:[%s %s]", name, v, v), nil
	}
}

func (t *translator) terms(field string, values []string) (string, error) {
	if len(values) == 0 {
		return "", errMatchNone
	}
	f, err := t.field(field)
	if err != nil {
		return "", err
	}
	if f.Type == db.IndexFieldTag {
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = tagEscaper.Replace(v)
		}
		return fmt.Sprintf("@%s:{%s}", f.QueryName(), strings.Join(escaped, " | ")), nil
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		p, err := t.term(field, v)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return orGroup(parts), nil
}

func (t *translator) rangeExpr(r *query.Range) (string, error) {
	f, err := t.field(r.Field)
	if err != nil {
		return "", err
	}
	if f.Type != db.IndexFieldNumeric {
		return "", fmt.Errorf("%w: range on non-numeric field %q", db.ErrUnsupportedQuery, r.Field)
	}

	minBound, maxBound := "-inf", "+inf"
	switch {
	case r.GT != "":
		v, err := t.numericValue(f, r.GT, true)
		if err != nil {
			return "", err
		}
		minBound = "(" + v
	case r.GTE != "":
		v, err := t.numericValue(f, r.GTE, false)
		if err != nil {
			return "", err
		}
		minBound = v
	}
	switch {
	case r.LT != "":
		v, err := t.numericValue(f, r.LT, false)
		if err != nil {
			return "", err
		}
		maxBound = "(" + v
	case r.LTE != "":
		v, err := t.numericValue(f, r.LTE, true)
		if err != nil {
			return "", err
		}
		maxBound = v
	}
	return fmt.Sprintf("@%s:[%s %s]", f.QueryName(), minBound, maxBound), nil
}

func (t *translator) numericValue(f *db.IndexField, value string, roundUp bool) (string, error) {
	if f.Date {
		ms, err := resolveDate(value, t.now, roundUp)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", db.ErrUnsupportedQuery, f.QueryName(), err)
		}
		return strconv.FormatInt(ms, 10), nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %q is not a number", db.ErrUnsupportedQuery, f.QueryName(), value)
	}
	return strconv.FormatFloat(n, 'f', -1, 64), nil
}

func (t *translator) boolExpr(b *query.Bool) (string, error) {
	var parts []string

	for _, c := range b.Must {
		e, err := t.clause(c)
		if err != nil {
			return "", err
		}
		if e != matchAll {
			parts = append(parts, paren(e))
		}
	}

	shouldRequired := (b.MinimumShouldMatch != nil && *b.MinimumShouldMatch > 0) ||
		(len(b.Must) == 0 && len(b.MustNot) == 0)
	if len(b.Should) > 0 && shouldRequired {
		var alts []string
		for _, c := range b.Should {
			e, err := t.clause(c)
			if errors.Is(err, errMatchNone) {
				continue
			}
			if err != nil {
				return "", err
			}
			alts = append(alts, e)
		}
		if len(alts) == 0 {
			return "", errMatchNone
		}
		parts = append(parts, orGroup(alts))
	}

	for _, c := range b.MustNot {
		e, err := t.clause(c)
		if errors.Is(err, errMatchNone) {
			continue
		}
		if err != nil {
			return "", err
		}
		if e == matchAll {
			return "", errMatchNone
		}
		parts = append(parts, negate(e))
	}

	if len(parts) == 0 {
		return matchAll, nil
	}
	return strings.Join(parts, " "), nil
}

// queryString translates the free-text syntax: bare words, quoted phrases,
// field:value pairs, AND/OR/NOT, leading +/- and parentheses.
func (t *translator) queryString(qs *query.QueryString) (string, error) {
	tokens := balanceParens(tokenizeQuery(qs.Query))
	if len(tokens) == 0 {
		return matchAll, nil
	}

	defaultSep := " "
	if strings.EqualFold(qs.DefaultOperator, "OR") {
		defaultSep = " | "
	}

	var sb strings.Builder
	sep := ""
	negateNext := false
	for _, tok := range tokens {
		switch strings.ToUpper(tok) {
		case "AND", "&&":
			sep = " "
			continue
		case "OR", "||":
			sep = " | "
			continue
		case "NOT", "!":
			negateNext = true
			continue
		}
		if tok == ")" {
			sb.WriteString(")")
			continue
		}
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "(") {
			if sep == "" {
				sep = defaultSep
			}
			sb.WriteString(sep)
		}
		sep = ""
		if negateNext {
			sb.WriteString("-")
			negateNext = false
		}
		if tok == "(" {
			sb.WriteString("(")
			continue
		}
		sb.WriteString(t.queryTerm(tok, qs.AnalyzeWildcard))
	}
	if sb.Len() == 0 {
		return matchAll, nil
	}
	// The caller's text must never bind to neighbouring clauses.
	return paren(sb.String()), nil
}

func isQueryOperator(tok string) bool {
	switch strings.ToUpper(tok) {
	case "AND", "&&", "OR", "||", "NOT", "!":
		return true
	}
	return false
}

// balanceParens drops unmatched ")" tokens and groups without terms, and
// closes groups left open.
func balanceParens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	var open []int // indexes of "(" in out
	closeGroup := func() {
		start := open[len(open)-1]
		open = open[:len(open)-1]
		for _, tok := range out[start+1:] {
			if tok != "(" && tok != ")" && !isQueryOperator(tok) {
				out = append(out, ")")
				return
			}
		}
		out = out[:start]
	}
	for _, tok := range tokens {
		switch tok {
		case "(":
			open = append(open, len(out))
			out = append(out, tok)
		case ")":
			if len(open) > 0 {
				closeGroup()
			}
		default:
			out = append(out, tok)
		}
	}
	for len(open) > 0 {
		closeGroup()
	}
	return out
}

func (t *translator) queryTerm(tok string, wildcard bool) string {
	prefix := ""
	switch tok[0] {
	case '-':
		prefix, tok = "-", tok[1:]
	case '+':
		tok = tok[1:]
	}
	if tok == "" {
		return prefix + matchAll
	}

	if i := strings.IndexByte(tok, ':'); i > 0 && tok[0] != '"' {
		if f, ok := t.index.Field(tok[:i]); ok && i+1 < len(tok) {
			value := tok[i+1:]
			name := f.QueryName()
			switch f.Type {
			case db.IndexFieldTag:
				return prefix + fmt.Sprintf("@%s:{%s}", name, tagEscaper.Replace(unquote(value)))
			case db.IndexFieldText:
				return prefix + fmt.Sprintf("@%s:(%s)", name, textTerm(value, wildcard))
			default:
				if v, err := t.numericValue(f, unquote(value), false); err == nil {
					return prefix + fmt.Sprintf("@%s:[%s %s]", name, v, v)
				}
			}
		}
	}
	return prefix + textTerm(tok, wildcard)
}

func textTerm(s string, wildcard bool) string {
	if strings.HasPrefix(s, `"`) {
		return `"` + phraseEscaper.Replace(unquote(s)) + `"`
	}
	if wildcard && len(s) > 1 && strings.HasSuffix(s, "*") {
		return escapeQuery(strings.TrimRight(s, "*")) + "*"
	}
	return escapeQuery(s)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, `"`)
}

// tokenizeQuery splits on whitespace, keeping quoted phrases whole and
// emitting parentheses as their own tokens.
func tokenizeQuery(s string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
		case inQuote:
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func negate(expr string) string {
	if rest, ok := strings.CutPrefix(expr, "-ismissing("); ok {
		return "ismissing(" + rest
	}
	return "-" + paren(expr)
}

func joinAnd(a, b string) string {
	switch {
	case a == matchAll:
		return b
	case b == matchAll:
		return a
	default:
		return paren(a) + " " + paren(b)
	}
}

func orGroup(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// paren wraps compound expressions so they compose safely.
func paren(e string) string {
	if !strings.ContainsAny(e, " |") {
		return e
	}
	if strings.HasPrefix(e, "(") && strings.HasSuffix(e, ")") && balanced(e[1:len(e)-1]) {
		return e
	}
	if strings.HasPrefix(e, "@") && strings.HasSuffix(e, "}") && strings.Count(e, "{") == 1 {
		return e
	}
	return "(" + e + ")"
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
