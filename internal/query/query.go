// Package query translates list-endpoint query strings into filtered,
// sorted, projected, paginated result pages over stored documents.
package query

import (
	"encoding/json/v2"
	"net/url"
	"sort"
	"strconv"
	"strings"

	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
)

const (
	// DefaultLimit is the page size when the client does not specify one.
	DefaultLimit = 100
	// MaxLimit caps the page size a client may request.
	MaxLimit = 1000
)

// Reserved parameter names that are never treated as filters.
var reserved = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

// Internal fields stripped from every response regardless of projection.
var hiddenFields = map[string]bool{
	"password_hash":       true,
	"password_changed_at": true,
}

// Op is a comparison operator on a filter.
type Op string

// Supported filter operators.
const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

// Filter compares a document field against a literal value.
type Filter struct {
	Field string
	Op    Op
	Value string
}

// SortKey orders results by a field.
type SortKey struct {
	Field string
	Desc  bool
}

// Query is the parsed form of list-endpoint query parameters.
// It is constructed per request and discarded afterwards.
type Query struct {
	Filters []Filter
	Sort    []SortKey
	Fields  []string
	Page    int
	Limit   int
}

// Result is one page of matching documents.
type Result struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"` // Matching documents before pagination
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// Parse builds a Query from raw URL parameters.
// Every key outside {page, sort, limit, fields} becomes a filter; operators
// are embedded as field[op]=value. Unknown operators and malformed
// page/limit values are validation errors.
func Parse(values url.Values) (*Query, error) {
	q := &Query{
		Page:  1,
		Limit: DefaultLimit,
	}

	for key, vals := range values {
		if reserved[key] {
			continue
		}

		field, op, err := splitFilterKey(key)
		if err != nil {
			return nil, err
		}

		for _, v := range vals {
			q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: v})
		}
	}

	if s := values.Get("sort"); s != "" {
		for key := range strings.SplitSeq(s, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if rest, ok := strings.CutPrefix(key, "-"); ok {
				q.Sort = append(q.Sort, SortKey{Field: rest, Desc: true})
			} else {
				q.Sort = append(q.Sort, SortKey{Field: key})
			}
		}
	}

	if f := values.Get("fields"); f != "" {
		for field := range strings.SplitSeq(f, ",") {
			field = strings.TrimSpace(field)
			if field != "" && !hiddenFields[field] {
				q.Fields = append(q.Fields, field)
			}
		}
	}

	if p := values.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			return nil, domainerrors.Validationf("invalid page: %q", p)
		}
		q.Page = page
	}

	if l := values.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			return nil, domainerrors.Validationf("invalid limit: %q", l)
		}
		if limit > MaxLimit {
			limit = MaxLimit
		}
		q.Limit = limit
	}

	return q, nil
}

// splitFilterKey parses "price[gte]" into ("price", OpGte).
// A bare key is an equality filter.
func splitFilterKey(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", domainerrors.Validationf("malformed filter: %q", key)
	}

	field := key[:open]
	op := Op(key[open+1 : len(key)-1])
	switch op {
	case OpGte, OpGt, OpLte, OpLt:
		return field, op, nil
	default:
		return "", "", domainerrors.Validationf("unknown filter operator: %q", string(op))
	}
}

// Run applies the query to a collection and returns the matching page.
//
// Documents are compared through their JSON form, so filter and sort field
// names match the wire names clients see. A page past the end of the result
// set yields an empty page, not an error.
func Run[T any](q *Query, items []*T) (*Result, error) {
	docs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, err
		}
		if matches(q.Filters, doc) {
			docs = append(docs, doc)
		}
	}

	sortDocs(q.Sort, docs)

	total := len(docs)

	// Paginate
	skip := (q.Page - 1) * q.Limit
	if skip >= len(docs) {
		docs = nil
	} else {
		end := min(skip+q.Limit, len(docs))
		docs = docs[skip:end]
	}

	// Project
	projected := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		projected = append(projected, project(q.Fields, doc))
	}

	return &Result{
		Items: projected,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// toDocument round-trips a record through JSON into a generic map.
func toDocument(item any) (map[string]any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "marshal record")
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "unmarshal record")
	}
	return doc, nil
}

// matches reports whether a document satisfies every filter.
// Documents missing a filtered field never match.
func matches(filters []Filter, doc map[string]any) bool {
	for _, f := range filters {
		val, ok := doc[f.Field]
		if !ok || val == nil {
			return false
		}

		cmp, comparable := compare(val, f.Value)
		if !comparable {
			return false
		}

		switch f.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpGte:
			if cmp < 0 {
				return false
			}
		case OpGt:
			if cmp <= 0 {
				return false
			}
		case OpLte:
			if cmp > 0 {
				return false
			}
		case OpLt:
			if cmp >= 0 {
				return false
			}
		}
	}
	return true
}

// compare orders a document value against a filter literal.
// Numbers compare numerically, booleans by equality, everything else as
// strings. Returns comparable=false for composite values (arrays, objects).
func compare(docVal any, filterVal string) (int, bool) {
	switch v := docVal.(type) {
	case float64:
		f, err := strconv.ParseFloat(filterVal, 64)
		if err != nil {
			return 0, false
		}
		switch {
		case v < f:
			return -1, true
		case v > f:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		b, err := strconv.ParseBool(filterVal)
		if err != nil {
			return 0, false
		}
		if v == b {
			return 0, true
		}
		return 1, true
	case string:
		return strings.Compare(v, filterVal), true
	default:
		return 0, false
	}
}

// sortDocs orders documents by the requested keys. The default sort is
// created_at ascending with id as tiebreaker, which keeps page boundaries
// stable across requests.
func sortDocs(keys []SortKey, docs []map[string]any) {
	if len(keys) == 0 {
		keys = []SortKey{{Field: "created_at"}, {Field: "id"}}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			c := compareValues(docs[i][key.Field], docs[j][key.Field])
			if c == 0 {
				continue
			}
			if key.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders two document values of unknown type.
// Missing values sort first so they surface predictably.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs)
	}

	// Mixed types: order by type name so the sort stays total.
	return strings.Compare(typeName(a), typeName(b))
}

func typeName(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	default:
		return "composite"
	}
}

// project narrows a document to the requested fields.
// The id field is always kept; hidden internal fields are always dropped.
func project(fields []string, doc map[string]any) map[string]any {
	if len(fields) == 0 {
		out := make(map[string]any, len(doc))
		for k, v := range doc {
			if !hiddenFields[k] {
				out[k] = v
			}
		}
		return out
	}

	out := make(map[string]any, len(fields)+1)
	if id, ok := doc["id"]; ok {
		out["id"] = id
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
