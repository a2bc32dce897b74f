package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Op is a predicate comparison operator.
type Op string

const (
	OpEQ  Op = "=="
	OpNEQ Op = "!="
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpIn  Op = "in"
)

// Predicate filters documents on one (dot separated) field.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Order sorts documents by one field.
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Where      []Predicate
	OrderBy    []Order
	Limit      int
}

// Where is shorthand for building a Predicate.
func Where(field string, op Op, value any) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

// Validate checks the query and returns it with predicate values converted
// to their JSON representation.
func (q Query) Validate() (Query, error) {
	if q.Collection == "" {
		return q, fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return q, fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}

	out := q
	out.Where = make([]Predicate, len(q.Where))
	for i, p := range q.Where {
		if !fieldPattern.MatchString(p.Field) {
			return q, fmt.Errorf("%w: bad field name %q", ErrInvalidQuery, p.Field)
		}
		switch p.Op {
		case OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE, OpIn:
		default:
			return q, fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, p.Op)
		}
		v, err := normalizeValue(p.Value)
		if err != nil {
			return q, fmt.Errorf("%w: field %s: %v", ErrInvalidQuery, p.Field, err)
		}
		if p.Op == OpIn {
			if _, ok := v.([]any); !ok {
				return q, fmt.Errorf("%w: %s requires a list value", ErrInvalidQuery, OpIn)
			}
		}
		out.Where[i] = Predicate{Field: p.Field, Op: p.Op, Value: v}
	}
	for _, o := range q.OrderBy {
		if !fieldPattern.MatchString(o.Field) {
			return q, fmt.Errorf("%w: bad order field %q", ErrInvalidQuery, o.Field)
		}
	}
	return out, nil
}

// Matches reports whether a document body satisfies every predicate. The
// query must have been validated.
func (q Query) Matches(data map[string]any) bool {
	for _, p := range q.Where {
		if !p.matches(lookup(data, p.Field)) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(v any) bool {
	switch p.Op {
	case OpEQ:
		return compare(v, p.Value) == 0 && sameKind(v, p.Value)
	case OpNEQ:
		// Documents without the field never match, as in SQL.
		if v == nil && p.Value != nil {
			return false
		}
		return !(compare(v, p.Value) == 0 && sameKind(v, p.Value))
	case OpIn:
		for _, candidate := range p.Value.([]any) {
			if sameKind(v, candidate) && compare(v, candidate) == 0 {
				return true
			}
		}
		return false
	}

	// Range comparisons only hold between values of the same kind.
	if v == nil || !sameKind(v, p.Value) {
		return false
	}
	c := compare(v, p.Value)
	switch p.Op {
	case OpLT:
		return c < 0
	case OpLTE:
		return c <= 0
	case OpGT:
		return c > 0
	case OpGTE:
		return c >= 0
	}
	return false
}

// sortDocuments orders docs in place by q.OrderBy, falling back to id.
func sortDocuments(docs []Document, orders []Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			c := compare(lookup(docs[i].Data, o.Field), lookup(docs[j].Data, o.Field))
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID < docs[j].ID
	})
}

func lookup(data map[string]any, field string) any {
	var current any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func normalizeValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// kindRank orders values of different JSON kinds: null < bool < number < string.
func kindRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func sameKind(a, b any) bool {
	return kindRank(a) == kindRank(b)
}

func compare(a, b any) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(av, b.(string))
	default:
		ab, _ := json.Marshal(a)
		bb, _ := json.Marshal(b)
		return strings.Compare(string(ab), string(bb))
	}
}
