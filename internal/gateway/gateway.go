package gateway

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Document is a persisted record: field name to typed value. Implementations
// return the record id under the "id" key; the stored body never contains it.
type Document map[string]any

// Op is a filter comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpIn Op = "in"
)

// Filter restricts a query to documents whose field matches the value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality filter.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Value: v}
}

// In builds a membership filter; the document field must equal one of vs.
func In(field string, vs ...any) Filter {
	return Filter{Field: field, Op: OpIn, Value: vs}
}

// Ordering sorts query results by a single field.
type Ordering struct {
	Field string
	Desc  bool
}

// Unsubscribe stops delivery for a live query. Idempotent: calling it twice
// is safe, and no onChange invocation starts after it returns.
type Unsubscribe func()

// StoreError wraps a failed read or write against the backing store.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Gateway is the narrow document-store boundary every feature service talks
// to. Get returns (nil, nil) when the record does not exist. Put upserts;
// with merge=true only the provided fields are written, existing fields are
// preserved. Query returns a snapshot; Subscribe delivers the initial
// snapshot and a fresh result set after every matching write through this
// gateway (best effort, at most once per write).
type Gateway interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Put(ctx context.Context, collection, id string, doc Document, merge bool) error
	Query(ctx context.Context, collection string, filters []Filter, order *Ordering) ([]Document, error)
	Subscribe(ctx context.Context, collection string, filters []Filter, order *Ordering, onChange func([]Document)) (Unsubscribe, error)
}

// matches reports whether doc satisfies every filter.
func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := doc[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			if !valueEq(v, f.Value) {
				return false
			}
		case OpIn:
			vs, ok := f.Value.([]any)
			if !ok {
				return false
			}
			found := false
			for _, cand := range vs {
				if valueEq(v, cand) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// valueEq compares document values, normalizing numeric widths so that an
// int filter matches a float64 decoded from JSON or BSON.
func valueEq(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// sortDocs orders docs in place. Missing fields sort first.
func sortDocs(docs []Document, order *Ordering) {
	if order == nil {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		less := valueLess(docs[i][order.Field], docs[j][order.Field])
		if order.Desc {
			return valueLess(docs[j][order.Field], docs[i][order.Field])
		}
		return less
	})
}

func valueLess(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Before(bt)
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

// clone returns a deep-enough copy of doc so callers cannot alias stored state.
func clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		switch vv := v.(type) {
		case []any:
			cp := make([]any, len(vv))
			copy(cp, vv)
			out[k] = cp
		case []string:
			cp := make([]string, len(vv))
			copy(cp, vv)
			out[k] = cp
		case Document:
			out[k] = clone(vv)
		case map[string]any:
			out[k] = map[string]any(clone(Document(vv)))
		default:
			out[k] = v
		}
	}
	return out
}
