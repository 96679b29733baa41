package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("document not found")

// PrefixSentinel is the highest code point used to close a lexicographic
// prefix range: names in [term, term+PrefixSentinel) share the prefix term.
const PrefixSentinel = "\uf8ff"

// Document is a stored record together with its key.
type Document struct {
	Key    string
	Fields map[string]interface{}
}

// Operator is a query filter operator.
type Operator string

const (
	OpEqual         Operator = "=="
	OpGreaterEqual  Operator = ">="
	OpLessEqual     Operator = "<="
	OpArrayContains Operator = "array-contains"
)

// Where is a single query filter on a document field.
type Where struct {
	Field string
	Op    Operator
	Value interface{}
}

// Order describes the sort applied to query results.
type Order struct {
	Field string
	Desc  bool
}

// WriteKind discriminates the operations allowed inside a Batch.
type WriteKind int

const (
	WriteMerge WriteKind = iota
	WriteReplace
	WriteDelete
)

// Write is one entry of an atomic batch.
type Write struct {
	Kind       WriteKind
	Collection string
	Key        string
	Fields     map[string]interface{}
}

// Gateway is the persistence contract the core services are written
// against. Collections are path strings ("users", "chats/<id>/messages").
// Implementations must apply Batch atomically: either every write lands
// or none does.
type Gateway interface {
	// Get returns the document under key, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Merge creates or updates the document, leaving fields not present
	// in the argument untouched.
	Merge(ctx context.Context, collection, key string, fields map[string]interface{}) error

	// Replace creates the document or overwrites it entirely.
	Replace(ctx context.Context, collection, key string, fields map[string]interface{}) error

	// Delete removes the document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, key string) error

	// Add inserts a document under a store-generated key and returns the key.
	Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error)

	// Query returns documents matching every filter, sorted by order when
	// given. limit <= 0 means no limit.
	Query(ctx context.Context, collection string, filters []Where, order *Order, limit int) ([]Document, error)

	// Batch applies all writes atomically.
	Batch(ctx context.Context, writes []Write) error

	// Subscribe opens a live snapshot stream for the given query. The
	// caller owns the returned subscription and must call Cancel exactly
	// once when done; the snapshot channel closes after cancellation.
	Subscribe(ctx context.Context, collection string, filters []Where, order *Order) (*Subscription, error)
}

// Subscription is a handle on a live query stream.
type Subscription struct {
	snapshots chan []Document
	cancel    func()
	once      sync.Once
}

// NewSubscription builds a subscription around a snapshot channel and the
// function that tears the underlying listener down.
func NewSubscription(snapshots chan []Document, cancel func()) *Subscription {
	return &Subscription{snapshots: snapshots, cancel: cancel}
}

// Snapshots returns the channel on which full query result snapshots are
// delivered. The channel is closed after Cancel.
func (s *Subscription) Snapshots() <-chan []Document {
	return s.snapshots
}

// Cancel releases the underlying listener. Safe to call more than once;
// only the first call has effect.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Field transforms. These sentinel values may appear as field values in
// Merge, Replace, Add and Batch writes; implementations resolve them at
// write time so concurrent writers cannot clobber each other.

type serverTimestamp struct{}

// ServerTimestamp resolves to the store's clock at write time.
var ServerTimestamp interface{} = serverTimestamp{}

type arrayUnion struct{ values []interface{} }

// ArrayUnion appends each value to the array field unless an equal element
// is already present.
func ArrayUnion(values ...interface{}) interface{} {
	return arrayUnion{values: values}
}

type arrayRemove struct{ values []interface{} }

// ArrayRemove deletes every element equal to one of the values from the
// array field.
func ArrayRemove(values ...interface{}) interface{} {
	return arrayRemove{values: values}
}

// ResolveFields copies fields into dst, resolving transform sentinels
// against dst's current contents and the given write time. Shared by
// gateway implementations so transform semantics stay identical.
func ResolveFields(dst, fields map[string]interface{}, now time.Time) {
	for name, value := range fields {
		switch tv := value.(type) {
		case serverTimestamp:
			dst[name] = now
		case arrayUnion:
			dst[name] = unionInto(asArray(dst[name]), tv.values)
		case arrayRemove:
			dst[name] = removeFrom(asArray(dst[name]), tv.values)
		default:
			dst[name] = value
		}
	}
}

func asArray(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	// A scalar under an array transform is treated as a single-element array.
	return []interface{}{v}
}

func unionInto(arr []interface{}, values []interface{}) []interface{} {
	for _, v := range values {
		if !containsValue(arr, v) {
			arr = append(arr, v)
		}
	}
	if arr == nil {
		arr = []interface{}{}
	}
	return arr
}

func removeFrom(arr []interface{}, values []interface{}) []interface{} {
	kept := make([]interface{}, 0, len(arr))
	for _, el := range arr {
		if !containsValue(values, el) {
			kept = append(kept, el)
		}
	}
	return kept
}

func containsValue(arr []interface{}, v interface{}) bool {
	for _, el := range arr {
		if equalValue(el, v) {
			return true
		}
	}
	return false
}

// equalValue compares field values loosely enough to survive a JSON
// round-trip: numbers compare by value regardless of concrete type.
func equalValue(a, b interface{}) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v interface{}) (float64, bool) {
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

// Matches reports whether the document fields satisfy the filter.
func (w Where) Matches(fields map[string]interface{}) bool {
	value, ok := fields[w.Field]
	if !ok {
		return false
	}
	switch w.Op {
	case OpEqual:
		return equalValue(value, w.Value)
	case OpGreaterEqual:
		return CompareValues(value, w.Value) >= 0
	case OpLessEqual:
		return CompareValues(value, w.Value) <= 0
	case OpArrayContains:
		return containsValue(asArray(value), w.Value)
	}
	return false
}

// CompareValues orders two field values. Strings order lexicographically,
// numbers by value, times chronologically; mixed types order by their
// string form.
func CompareValues(a, b interface{}) int {
	if at, aok := AsTime(a); aok {
		if bt, bok := AsTime(b); bok {
			return at.Compare(bt)
		}
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	as, bs := stringify(a), stringify(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// AsTime converts a stored timestamp back to time.Time. JSON round-trips
// (the Postgres gateway) turn time.Time into RFC3339 strings.
func AsTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
