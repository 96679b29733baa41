// Package memstore provides an in-memory docstore.Gateway used by tests
// and local development. All operations are safe for concurrent use and
// live subscriptions receive a fresh snapshot after every mutation of
// their collection.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// Store is a map-backed docstore.Gateway.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	subscribers map[*subscriber]struct{}
	now         func() time.Time
}

type subscriber struct {
	collection string
	filters    []docstore.Where
	order      *docstore.Order
	snapshots  chan []docstore.Document
	closed     bool
}

// New creates an empty store using the wall clock for server timestamps.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store with an injectable clock, so tests
// can control the store-assigned timestamps.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]interface{}),
		subscribers: make(map[*subscriber]struct{}),
		now:         now,
	}
}

func (s *Store) collection(name string) map[string]map[string]interface{} {
	col, ok := s.collections[name]
	if !ok {
		col = make(map[string]map[string]interface{})
		s.collections[name] = col
	}
	return col
}

// Get implements docstore.Gateway.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][key]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{Key: key, Fields: cloneFields(fields)}, nil
}

// Merge implements docstore.Gateway.
func (s *Store) Merge(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.applyMerge(collection, key, fields)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

// Replace implements docstore.Gateway.
func (s *Store) Replace(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.applyReplace(collection, key, fields)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

// Delete implements docstore.Gateway.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.collections[collection], key)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

// Add implements docstore.Gateway.
func (s *Store) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := uuid.New().String()

	s.mu.Lock()
	s.applyReplace(collection, key, fields)
	s.mu.Unlock()

	s.notify(collection)
	return key, nil
}

// Query implements docstore.Gateway.
func (s *Store) Query(ctx context.Context, collection string, filters []docstore.Where, order *docstore.Order, limit int) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLocked(collection, filters, order, limit), nil
}

// Batch implements docstore.Gateway. All writes are applied under one
// lock acquisition, so readers never observe a partial batch.
func (s *Store) Batch(ctx context.Context, writes []docstore.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	touched := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		switch w.Kind {
		case docstore.WriteMerge:
			s.applyMerge(w.Collection, w.Key, w.Fields)
		case docstore.WriteReplace:
			s.applyReplace(w.Collection, w.Key, w.Fields)
		case docstore.WriteDelete:
			delete(s.collections[w.Collection], w.Key)
		}
		touched[w.Collection] = struct{}{}
	}
	s.mu.Unlock()

	for collection := range touched {
		s.notify(collection)
	}
	return nil
}

// Subscribe implements docstore.Gateway. The initial snapshot is delivered
// before Subscribe returns.
func (s *Store) Subscribe(ctx context.Context, collection string, filters []docstore.Where, order *docstore.Order) (*docstore.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscriber{
		collection: collection,
		filters:    filters,
		order:      order,
		snapshots:  make(chan []docstore.Document, 16),
	}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	sub.push(s.queryLocked(collection, filters, order, 0))
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[sub]; ok {
			delete(s.subscribers, sub)
			sub.closed = true
			close(sub.snapshots)
		}
	}
	return docstore.NewSubscription(sub.snapshots, cancel), nil
}

func (s *Store) applyMerge(collection, key string, fields map[string]interface{}) {
	col := s.collection(collection)
	doc, ok := col[key]
	if !ok {
		doc = make(map[string]interface{})
		col[key] = doc
	}
	docstore.ResolveFields(doc, cloneFields(fields), s.now())
}

func (s *Store) applyReplace(collection, key string, fields map[string]interface{}) {
	doc := make(map[string]interface{})
	docstore.ResolveFields(doc, cloneFields(fields), s.now())
	s.collection(collection)[key] = doc
}

func (s *Store) queryLocked(collection string, filters []docstore.Where, order *docstore.Order, limit int) []docstore.Document {
	var results []docstore.Document
	for key, fields := range s.collections[collection] {
		matched := true
		for _, f := range filters {
			if !f.Matches(fields) {
				matched = false
				break
			}
		}
		if matched {
			results = append(results, docstore.Document{Key: key, Fields: cloneFields(fields)})
		}
	}

	if order != nil {
		sort.SliceStable(results, func(i, j int) bool {
			cmp := docstore.CompareValues(results[i].Fields[order.Field], results[j].Fields[order.Field])
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	} else {
		// Deterministic output for tests.
		sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// notify recomputes and pushes snapshots for every subscriber on the
// mutated collection.
func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		if sub.collection != collection || sub.closed {
			continue
		}
		sub.push(s.queryLocked(sub.collection, sub.filters, sub.order, 0))
	}
}

// push delivers a snapshot without blocking; when the consumer lags, the
// oldest buffered snapshot is dropped since only the latest state matters.
func (sub *subscriber) push(snapshot []docstore.Document) {
	for {
		select {
		case sub.snapshots <- snapshot:
			return
		default:
			select {
			case <-sub.snapshots:
			default:
			}
		}
	}
}

func cloneFields(fields map[string]interface{}) map[string]interface{} {
	cloned := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		cloned[name] = cloneValue(value)
	}
	return cloned
}

func cloneValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return cloneFields(v)
	case []interface{}:
		arr := make([]interface{}, len(v))
		for i, el := range v {
			arr[i] = cloneValue(el)
		}
		return arr
	default:
		return value
	}
}
