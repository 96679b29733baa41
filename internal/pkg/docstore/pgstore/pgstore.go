// Package pgstore backs docstore.Gateway with a single jsonb documents
// table on PostgreSQL. Batches run in one transaction with row locks, so
// field transforms resolve against the committed state and multi-document
// writes are all-or-nothing. Live subscriptions are driven by
// LISTEN/NOTIFY (see migrations/001_documents.sql).
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/pkg/docstore"
)

// notifyChannel is the LISTEN/NOTIFY channel the documents trigger fires on.
const notifyChannel = "docstore_changes"

// timestampLayout stores timestamps with a fixed-width fraction, so the
// text projection of a timestamp orders byte-wise in chronological order.
// Plain RFC3339Nano trims trailing zeros, which makes "..00.12Z" sort
// after "..00.123Z".
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a PostgreSQL-backed docstore.Gateway.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates a Store on an existing connection pool.
func New(pool *pgxpool.Pool, logger zerolog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Get implements docstore.Gateway.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND key = $2`

	var data []byte
	err := s.pool.QueryRow(ctx, query, collection, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("error retrieving document: %w", err)
	}

	fields, err := decodeFields(data)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{Key: key, Fields: fields}, nil
}

// Merge implements docstore.Gateway.
func (s *Store) Merge(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	return s.Batch(ctx, []docstore.Write{{Kind: docstore.WriteMerge, Collection: collection, Key: key, Fields: fields}})
}

// Replace implements docstore.Gateway.
func (s *Store) Replace(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	return s.Batch(ctx, []docstore.Write{{Kind: docstore.WriteReplace, Collection: collection, Key: key, Fields: fields}})
}

// Delete implements docstore.Gateway.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	return s.Batch(ctx, []docstore.Write{{Kind: docstore.WriteDelete, Collection: collection, Key: key}})
}

// Add implements docstore.Gateway. Keys are client-generated UUIDs, which
// keeps the insert a plain upsert path.
func (s *Store) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	key := uuid.New().String()
	err := s.Batch(ctx, []docstore.Write{{Kind: docstore.WriteReplace, Collection: collection, Key: key, Fields: fields}})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Query implements docstore.Gateway.
func (s *Store) Query(ctx context.Context, collection string, filters []docstore.Where, order *docstore.Order, limit int) ([]docstore.Document, error) {
	sql, args, err := buildQuery(collection, filters, order, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var documents []docstore.Document
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("error scanning document row: %w", err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, err
		}
		documents = append(documents, docstore.Document{Key: key, Fields: fields})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return documents, nil
}

// buildQuery compiles filters and ordering onto jsonb operators. Range
// filters and ordering compare the text projection of the field under
// COLLATE "C": stored timestamps are fixed-width, so byte order is
// chronological order, and the prefix-search sentinel stays the highest
// value in its window instead of being collation-ignorable.
func buildQuery(collection string, filters []docstore.Where, order *docstore.Order, limit int) (string, []interface{}, error) {
	queryBuilder := squirrel.Select("key", "data").
		From("documents").
		Where("collection = ?", collection).
		PlaceholderFormat(squirrel.Dollar)

	for _, f := range filters {
		switch f.Op {
		case docstore.OpEqual:
			encoded, err := json.Marshal(encodeValue(f.Value))
			if err != nil {
				return "", nil, fmt.Errorf("error encoding filter value: %w", err)
			}
			queryBuilder = queryBuilder.Where("data->"+quoteField(f.Field)+" = ?::jsonb", string(encoded))
		case docstore.OpGreaterEqual:
			queryBuilder = queryBuilder.Where("data->>"+quoteField(f.Field)+` COLLATE "C" >= ?`, rangeArg(f.Value))
		case docstore.OpLessEqual:
			queryBuilder = queryBuilder.Where("data->>"+quoteField(f.Field)+` COLLATE "C" <= ?`, rangeArg(f.Value))
		case docstore.OpArrayContains:
			encoded, err := json.Marshal([]interface{}{encodeValue(f.Value)})
			if err != nil {
				return "", nil, fmt.Errorf("error encoding filter value: %w", err)
			}
			queryBuilder = queryBuilder.Where("data->"+quoteField(f.Field)+" @> ?::jsonb", string(encoded))
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}

	if order != nil {
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		queryBuilder = queryBuilder.OrderBy("data->>" + quoteField(order.Field) + ` COLLATE "C" ` + direction)
	} else {
		queryBuilder = queryBuilder.OrderBy("key ASC")
	}

	if limit > 0 {
		queryBuilder = queryBuilder.Limit(uint64(limit))
	}

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("error building SQL: %w", err)
	}
	return sql, args, nil
}

// Batch implements docstore.Gateway. Every write locks its target row,
// resolves transforms against the current data and upserts the result,
// all inside one transaction.
func (s *Store) Batch(ctx context.Context, writes []docstore.Write) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// The store clock stamps ServerTimestamp transforms so ordering does
	// not depend on client clocks.
	var now time.Time
	if err := tx.QueryRow(ctx, "SELECT now()").Scan(&now); err != nil {
		return fmt.Errorf("failed to read store clock: %w", err)
	}

	for _, w := range writes {
		switch w.Kind {
		case docstore.WriteDelete:
			if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2`, w.Collection, w.Key); err != nil {
				return fmt.Errorf("error deleting document: %w", err)
			}
			continue
		case docstore.WriteMerge, docstore.WriteReplace:
		default:
			return fmt.Errorf("unsupported write kind %d", w.Kind)
		}

		current := make(map[string]interface{})
		if w.Kind == docstore.WriteMerge {
			var data []byte
			err := tx.QueryRow(ctx,
				`SELECT data FROM documents WHERE collection = $1 AND key = $2 FOR UPDATE`,
				w.Collection, w.Key,
			).Scan(&data)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("error locking document: %w", err)
			}
			if err == nil {
				if current, err = decodeFields(data); err != nil {
					return err
				}
			}
		}

		docstore.ResolveFields(current, w.Fields, now.UTC())
		encoded, err := json.Marshal(encodeValue(current))
		if err != nil {
			return fmt.Errorf("error encoding document: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO documents (collection, key, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection, key)
			DO UPDATE SET data = EXCLUDED.data, updated_at = now()
		`, w.Collection, w.Key, encoded)
		if err != nil {
			return fmt.Errorf("error writing document: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Subscribe implements docstore.Gateway. A dedicated connection LISTENs
// for the documents trigger and the query is re-run on every notification
// for the subscribed collection.
func (s *Store) Subscribe(ctx context.Context, collection string, filters []docstore.Where, order *docstore.Order) (*docstore.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	snapshots := make(chan []docstore.Document, 16)
	listenCtx, stopListening := context.WithCancel(context.Background())

	initial, err := s.Query(ctx, collection, filters, order, 0)
	if err != nil {
		stopListening()
		conn.Release()
		return nil, err
	}
	snapshots <- initial

	go func() {
		defer func() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
			close(snapshots)
		}()
		for {
			notification, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() != nil {
					return
				}
				s.logger.Error().Err(err).Str("collection", collection).Msg("Subscription listener failed")
				return
			}
			if notification.Payload != collection {
				continue
			}
			snapshot, err := s.Query(listenCtx, collection, filters, order, 0)
			if err != nil {
				if listenCtx.Err() != nil {
					return
				}
				s.logger.Error().Err(err).Str("collection", collection).Msg("Failed to refresh subscription snapshot")
				continue
			}
			push(snapshots, snapshot)
		}
	}()

	return docstore.NewSubscription(snapshots, stopListening), nil
}

// push delivers the latest snapshot, dropping the oldest buffered one
// when the consumer lags.
func push(snapshots chan []docstore.Document, snapshot []docstore.Document) {
	for {
		select {
		case snapshots <- snapshot:
			return
		default:
			select {
			case <-snapshots:
			default:
			}
		}
	}
}

// encodeValue normalizes a field value tree for jsonb storage. Timestamps
// become fixed-width UTC strings (see timestampLayout).
func encodeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(timestampLayout)
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for name, el := range v {
			m[name] = encodeValue(el)
		}
		return m
	case []interface{}:
		arr := make([]interface{}, len(v))
		for i, el := range v {
			arr[i] = encodeValue(el)
		}
		return arr
	default:
		return value
	}
}

// rangeArg renders a range filter bound for text comparison.
func rangeArg(value interface{}) string {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(timestampLayout)
	}
	return fmt.Sprintf("%v", value)
}

func decodeFields(data []byte) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("error decoding document: %w", err)
	}
	return fields, nil
}

// quoteField embeds a field name as a SQL string literal for jsonb
// access. Field names come from code, never from request input.
func quoteField(field string) string {
	return "'" + field + "'"
}
