package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/sistempim/pimserver/internal/pkg/apperrors"
)

// DefaultCallTimeout bounds every unary gateway call when no tighter
// deadline is already on the context.
const DefaultCallTimeout = 5 * time.Second

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout decorates a gateway so every unary call carries a deadline
// and a deadline miss surfaces as apperrors.ErrTransient, keeping
// retryable failures distinguishable from not-found or permission errors.
// Subscriptions are long-lived and pass through unbounded.
func WithTimeout(next Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &timeoutGateway{next: next, timeout: timeout}
}

func (g *timeoutGateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func mapDeadline(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTransientError("store call timed out")
	}
	return err
}

func (g *timeoutGateway) Get(ctx context.Context, collection, key string) (Document, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	doc, err := g.next.Get(ctx, collection, key)
	return doc, mapDeadline(err)
}

func (g *timeoutGateway) Merge(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return mapDeadline(g.next.Merge(ctx, collection, key, fields))
}

func (g *timeoutGateway) Replace(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return mapDeadline(g.next.Replace(ctx, collection, key, fields))
}

func (g *timeoutGateway) Delete(ctx context.Context, collection, key string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return mapDeadline(g.next.Delete(ctx, collection, key))
}

func (g *timeoutGateway) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	key, err := g.next.Add(ctx, collection, fields)
	return key, mapDeadline(err)
}

func (g *timeoutGateway) Query(ctx context.Context, collection string, filters []Where, order *Order, limit int) ([]Document, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	docs, err := g.next.Query(ctx, collection, filters, order, limit)
	return docs, mapDeadline(err)
}

func (g *timeoutGateway) Batch(ctx context.Context, writes []Write) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return mapDeadline(g.next.Batch(ctx, writes))
}

func (g *timeoutGateway) Subscribe(ctx context.Context, collection string, filters []Where, order *Order) (*Subscription, error) {
	sub, err := g.next.Subscribe(ctx, collection, filters, order)
	return sub, mapDeadline(err)
}
