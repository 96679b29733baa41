package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sistempim/pimserver/internal/pkg/apperrors"
)

// slowGateway blocks every call until its context expires.
type slowGateway struct{}

func (slowGateway) wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (g slowGateway) Get(ctx context.Context, collection, key string) (Document, error) {
	return Document{}, g.wait(ctx)
}
func (g slowGateway) Merge(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	return g.wait(ctx)
}
func (g slowGateway) Replace(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	return g.wait(ctx)
}
func (g slowGateway) Delete(ctx context.Context, collection, key string) error {
	return g.wait(ctx)
}
func (g slowGateway) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	return "", g.wait(ctx)
}
func (g slowGateway) Query(ctx context.Context, collection string, filters []Where, order *Order, limit int) ([]Document, error) {
	return nil, g.wait(ctx)
}
func (g slowGateway) Batch(ctx context.Context, writes []Write) error {
	return g.wait(ctx)
}
func (g slowGateway) Subscribe(ctx context.Context, collection string, filters []Where, order *Order) (*Subscription, error) {
	return nil, nil
}

func TestWithTimeoutMapsDeadlineToTransient(t *testing.T) {
	gw := WithTimeout(slowGateway{}, 10*time.Millisecond)

	_, err := gw.Get(context.Background(), "users", "u1")
	if !errors.Is(err, apperrors.ErrTransient) {
		t.Fatalf("Get error = %v, want ErrTransient", err)
	}

	err = gw.Batch(context.Background(), []Write{{Kind: WriteMerge, Collection: "users", Key: "u1"}})
	if !errors.Is(err, apperrors.ErrTransient) {
		t.Fatalf("Batch error = %v, want ErrTransient", err)
	}
}

func TestWithTimeoutKeepsCallerDeadline(t *testing.T) {
	gw := WithTimeout(slowGateway{}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.Get(ctx, "users", "u1")
	if !errors.Is(err, apperrors.ErrTransient) {
		t.Fatalf("Get error = %v, want ErrTransient", err)
	}
	if time.Since(start) > time.Second {
		t.Error("caller deadline was not honored")
	}
}
