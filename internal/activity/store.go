package activity

import "context"

//go:generate mockgen -source=store.go -destination=mocks/store-mocks.go -package=mocks Store

// Store persists records. Append must be idempotent by record ID so the
// background consumer can retry safely.
type Store interface {
	Append(ctx context.Context, record Record) error
	Search(ctx context.Context, filter Filter) ([]Record, error)
}
