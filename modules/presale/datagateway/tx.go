package datagateway

import "context"

// Tx is a storage transaction handle. Commit applies the buffered writes;
// Rollback discards them. Rollback after a successful Commit must be a
// no-op so it can sit in a defer.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
