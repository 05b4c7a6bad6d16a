package ledger

import "context"

// Store is the persistence collaborator behind the ledger.
//
// Implementations must return ErrNotFound from DeleteActivity and
// UpdateActivity when the id does not exist. QueryActivities returns an
// empty slice, not an error, when nothing matches.
type Store interface {
	InsertActivity(ctx context.Context, a Activity) error
	QueryActivities(ctx context.Context, f Filter) ([]Activity, error)
	DeleteActivity(ctx context.Context, id string) error
	UpdateActivity(ctx context.Context, id string, patch ActivityPatch) (Activity, error)
}

// Invalidator drops derived per-user state after a ledger write.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context, userID string) error

// Invalidate calls f.
func (f InvalidatorFunc) Invalidate(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context, string) error { return nil }
