package registry

import "context"

// Store is the registry's persistence contract. Both the SQLite-backed and
// in-memory implementations satisfy it, so tests can swap backends freely.
//
// All operations are safe for concurrent invocation from the request path
// and from the health monitor. Writes are serialized per registration_id;
// readers always see a consistent snapshot of a single record.
type Store interface {
	// Insert persists a new record atomically. Fails with a Conflict
	// apierrors.Error if registration_id collides or the active
	// (model_name, normalized endpoint_url) pair is already taken.
	Insert(ctx context.Context, record *ServerRecord) error

	// Get returns the record for registrationID, or a NotFound apierrors.Error.
	Get(ctx context.Context, registrationID string) (*ServerRecord, error)

	// Patch applies a partial update. registered_at is never modified;
	// updated_at is refreshed. Fails NotFound if absent.
	Patch(ctx context.Context, registrationID string, patch Patch) (*ServerRecord, error)

	// SoftDelete sets is_active=false. Idempotent: deleting an already
	// inactive (or missing) record is not an error.
	SoftDelete(ctx context.Context, registrationID string) error

	// List returns an unordered sequence of records matching filter.
	List(ctx context.Context, filter Filter) ([]*ServerRecord, error)

	// FindHealthy returns the active, Healthy records for modelName,
	// ordered by registered_at ascending then registration_id, giving
	// the selector a stable ring.
	FindHealthy(ctx context.Context, modelName string) ([]*ServerRecord, error)

	// CountServers returns the number of active records.
	CountServers(ctx context.Context) (int, error)

	// CountModels returns the number of distinct model names among active records.
	CountModels(ctx context.Context) (int, error)

	// Stats aggregates health counts and per-model counts over active records.
	Stats(ctx context.Context) (*Stats, error)

	// Ping verifies the underlying storage is reachable, for the
	// liveness endpoint.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
