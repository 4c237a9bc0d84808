package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

// SQLiteConfig configures the SQLite-backed registry store.
type SQLiteConfig struct {
	// Path is the database file path (e.g. "data/gateway.db").
	Path string

	// MaxOpenConns caps concurrent connections. Default: 10.
	MaxOpenConns int

	// BusyTimeout is how long a writer waits on a locked database. Default: 5s.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns sane defaults for local deployment.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/gateway.db",
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on top of a single SQLite file in WAL mode.
// Per-record write serialization is provided by SQLite's own locking;
// cross-record operations use a single shared mutex to keep the
// uniqueness-check-then-insert sequence atomic from the application's
// point of view.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// cfg.Path, enables WAL mode, and establishes the schema.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "registry.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("registry: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initialize(cfg); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("registry store initialized", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStore) initialize(cfg *SQLiteConfig) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("registry: enable wal: %w", err)
	}
	busyMs := cfg.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyMs)); err != nil {
		return fmt.Errorf("registry: set busy_timeout: %w", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("registry: create schema: %w", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("registry: insert schema version: %w", err)
	}
	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("registry: read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("registry: schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, record *ServerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_servers WHERE registration_id = ?`, record.RegistrationID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("registry: check registration_id: %w", err)
	}
	if exists > 0 {
		return apierrors.New(apierrors.KindConflict, "registration_id already exists")
	}

	if record.IsActive {
		conflict, err := s.activeConflict(ctx, record.ModelName, record.EndpointURL, "")
		if err != nil {
			return err
		}
		if conflict {
			return apierrors.New(apierrors.KindConflict, "model_name and endpoint_url combination already registered")
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_servers (
			registration_id, model_name, endpoint_url, backend_api_key,
			max_tokens, context_length, streaming,
			owner_student_id, owner_description, owner_email,
			registered_at, last_checked_at, last_latency_ms,
			health_status, consecutive_failures, is_active, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RegistrationID, record.ModelName, record.EndpointURL, nullableString(record.BackendAPIKey),
		nullableInt(record.Capabilities.MaxTokens), nullableInt(record.Capabilities.ContextLength), boolToInt(record.Capabilities.Streaming),
		nullableString(record.Owner.StudentID), nullableString(record.Owner.Description), nullableString(record.Owner.Email),
		formatTime(record.RegisteredAt), nullableTime(record.LastCheckedAt), nullableInt(record.LastLatencyMs),
		string(record.HealthStatus), record.ConsecutiveFailures, boolToInt(record.IsActive), formatTime(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("registry: insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, registrationID string) (*ServerRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM model_servers WHERE registration_id = ?`, registrationID)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get: %w", err)
	}
	return record, nil
}

func (s *SQLiteStore) Patch(ctx context.Context, registrationID string, patch Patch) (*ServerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.Get(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	newModelName := record.ModelName
	newEndpoint := record.EndpointURL
	if patch.ModelName != nil {
		newModelName = *patch.ModelName
	}
	if patch.EndpointURL != nil {
		newEndpoint = *patch.EndpointURL
	}
	willBeActive := record.IsActive
	if patch.IsActive != nil {
		willBeActive = *patch.IsActive
	}
	if willBeActive {
		conflict, err := s.activeConflict(ctx, newModelName, newEndpoint, registrationID)
		if err != nil {
			return nil, err
		}
		if conflict {
			return nil, apierrors.New(apierrors.KindConflict, "model_name and endpoint_url combination already registered")
		}
	}

	applyPatch(record, patch)
	record.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		UPDATE model_servers SET
			model_name = ?, endpoint_url = ?, backend_api_key = ?,
			max_tokens = ?, context_length = ?, streaming = ?,
			owner_student_id = ?, owner_description = ?, owner_email = ?,
			last_checked_at = ?, last_latency_ms = ?,
			health_status = ?, consecutive_failures = ?, is_active = ?, updated_at = ?
		WHERE registration_id = ?`,
		record.ModelName, record.EndpointURL, nullableString(record.BackendAPIKey),
		nullableInt(record.Capabilities.MaxTokens), nullableInt(record.Capabilities.ContextLength), boolToInt(record.Capabilities.Streaming),
		nullableString(record.Owner.StudentID), nullableString(record.Owner.Description), nullableString(record.Owner.Email),
		nullableTime(record.LastCheckedAt), nullableInt(record.LastLatencyMs),
		string(record.HealthStatus), record.ConsecutiveFailures, boolToInt(record.IsActive), formatTime(record.UpdatedAt),
		registrationID,
	)
	if err != nil {
		return nil, fmt.Errorf("registry: patch: %w", err)
	}
	return record, nil
}

func (s *SQLiteStore) SoftDelete(ctx context.Context, registrationID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE model_servers SET is_active = 0, updated_at = ? WHERE registration_id = ? AND is_active = 1`,
		formatTime(time.Now().UTC()), registrationID)
	if err != nil {
		return fmt.Errorf("registry: soft_delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*ServerRecord, error) {
	query := selectColumns + ` FROM model_servers WHERE 1=1`
	args := []interface{}{}
	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	if filter.ModelName != "" {
		query += ` AND model_name = ?`
		args = append(args, filter.ModelName)
	}
	if filter.HealthStatus != "" {
		query += ` AND health_status = ?`
		args = append(args, string(filter.HealthStatus))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("registry: list: %w", err)
	}
	defer rows.Close()

	results := make([]*ServerRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: list scan: %w", err)
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) FindHealthy(ctx context.Context, modelName string) ([]*ServerRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM model_servers
		WHERE is_active = 1 AND model_name = ? AND health_status = ?
		ORDER BY registered_at ASC, registration_id ASC`,
		modelName, string(StatusHealthy))
	if err != nil {
		return nil, fmt.Errorf("registry: find_healthy: %w", err)
	}
	defer rows.Close()

	results := make([]*ServerRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: find_healthy scan: %w", err)
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CountServers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_servers WHERE is_active = 1`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) CountModels(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT model_name) FROM model_servers WHERE is_active = 1`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Models: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT model_name, health_status FROM model_servers WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("registry: stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var model, status string
		if err := rows.Scan(&model, &status); err != nil {
			return nil, fmt.Errorf("registry: stats scan: %w", err)
		}
		stats.TotalServers++
		stats.Models[model]++
		switch HealthStatus(status) {
		case StatusHealthy:
			stats.Healthy++
		case StatusUnhealthy:
			stats.Unhealthy++
		default:
			stats.Unknown++
		}
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// activeConflict reports whether an active record other than excludeID
// already occupies (modelName, normalized endpointURL).
func (s *SQLiteStore) activeConflict(ctx context.Context, modelName, endpointURL, excludeID string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT registration_id, endpoint_url FROM model_servers WHERE is_active = 1 AND model_name = ?`, modelName)
	if err != nil {
		return false, fmt.Errorf("registry: activeConflict: %w", err)
	}
	defer rows.Close()

	target := normalizeURL(endpointURL)
	for rows.Next() {
		var id, url string
		if err := rows.Scan(&id, &url); err != nil {
			return false, err
		}
		if id == excludeID {
			continue
		}
		if normalizeURL(url) == target {
			return true, nil
		}
	}
	return false, rows.Err()
}

const selectColumns = `SELECT
	registration_id, model_name, endpoint_url, backend_api_key,
	max_tokens, context_length, streaming,
	owner_student_id, owner_description, owner_email,
	registered_at, last_checked_at, last_latency_ms,
	health_status, consecutive_failures, is_active, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*ServerRecord, error) {
	var r ServerRecord
	var backendAPIKey, ownerStudentID, ownerDescription, ownerEmail sql.NullString
	var maxTokens, contextLength, lastLatencyMs sql.NullInt64
	var streaming, isActive int
	var registeredAt, updatedAt string
	var lastCheckedAt sql.NullString

	err := row.Scan(
		&r.RegistrationID, &r.ModelName, &r.EndpointURL, &backendAPIKey,
		&maxTokens, &contextLength, &streaming,
		&ownerStudentID, &ownerDescription, &ownerEmail,
		&registeredAt, &lastCheckedAt, &lastLatencyMs,
		&r.HealthStatus, &r.ConsecutiveFailures, &isActive, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.BackendAPIKey = backendAPIKey.String
	r.Owner = Owner{StudentID: ownerStudentID.String, Description: ownerDescription.String, Email: ownerEmail.String}
	r.Capabilities.Streaming = streaming != 0
	if maxTokens.Valid {
		v := int(maxTokens.Int64)
		r.Capabilities.MaxTokens = &v
	}
	if contextLength.Valid {
		v := int(contextLength.Int64)
		r.Capabilities.ContextLength = &v
	}
	if lastLatencyMs.Valid {
		v := int(lastLatencyMs.Int64)
		r.LastLatencyMs = &v
	}
	r.IsActive = isActive != 0
	r.RegisteredAt, err = time.Parse(time.RFC3339Nano, registeredAt)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, err
	}
	if lastCheckedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastCheckedAt.String)
		if err != nil {
			return nil, err
		}
		r.LastCheckedAt = &t
	}
	return &r, nil
}

func formatTime(t time.Time) string {
	// Fixed-width fraction (RFC3339Nano drops trailing zeros) so that the
	// stored text sorts in time order under ORDER BY.
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
