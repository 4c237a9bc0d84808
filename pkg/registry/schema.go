package registry

// SchemaVersion identifies the current shape of the model_servers table.
const SchemaVersion = 1

// Schema creates the sole persisted table and its query indexes. There are
// no migrations: the schema is established once at process startup.
const Schema = `
CREATE TABLE IF NOT EXISTS model_servers (
	registration_id      TEXT PRIMARY KEY,
	model_name           TEXT NOT NULL,
	endpoint_url         TEXT NOT NULL,
	backend_api_key      TEXT,
	max_tokens           INTEGER,
	context_length       INTEGER,
	streaming            INTEGER NOT NULL DEFAULT 0,
	owner_student_id     TEXT,
	owner_description    TEXT,
	owner_email          TEXT,
	registered_at        TEXT NOT NULL,
	last_checked_at      TEXT,
	last_latency_ms      INTEGER,
	health_status        TEXT NOT NULL DEFAULT 'unknown',
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	is_active            INTEGER NOT NULL DEFAULT 1,
	updated_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_model_servers_model_name ON model_servers(model_name);
CREATE INDEX IF NOT EXISTS idx_model_servers_health_status ON model_servers(health_status);
CREATE INDEX IF NOT EXISTS idx_model_servers_is_active ON model_servers(is_active);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version)
SELECT ? WHERE NOT EXISTS (SELECT 1 FROM schema_version);
`

const getSchemaVersion = `SELECT version FROM schema_version LIMIT 1;`
