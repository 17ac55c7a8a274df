package migrations

import (
	"os"
	"path/filepath"
)

var (
	// MigrationsDir can be overridden in tests or by the application
	MigrationsDir = "scripts/migrations"
)

// GetInitialSchema returns the initial database schema. The on-disk SQL file
// is preferred when present; a relocated binary falls back to the embedded
// copy.
func GetInitialSchema() (string, error) {
	searchPaths := []string{
		filepath.Join(MigrationsDir, "001_initial_schema.sql"),
		filepath.Join("..", "..", MigrationsDir, "001_initial_schema.sql"),
		filepath.Join("..", MigrationsDir, "001_initial_schema.sql"),
	}

	for _, path := range searchPaths {
		schemaContent, err := os.ReadFile(path)
		if err == nil {
			return string(schemaContent), nil
		}
	}

	return initialSchema, nil
}

var initialSchema = `
CREATE TABLE IF NOT EXISTS media_records (
    id TEXT PRIMARY KEY,
    file_unique_id TEXT NOT NULL,
    file_id TEXT,
    content_hash TEXT,
    media_kind TEXT NOT NULL,
    mime_type TEXT,
    file_name TEXT,
    storage_bucket TEXT,
    storage_object TEXT,
    public_url TEXT,
    channel_id INTEGER,
    message_id INTEGER,
    media_group_id TEXT,
    caption TEXT,
    conversion_status TEXT NOT NULL DEFAULT 'none',
    conversion_job_ref TEXT,
    error_message TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_media_file_unique_id ON media_records(file_unique_id);
CREATE INDEX IF NOT EXISTS idx_media_content_hash ON media_records(content_hash);
CREATE INDEX IF NOT EXISTS idx_media_channel ON media_records(channel_id);
CREATE INDEX IF NOT EXISTS idx_media_group ON media_records(media_group_id);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    destination TEXT NOT NULL,
    fields_sent TEXT,
    status TEXT NOT NULL,
    http_status INTEGER,
    response_body TEXT,
    item_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_deliveries_created ON webhook_deliveries(created_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_destination ON webhook_deliveries(destination);

CREATE TRIGGER IF NOT EXISTS trg_media_records_updated_at
AFTER UPDATE ON media_records
BEGIN
    UPDATE media_records SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
END;
`
