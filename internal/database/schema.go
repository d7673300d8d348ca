package database

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                    TEXT PRIMARY KEY,
	notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	language              TEXT NOT NULL DEFAULT 'en',
	tier                  TEXT NOT NULL DEFAULT 'free',
	device_token          TEXT,
	last_checked_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS alerts (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id),
	market      TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	percentage  DOUBLE PRECISION NOT NULL,
	base_price  DOUBLE PRECISION NOT NULL,
	upper_limit DOUBLE PRECISION NOT NULL,
	lower_limit DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS alerts_user_id_idx ON alerts (user_id);
`

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
