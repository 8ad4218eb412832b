package store

import (
	"fmt"
	"strings"
)

// Column types are chosen to parse on all three supported engines: VARCHAR
// for anything indexed or keyed (MySQL cannot index bare TEXT), BOOLEAN and
// TIMESTAMP which sqlite accepts by affinity.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL DEFAULT 'user',
			requested_role VARCHAR(32) NOT NULL DEFAULT 'user',
			is_approved BOOLEAN NOT NULL DEFAULT FALSE,
			approved_by VARCHAR(36),
			approved_at TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			rejected_at TIMESTAMP,
			last_login TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sheet_files (
			id VARCHAR(36) PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			original_name VARCHAR(255) NOT NULL,
			mimetype VARCHAR(128) NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			path VARCHAR(1024) NOT NULL,
			header_count INTEGER NOT NULL DEFAULT 0,
			row_count INTEGER NOT NULL DEFAULT 0,
			uploaded_by VARCHAR(36) NOT NULL REFERENCES accounts(id),
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX idx_accounts_requested ON accounts(requested_role, is_approved)`,
		`CREATE INDEX idx_sheet_files_uploaded_by ON sheet_files(uploaded_by)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Re-running index/column migrations is a no-op. MySQL reports
			// "duplicate key name", sqlite and postgres "already exists".
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "duplicate column") ||
				strings.Contains(msg, "duplicate key name") ||
				strings.Contains(msg, "already exists") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
