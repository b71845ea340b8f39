/*
Copyright (C) 2026  The kvs Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package kv

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// AuditSink mirrors completed compactions to an external system (§4.11).
// A sink failure is logged by the caller and never fails the compaction
// that produced the event.
type AuditSink interface {
	RecordCompaction(event CompactionEvent) error
}

// SQLAuditSink appends one row per compaction to a MySQL-compatible table,
// the same driver-import-for-side-effects pattern this codebase already
// uses to reach a SQL backend.
type SQLAuditSink struct {
	DB    *sql.DB
	Table string
}

// NewSQLAuditSink opens a connection pool against dsn and ensures the
// audit table exists.
func NewSQLAuditSink(dsn, table string) (*SQLAuditSink, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit sink: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit sink: %w", err)
	}
	s := &SQLAuditSink{DB: db, Table: table}
	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		generation BIGINT UNSIGNED NOT NULL,
		bytes_reclaimed BIGINT UNSIGNED NOT NULL,
		live_keys BIGINT NOT NULL,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`, s.Table)
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit sink: creating table: %w", err)
	}
	return s, nil
}

func (s *SQLAuditSink) RecordCompaction(event CompactionEvent) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (generation, bytes_reclaimed, live_keys, recorded_at) VALUES (?, ?, ?, ?)`, s.Table)
	_, err := s.DB.Exec(stmt, event.Generation, event.BytesReclaimed, event.LiveKeys, event.Timestamp)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	return nil
}

func (s *SQLAuditSink) Close() error {
	return s.DB.Close()
}

// MultiAuditSink fans one compaction event out to several sinks (for
// example, a SQL mirror and the monitoring surface's broadcaster). Every
// sink is called even after one fails; the first failure is returned.
type MultiAuditSink []AuditSink

func (m MultiAuditSink) RecordCompaction(event CompactionEvent) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.RecordCompaction(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
