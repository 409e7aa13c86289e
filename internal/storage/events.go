package storage

import (
	"database/sql"
	"errors"
	"time"
)

// EventStore owns DedupRecord persistence. Safe for concurrent use.
type EventStore struct {
	db *Database
}

// NewEventStore creates a new event store.
func NewEventStore(db *Database) *EventStore {
	return &EventStore{db: db}
}

// HasSeen reports whether a notification was already recorded for the
// issue.
func (s *EventStore) HasSeen(repository string, issueNumber int) (bool, error) {
	record, err := s.Get(repository, issueNumber)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Get returns the dedup record for an issue, or nil when the issue has
// not been notified.
func (s *EventStore) Get(repository string, issueNumber int) (*DedupRecord, error) {
	var record DedupRecord
	query := `SELECT * FROM seen_issues WHERE repository = ? AND issue_number = ?`
	err := s.db.Get(&record, query, repository, issueNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	return &record, nil
}

// MarkSeen inserts a dedup record and reports whether this call
// created it. Inserting an existing key is a no-op, not an error: the
// unique constraint plus INSERT OR IGNORE makes the check-then-insert
// atomic, so concurrent redeliveries of the same issue settle on
// exactly one record and exactly one caller sees inserted == true.
func (s *EventStore) MarkSeen(repository string, issueNumber int, at time.Time) (bool, error) {
	query := `
		INSERT OR IGNORE INTO seen_issues (repository, issue_number, notified_at)
		VALUES (?, ?, ?)
	`
	result, err := s.db.Exec(query, repository, issueNumber, at.UTC())
	if err != nil {
		return false, &StoreError{Op: "mark_seen", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, &StoreError{Op: "mark_seen", Err: err}
	}
	return affected > 0, nil
}

// Ping performs a lightweight round trip for the health endpoint.
func (s *EventStore) Ping() error {
	var one int
	if err := s.db.Get(&one, `SELECT 1`); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// CleanupOld removes records older than the retention window to keep
// the ledger from growing without bound.
func (s *EventStore) CleanupOld(daysToKeep int) (int64, error) {
	query := `DELETE FROM seen_issues WHERE datetime(notified_at) < datetime('now', '-' || ? || ' days')`
	result, err := s.db.Exec(query, daysToKeep)
	if err != nil {
		return 0, &StoreError{Op: "cleanup", Err: err}
	}
	return result.RowsAffected()
}
