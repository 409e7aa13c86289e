// Package storage provides the persistent dedup ledger.
package storage

import (
	"errors"
	"fmt"
	"time"
)

// DedupRecord marks a (repository, issue_number) pair as notified.
// At most one record exists per pair; presence means a notification
// was dispatched or attempted.
type DedupRecord struct {
	ID          int64     `db:"id"`
	Repository  string    `db:"repository"`
	IssueNumber int       `db:"issue_number"`
	NotifiedAt  time.Time `db:"notified_at"`
}

// ErrUnavailable marks store failures that the webhook handler should
// answer with a 5xx so GitHub redelivers.
var ErrUnavailable = errors.New("dedup store unavailable")

// StoreError wraps an underlying database failure. It always matches
// ErrUnavailable via errors.Is; duplicate keys are never reported as
// errors.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports ErrUnavailable for any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrUnavailable }
