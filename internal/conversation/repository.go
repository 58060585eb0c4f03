package conversation

import (
	"context"
	"errors"
)

// ErrNotFound indicates no record exists for the user.
var ErrNotFound = errors.New("conversation: record not found")

// ErrConflict indicates the record changed between read and write, or a
// create raced with another one. The losing delivery should be dropped, not
// retried blindly.
var ErrConflict = errors.New("conversation: record modified concurrently")

// AnswerMutation is the typed partial update applied when a valid answer
// arrives: store one answer property and move the status pointer, without
// rewriting the rest of the record.
type AnswerMutation struct {
	Property   string
	Value      string
	NextStatus int

	// ExpectedUpdatedAt is the UpdatedAt value observed when the record was
	// read. The write fails with ErrConflict if the stored value differs.
	ExpectedUpdatedAt string
}

// Repository persists conversation records keyed by user id.
type Repository interface {
	// Create inserts a new record, failing with ErrConflict if one already
	// exists for the user. Implementations fill in the timestamps.
	Create(ctx context.Context, rec *Record) error

	// GetByUserID returns the user's live record or ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*Record, error)

	// SetAnswer applies an answer mutation under optimistic concurrency.
	SetAnswer(ctx context.Context, userID string, mut AnswerMutation) error

	// Delete removes the user's record. Deleting an absent record is a no-op,
	// not an error.
	Delete(ctx context.Context, userID string) error
}
