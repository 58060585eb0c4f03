package conversation

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps records in a process-local map. Used in tests and
// for local development (USE_MEMORY_STORE).
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Create inserts a new record, mirroring the conditional-put semantics of the
// DynamoDB implementation.
func (r *InMemoryRepository) Create(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.UserID]; exists {
		return ErrConflict
	}
	now := time.Now().UTC()
	rec.CreatedAt = now.Format(time.RFC3339Nano)
	rec.UpdatedAt = rec.CreatedAt
	if rec.Answers == nil {
		rec.Answers = map[string]string{}
	}
	stored := *rec
	stored.Answers = copyAnswers(rec.Answers)
	r.records[rec.UserID] = &stored
	return nil
}

// GetByUserID returns a copy of the user's record.
func (r *InMemoryRepository) GetByUserID(ctx context.Context, userID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	out.Answers = copyAnswers(rec.Answers)
	return &out, nil
}

// SetAnswer applies the mutation if the stored UpdatedAt matches the token.
func (r *InMemoryRepository) SetAnswer(ctx context.Context, userID string, mut AnswerMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return ErrConflict
	}
	if rec.UpdatedAt != mut.ExpectedUpdatedAt {
		return ErrConflict
	}
	rec.Answers[mut.Property] = mut.Value
	rec.CurrentStatus = mut.NextStatus
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

// Delete removes the record; deleting an absent record succeeds.
func (r *InMemoryRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, userID)
	return nil
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
