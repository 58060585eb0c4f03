package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRetention = 24 * time.Hour

// ProcessedStore records webhook events that were already handled, so
// platform redeliveries can be acknowledged without acting twice.
type ProcessedStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewProcessedStore(client redis.UniversalClient, retention time.Duration) *ProcessedStore {
	if client == nil {
		panic("events: redis client required")
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &ProcessedStore{client: client, retention: retention}
}

func key(provider, eventID string) string {
	return fmt.Sprintf("processed:%s:%s", provider, eventID)
}

// AlreadyProcessed checks if we've seen this provider event id.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, key(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records an event id for the provider, returning false if it
// was already marked.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(provider, eventID), "1", s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}
