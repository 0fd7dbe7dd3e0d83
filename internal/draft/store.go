// Package draft provides durable storage for in-progress checklist answer
// state, keyed by assignment identity. Drafts are a convenience, not the
// source of truth: storage failures are logged and treated as skipped saves,
// never surfaced to the user.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"flotilla/api/internal/checklist"
)

// Store keeps draft snapshots in Redis as JSON strings with no expiry; drafts
// are cleared explicitly after a successful submission or on user request.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client, prefix: "draft:"}, nil
}

// NewStoreWithClient creates a store from an existing Redis client.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "draft:"}
}

// Key derives the draft key for the create workflow of an assignment.
func Key(asignacionID int) string {
	return fmt.Sprintf("asignacion:%d", asignacionID)
}

// EditKey derives the draft key for editing an already submitted checklist.
// Kept separate from Key so an edit session cannot clobber a create draft
// for the same assignment.
func EditKey(asignacionID, checklistID int) string {
	return fmt.Sprintf("asignacion:%d:checklist:%d", asignacionID, checklistID)
}

func (s *Store) redisKey(key string) string {
	return s.prefix + key
}

// Save writes a snapshot of the answer state under the key, overwriting any
// previous draft.
func (s *Store) Save(ctx context.Context, key string, st checklist.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns the saved state and whether one exists. Corrupt data is logged
// and reported as "no draft" rather than returned as an error: a draft that
// cannot be decoded is worth exactly as much as no draft at all.
func (s *Store) Load(ctx context.Context, key string) (checklist.State, bool, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if err == redis.Nil {
		return checklist.State{}, false, nil
	}
	if err != nil {
		return checklist.State{}, false, fmt.Errorf("load draft: %w", err)
	}

	var st checklist.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		log.Printf("draft: discarding unparsable draft %s: %v", key, err)
		return checklist.State{}, false, nil
	}
	return st, true, nil
}

// Clear removes the draft. Clearing a key with no draft is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
