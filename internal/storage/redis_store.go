package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forumline/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshots keeps the last fetched flat comment snapshot of each
// publication so a cold process can render before the database answers.
type RedisSnapshots struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSnapshots(rdb *redis.Client, ttl time.Duration) *RedisSnapshots {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSnapshots{rdb: rdb, ttl: ttl}
}

func snapshotKey(pubID string) string {
	return fmt.Sprintf("forum:thread:%s", pubID)
}

type snapshotRecord struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Comments  []model.Comment `json:"comments"`
}

// Load returns the stored snapshot. ok is false on a miss.
func (s *RedisSnapshots) Load(ctx context.Context, pubID string) (comments []model.Comment, fetchedAt time.Time, ok bool, err error) {
	b, err := s.rdb.Get(ctx, snapshotKey(pubID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var rec snapshotRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if rec.Comments == nil {
		rec.Comments = []model.Comment{}
	}
	return rec.Comments, rec.FetchedAt, true, nil
}

// Save replaces the snapshot for pubID.
func (s *RedisSnapshots) Save(ctx context.Context, pubID string, comments []model.Comment, fetchedAt time.Time) error {
	b, err := json.Marshal(snapshotRecord{FetchedAt: fetchedAt, Comments: comments})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, snapshotKey(pubID), b, s.ttl).Err()
}

// Drop removes the snapshot for pubID. Missing keys are not an error.
func (s *RedisSnapshots) Drop(ctx context.Context, pubID string) error {
	return s.rdb.Del(ctx, snapshotKey(pubID)).Err()
}
