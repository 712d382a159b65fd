// README: Matching store backed by Redis: auto-pilot flag and assignment log.
package matching

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const (
	autoPilotKey     = "matching:autopilot"
	assignmentLogKey = "matching:assignments"
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SetAutoPilot(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return s.redis.Set(ctx, autoPilotKey, v, 0).Err()
}

// AutoPilot returns the persisted flag and whether one was found.
func (s *Store) AutoPilot(ctx context.Context) (bool, bool, error) {
	val, err := s.redis.Get(ctx, autoPilotKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// RecordAssignment prepends an entry to the capped assignment log.
func (s *Store) RecordAssignment(ctx context.Context, e AuditEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.redis.Pipeline()
	pipe.LPush(ctx, assignmentLogKey, b)
	pipe.LTrim(ctx, assignmentLogKey, 0, auditLogSize-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) RecentAssignments(ctx context.Context, n int) ([]AuditEntry, error) {
	if n <= 0 || n > auditLogSize {
		n = auditLogSize
	}
	vals, err := s.redis.LRange(ctx, assignmentLogKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(vals))
	for _, v := range vals {
		var e AuditEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
