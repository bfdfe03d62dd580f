package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"dinescout_backend/platform/apperr"

	"github.com/redis/go-redis/v9"
)

const replyKeyPrefix = "claimsync:reply:"

// ReplyStore holds command replies keyed by command ID so callers can fetch
// outcomes without an asynq inspector. Replies expire after the configured
// TTL; a caller that polls later than that treats the command as lost and
// re-issues it with a new ID.
type ReplyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewReplyStore creates a reply store over an existing redis client.
func NewReplyStore(client redis.UniversalClient, ttl time.Duration) *ReplyStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReplyStore{client: client, ttl: ttl}
}

// Close releases the underlying redis client.
func (s *ReplyStore) Close() error {
	return s.client.Close()
}

// Put stores the serialized reply for a command ID.
func (s *ReplyStore) Put(ctx context.Context, commandID string, reply []byte) error {
	if err := s.client.Set(ctx, replyKeyPrefix+commandID, reply, s.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "store command reply", err).WithOp("ReplyStore.Put")
	}
	return nil
}

// Get returns the raw reply for a command ID, or NotFound if it has not been
// written yet or already expired.
func (s *ReplyStore) Get(ctx context.Context, commandID string) ([]byte, error) {
	data, err := s.client.Get(ctx, replyKeyPrefix+commandID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("reply not found").WithOp("ReplyStore.Get")
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "fetch command reply", err).WithOp("ReplyStore.Get")
	}
	return data, nil
}

// GetResult fetches and decodes just the Result envelope of a reply.
func (s *ReplyStore) GetResult(ctx context.Context, commandID string) (Result, error) {
	data, err := s.Get(ctx, commandID)
	if err != nil {
		return Result{}, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "decode command reply", err).WithOp("ReplyStore.GetResult")
	}
	return result, nil
}
