package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"social-accounts/internal/backupcode/domain"
)

// markUsedScript flips a code from unused ("0") to its used-at timestamp in one server-side step.
var markUsedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == '0' then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
return 0
`)

// RedisRepository stores each user's set in two hashes keyed by code hash: one with the used state
// ("0" or used-at unix nanos) and one with "id|created-at unix nanos".
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRepository returns a Redis-backed repository. prefix defaults to "backup_codes".
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "backup_codes"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) stateKey(userID string) string {
	return r.prefix + ":{" + userID + "}:state"
}

func (r *RedisRepository) metaKey(userID string) string {
	return r.prefix + ":{" + userID + "}:meta"
}

// Replace swaps the set inside MULTI/EXEC.
func (r *RedisRepository) Replace(ctx context.Context, userID string, codes []*domain.Code) error {
	state := make([]any, 0, len(codes)*2)
	meta := make([]any, 0, len(codes)*2)
	for _, c := range codes {
		used := "0"
		if c.UsedAt != nil {
			used = strconv.FormatInt(c.UsedAt.UnixNano(), 10)
		}
		state = append(state, c.CodeHash, used)
		meta = append(meta, c.CodeHash, c.ID+"|"+strconv.FormatInt(c.CreatedAt.UnixNano(), 10))
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.stateKey(userID), r.metaKey(userID))
		if len(codes) > 0 {
			p.HSet(ctx, r.stateKey(userID), state...)
			p.HSet(ctx, r.metaKey(userID), meta...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("backup codes: redis replace: %w", err)
	}
	return nil
}

// ListUnused returns the unused codes ordered by creation time.
func (r *RedisRepository) ListUnused(ctx context.Context, userID string) ([]*domain.Code, error) {
	state, err := r.client.HGetAll(ctx, r.stateKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var hashes []string
	for h, v := range state {
		if v == "0" {
			hashes = append(hashes, h)
		}
	}
	if len(hashes) == 0 {
		return nil, nil
	}
	metas, err := r.client.HMGet(ctx, r.metaKey(userID), hashes...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Code, 0, len(hashes))
	for i, h := range hashes {
		c := &domain.Code{UserID: userID, CodeHash: h}
		if s, ok := metas[i].(string); ok {
			id, created, _ := strings.Cut(s, "|")
			c.ID = id
			if n, err := strconv.ParseInt(created, 10, 64); err == nil {
				c.CreatedAt = time.Unix(0, n).UTC()
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MarkUsed runs the compare-and-set script.
func (r *RedisRepository) MarkUsed(ctx context.Context, userID, codeHash string) (bool, error) {
	now := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	n, err := markUsedScript.Run(ctx, r.client, []string{r.stateKey(userID)}, codeHash, now).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAll removes both hashes.
func (r *RedisRepository) DeleteAll(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.stateKey(userID), r.metaKey(userID)).Err()
}
