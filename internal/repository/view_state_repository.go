package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/studyvault-api/internal/models"
	appErrors "github.com/noah-isme/studyvault-api/pkg/errors"
)

// Named sets kept per browser session.
const (
	SetSaved  = "saved"
	SetHidden = "hidden"
)

// ViewStateRepository keeps per-browser-session filter selections and the
// saved and hidden sets in Redis. Every write refreshes the key TTL.
type ViewStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewStateRepository constructs the repository.
func NewViewStateRepository(client *redis.Client, ttl time.Duration) *ViewStateRepository {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &ViewStateRepository{client: client, ttl: ttl}
}

func viewKey(sessionID string, kind models.ResourceKind, suffix string) string {
	return fmt.Sprintf("view:%s:%s:%s", sessionID, kind, suffix)
}

// LoadFilters returns the stored selection or ErrCacheMiss.
func (r *ViewStateRepository) LoadFilters(ctx context.Context, sessionID string, kind models.ResourceKind) (*models.FilterSelection, error) {
	key := viewKey(sessionID, kind, "filters")
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var selection models.FilterSelection
	if err := json.Unmarshal(raw, &selection); err != nil {
		return nil, fmt.Errorf("unmarshal filters %s: %w", key, err)
	}
	return &selection, nil
}

// SaveFilters stores the selection.
func (r *ViewStateRepository) SaveFilters(ctx context.Context, sessionID string, kind models.ResourceKind, selection models.FilterSelection) error {
	key := viewKey(sessionID, kind, "filters")
	payload, err := json.Marshal(selection)
	if err != nil {
		return fmt.Errorf("marshal filters %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// ClearFilters removes the stored selection.
func (r *ViewStateRepository) ClearFilters(ctx context.Context, sessionID string, kind models.ResourceKind) error {
	key := viewKey(sessionID, kind, "filters")
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// toggleScript flips membership of ARGV[1] in KEYS[1] and refreshes the TTL
// (ARGV[2], milliseconds). Returns 1 when the id is a member afterwards.
var toggleScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	redis.call('SREM', KEYS[1], ARGV[1])
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return 0
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// Toggle adds id to the named set, or removes it if already present, in one
// atomic step. It reports whether the id is a member afterwards.
func (r *ViewStateRepository) Toggle(ctx context.Context, sessionID string, kind models.ResourceKind, set, id string) (bool, error) {
	key := viewKey(sessionID, kind, set)
	member, err := toggleScript.Run(ctx, r.client, []string{key}, id, r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis toggle %s: %w", key, err)
	}
	return member == 1, nil
}

// Members lists the ids in the named set.
func (r *ViewStateRepository) Members(ctx context.Context, sessionID string, kind models.ResourceKind, set string) ([]string, error) {
	key := viewKey(sessionID, kind, set)
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", key, err)
	}
	return ids, nil
}
