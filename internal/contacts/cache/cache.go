// Package cache stores the per-organization duplicate-check candidates so
// repeated checks while a user types do not reload every company and
// contact name from the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gartstein/crm/internal/contacts/matcher"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "contacts:candidates:"

// Candidates is the cached duplicate-check data of one organization.
type Candidates struct {
	Companies []matcher.Company `json:"companies"`
	Persons   []matcher.Person  `json:"persons"`
}

// CandidateCache is the cache the duplicate service depends on.
//
// Every organization has a generation that Invalidate advances. Get returns
// the current generation along with the stored candidates (nil on a miss),
// and Set only makes candidates visible if that generation is still
// current, so a snapshot loaded before an invalidation is never served
// after it.
type CandidateCache interface {
	Get(ctx context.Context, orgID uuid.UUID) (*Candidates, int64, error)
	Set(ctx context.Context, orgID uuid.UUID, generation int64, candidates *Candidates) error
	Invalidate(ctx context.Context, orgID uuid.UUID) error
}

// Redis keeps candidates as JSON values with a TTL, one key per
// generation. Entries of older generations are never read again and
// expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// GenerationKey holds the organization's generation counter.
func GenerationKey(orgID uuid.UUID) string {
	return keyPrefix + orgID.String() + ":generation"
}

// Key holds the candidates of one generation.
func Key(orgID uuid.UUID, generation int64) string {
	return keyPrefix + orgID.String() + ":" + strconv.FormatInt(generation, 10)
}

func (r *Redis) Get(ctx context.Context, orgID uuid.UUID) (*Candidates, int64, error) {
	generation, err := r.client.Get(ctx, GenerationKey(orgID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("failed to read candidate generation: %w", err)
	}

	data, err := r.client.Get(ctx, Key(orgID, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read candidates: %w", err)
	}

	var candidates Candidates
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, generation, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return &candidates, generation, nil
}

func (r *Redis) Set(ctx context.Context, orgID uuid.UUID, generation int64, candidates *Candidates) error {
	data, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}
	if err := r.client.Set(ctx, Key(orgID, generation), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store candidates: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	if err := r.client.Incr(ctx, GenerationKey(orgID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate candidates: %w", err)
	}
	return nil
}

// Ping checks that Redis answers.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Nop never stores anything; every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*Candidates, int64, error) { return nil, 0, nil }

func (Nop) Set(context.Context, uuid.UUID, int64, *Candidates) error { return nil }

func (Nop) Invalidate(context.Context, uuid.UUID) error { return nil }
