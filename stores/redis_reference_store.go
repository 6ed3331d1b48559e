package stores

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oarkflow/policyeval"
)

// RedisReferenceStore keeps tag/team/role names in Redis sets so validation
// mode can check references without hitting the primary store. Lookups are
// existence-only: descriptions and hierarchy stay in SQL.
type RedisReferenceStore struct {
	client *redis.Client
}

func NewRedisReferenceStore(client *redis.Client) *RedisReferenceStore {
	return &RedisReferenceStore{client: client}
}

const (
	redisTagKey  = "ref:tags"
	redisTeamKey = "ref:teams"
	redisRoleKey = "ref:roles"
)

func (r *RedisReferenceStore) AddTag(ctx context.Context, fqn string) error {
	return r.client.SAdd(ctx, redisTagKey, fqn).Err()
}

func (r *RedisReferenceStore) AddTeam(ctx context.Context, name string) error {
	return r.client.SAdd(ctx, redisTeamKey, name).Err()
}

func (r *RedisReferenceStore) AddRole(ctx context.Context, name string) error {
	return r.client.SAdd(ctx, redisRoleKey, name).Err()
}

func (r *RedisReferenceStore) RemoveTag(ctx context.Context, fqn string) error {
	return r.client.SRem(ctx, redisTagKey, fqn).Err()
}

func (r *RedisReferenceStore) RemoveTeam(ctx context.Context, name string) error {
	return r.client.SRem(ctx, redisTeamKey, name).Err()
}

func (r *RedisReferenceStore) RemoveRole(ctx context.Context, name string) error {
	return r.client.SRem(ctx, redisRoleKey, name).Err()
}

func (r *RedisReferenceStore) GetTag(ctx context.Context, fqn string) (*policyeval.Tag, error) {
	ok, err := r.client.SIsMember(ctx, redisTagKey, fqn).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", fqn, policyeval.ErrNotFound)
	}
	return &policyeval.Tag{FQN: fqn}, nil
}

func (r *RedisReferenceStore) GetTeam(ctx context.Context, name string) (*policyeval.Team, error) {
	ok, err := r.client.SIsMember(ctx, redisTeamKey, name).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("team %s: %w", name, policyeval.ErrNotFound)
	}
	return &policyeval.Team{Name: name}, nil
}

func (r *RedisReferenceStore) GetRole(ctx context.Context, name string) (*policyeval.Role, error) {
	ok, err := r.client.SIsMember(ctx, redisRoleKey, name).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("role %s: %w", name, policyeval.ErrNotFound)
	}
	return &policyeval.Role{Name: name}, nil
}
