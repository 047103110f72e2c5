package geo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/foodshare/internal/logging"
)

// RedisIndex implements Index with Redis GEO commands so every API instance
// shares one index.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: client, key: key}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password, key string) (*RedisIndex, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logging.Info().Str("addr", addr).Str("key", key).Msg("redis geo index connected")
	return NewRedisIndex(c, key), nil
}

func (r *RedisIndex) Upsert(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Name:      id.String(),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
}

func (r *RedisIndex) Remove(ctx context.Context, id uuid.UUID) error {
	return r.client.ZRem(ctx, r.key, id.String()).Err()
}

func (r *RedisIndex) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Hit, error) {
	res, err := r.client.GeoSearchLocation(ctx, r.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res))
	for _, loc := range res {
		id, err := uuid.Parse(loc.Name)
		if err != nil {
			logging.Warn().Str("member", loc.Name).Msg("skipping malformed geo member")
			continue
		}
		hits = append(hits, Hit{ID: id, DistanceKm: loc.Dist})
	}
	return hits, nil
}

// Close releases the Redis connection pool.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}
