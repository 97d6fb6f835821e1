package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis, giving multiple trafficd instances
// and external dashboards a shared view of the latest snapshots. Snapshots
// expire after the configured TTL so consumers never read state from a
// pipeline that stopped ticking long ago.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
}

// NewRedisStore connects to Redis and verifies the connection.
// ttl 0 defaults to 30 minutes.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if ttl == 0 {
		ttl = 30 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

func snapshotKey(station string) string {
	return fmt.Sprintf("trafficpulse:snapshot:%s", station)
}

// Put stores a snapshot under "trafficpulse:snapshot:{station}" with TTL.
func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	if s.Station == "" {
		return errors.New("station name required")
	}

	for _, c := range s.Station {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid station name %q: only alphanumeric, hyphens, and underscores allowed", s.Station)
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey(s.Station), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot in redis: %w", err)
	}

	return nil
}

// GetLatest retrieves the latest snapshot for a station.
// found is false when the key is missing or expired.
func (r *RedisStore) GetLatest(ctx context.Context, station string) (Snapshot, bool, error) {
	if station == "" {
		return Snapshot{}, false, errors.New("station name required")
	}

	data, err := r.client.Get(ctx, snapshotKey(station)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return snapshot, true, nil
}

// Close closes the Redis client. Safe to call multiple times.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil && err.Error() == "redis: client is closed" {
		return nil
	}

	return err
}

// Ping checks the Redis connection health.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
