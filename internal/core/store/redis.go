package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/metrics"
)

const (
	redisTokenKeyPrefix = "domaincheck:token:"
	redisTokenIndexKey  = "domaincheck:tokens"
	redisUpsertAttempts = 3
)

// RedisStore keeps each token record as a JSON string and tracks emails in a
// set for listing.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ TokenStore = (*RedisStore)(nil)

// OpenRedis connects using a redis:// or rediss:// URL and pings the server.
func OpenRedis(ctx context.Context, rawURL string) (*RedisStore, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client. Close closes the client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func tokenKey(email string) string {
	return redisTokenKeyPrefix + email
}

// UpsertToken merges rec into the stored record inside a WATCH transaction so
// concurrent callbacks for one email cannot lose created_at.
func (s *RedisStore) UpsertToken(ctx context.Context, rec core.TokenRecord) (core.TokenRecord, error) {
	email, err := normalizeEmail(rec.UserEmail)
	if err != nil {
		return core.TokenRecord{}, err
	}
	rec.UserEmail = email
	key := tokenKey(email)

	stamp := core.FormatTimestamp(s.now())
	rec.UpdatedAt = stamp
	if rec.CreatedAt == "" {
		rec.CreatedAt = stamp
	}

	txn := func(tx *redis.Tx) error {
		existing, err := readToken(ctx, tx, key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			rec.CreatedAt = existing.CreatedAt
			if rec.RefreshToken == "" {
				rec.RefreshToken = existing.RefreshToken
			}
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode token: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, redisTokenIndexKey, email)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisUpsertAttempts; attempt++ {
		err = s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	metrics.RecordTokenWrite(driverRedis, err == nil)
	if err != nil {
		return core.TokenRecord{}, fmt.Errorf("upsert token for %s: %w", email, err)
	}
	return rec, nil
}

// GetToken returns the record stored for email or ErrNotFound.
func (s *RedisStore) GetToken(ctx context.Context, email string) (core.TokenRecord, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.TokenRecord{}, err
	}
	return readToken(ctx, s.client, tokenKey(email))
}

// ListTokens returns every indexed record ordered by email. Index entries
// whose record has disappeared are skipped.
func (s *RedisStore) ListTokens(ctx context.Context) ([]core.TokenRecord, error) {
	emails, err := s.client.SMembers(ctx, redisTokenIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	sort.Strings(emails)

	out := make([]core.TokenRecord, 0, len(emails))
	for _, email := range emails {
		rec, err := readToken(ctx, s.client, tokenKey(email))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping verifies the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Driver returns "redis".
func (s *RedisStore) Driver() string {
	return driverRedis
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readToken(ctx context.Context, c getter, key string) (core.TokenRecord, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.TokenRecord{}, ErrNotFound
	}
	if err != nil {
		return core.TokenRecord{}, fmt.Errorf("load %s: %w", key, err)
	}

	var rec core.TokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.TokenRecord{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, nil
}
