package repositories

import (
	"context"
	"fmt"
	"strconv"

	"github.com/melodysyncer/melodysyncer/internal/models"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	fieldISOTotalCalls      = "ISOtotalCalls"
	fieldMESOTotalCalls     = "MESOtotalCalls"
	fieldSongsConverted     = "MESOsongsConverted"
	fieldPlaylistsConverted = "MESOplaylistsConverted"
)

// RedisAnalytics stores the counters as fields of one hash.
type RedisAnalytics struct {
	client *redis.Client
	key    string
}

// NewRedisAnalytics connects to cfg.Addr and verifies the connection.
func NewRedisAnalytics(ctx context.Context, cfg shared.RedisConfig) (*RedisAnalytics, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "melodysyncer:analytics"
	}
	return &RedisAnalytics{client: client, key: key}, nil
}

// Increment bumps every counter in one transaction.
func (r *RedisAnalytics) Increment(ctx context.Context, songs, playlists int) error {
	d := models.AnalyticsDelta(songs, playlists)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, r.key, fieldISOTotalCalls, d.ISOTotalCalls)
		pipe.HIncrBy(ctx, r.key, fieldMESOTotalCalls, d.MESOTotalCalls)
		pipe.HIncrBy(ctx, r.key, fieldSongsConverted, d.SongsConverted)
		pipe.HIncrBy(ctx, r.key, fieldPlaylistsConverted, d.PlaylistsConverted)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update analytics: %w", err)
	}
	return nil
}

// Snapshot returns the hash as one document, or nothing when the hash does not exist.
func (r *RedisAnalytics) Snapshot(ctx context.Context) ([]models.Analytics, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	a, err := analyticsFromHash(fields)
	if err != nil {
		return nil, err
	}
	return []models.Analytics{a}, nil
}

func analyticsFromHash(fields map[string]string) (models.Analytics, error) {
	var a models.Analytics
	targets := map[string]*int64{
		fieldISOTotalCalls:      &a.ISOTotalCalls,
		fieldMESOTotalCalls:     &a.MESOTotalCalls,
		fieldSongsConverted:     &a.SongsConverted,
		fieldPlaylistsConverted: &a.PlaylistsConverted,
	}
	for name, dst := range targets {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.Analytics{}, fmt.Errorf("invalid %s value %q: %w", name, raw, err)
		}
		*dst = n
	}
	return a, nil
}

// Close closes the client.
func (r *RedisAnalytics) Close(ctx context.Context) error {
	return r.client.Close()
}
