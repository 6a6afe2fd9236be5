package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	counterKeyPrefix = "praxis:usage:"
	// hourly buckets
	periodLayout = "2006010215"
	// counters outlive the flush interval by a wide margin so a stalled
	// flusher loses nothing
	counterTTL = 48 * time.Hour
)

// CounterStore accumulates per-company request counts in redis. Writes are
// single INCRs on hourly buckets, cheap enough to sit on the request path's
// async tail. The flusher drains closed buckets into postgres.
type CounterStore struct {
	redis *redis.Client
	now   func() time.Time
}

// NewCounterStore creates a redis-backed usage counter store
func NewCounterStore(redisClient *redis.Client) *CounterStore {
	return &CounterStore{redis: redisClient, now: time.Now}
}

func counterKey(companyID int64, period string) string {
	return fmt.Sprintf("%s%d:%s", counterKeyPrefix, companyID, period)
}

// RecordRequest counts one API request against the company's current hourly
// bucket. Implements the usage meter's recorder.
func (c *CounterStore) RecordRequest(ctx context.Context, companyID int64) error {
	key := counterKey(companyID, c.now().UTC().Format(periodLayout))
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("incrementing usage counter: %w", err)
	}
	if count == 1 {
		c.redis.Expire(ctx, key, counterTTL)
	}
	return nil
}

// Bucket is one company's request count for one hourly period
type Bucket struct {
	CompanyID   int64     `json:"company_id"`
	PeriodStart time.Time `json:"period_start"`
	Requests    int64     `json:"requests"`
}

// DrainClosed atomically reads and deletes all counters for periods before
// the current hour. The current bucket is left accumulating.
func (c *CounterStore) DrainClosed(ctx context.Context) ([]Bucket, error) {
	currentPeriod := c.now().UTC().Format(periodLayout)

	var buckets []Bucket
	iter := c.redis.Scan(ctx, 0, counterKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		companyID, period, err := parseCounterKey(key)
		if err != nil {
			// Foreign key under our prefix; skip rather than delete
			continue
		}
		if period >= currentPeriod {
			continue
		}

		value, err := c.redis.GetDel(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return buckets, fmt.Errorf("draining usage counter %s: %w", key, err)
		}
		requests, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}

		periodStart, err := time.ParseInLocation(periodLayout, period, time.UTC)
		if err != nil {
			continue
		}
		buckets = append(buckets, Bucket{
			CompanyID:   companyID,
			PeriodStart: periodStart,
			Requests:    requests,
		})
	}
	if err := iter.Err(); err != nil {
		return buckets, fmt.Errorf("scanning usage counters: %w", err)
	}
	return buckets, nil
}

func parseCounterKey(key string) (companyID int64, period string, err error) {
	rest := strings.TrimPrefix(key, counterKeyPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed counter key: %s", key)
	}
	companyID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed counter key: %s", key)
	}
	return companyID, parts[1], nil
}
