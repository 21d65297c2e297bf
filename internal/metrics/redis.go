package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/visitor-pulse/internal/analytics"
	"github.com/eleven-am/visitor-pulse/internal/dto"
	"github.com/redis/go-redis/v9"
)

const (
	metricsTTL = 7 * 24 * time.Hour

	fieldTotal     = "total"
	pagePrefix     = "page:"
	countryPrefix  = "country:"
	defaultKeyRoot = "visitor_pulse"
)

var _ Recorder = (*RedisRecorder)(nil)

type RedisRecorder struct {
	redis  *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRecorder(client *redis.Client) *RedisRecorder {
	return &RedisRecorder{
		redis:  client,
		prefix: defaultKeyRoot,
		now:    time.Now,
	}
}

func (r *RedisRecorder) key(date string, hour int) string {
	return fmt.Sprintf("%s:hourly:%s:%02d", r.prefix, date, hour)
}

func (r *RedisRecorder) Enabled() bool { return true }

// Record buckets the event by its own timestamp, so late events land in the
// hour they happened in.
func (r *RedisRecorder) Record(ctx context.Context, event analytics.VisitorEvent) error {
	key := r.key(hourKey(event.Timestamp))

	pipe := r.redis.Pipeline()
	pipe.HIncrBy(ctx, key, fieldTotal, 1)
	pipe.HIncrBy(ctx, key, pagePrefix+event.Page, 1)
	pipe.HIncrBy(ctx, key, countryPrefix+event.Country, 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Hourly returns the non-empty buckets of the trailing hours, newest first.
func (r *RedisRecorder) Hourly(ctx context.Context, hours int) ([]*dto.HourlyMetrics, error) {
	if hours <= 0 {
		hours = DefaultHours
	}
	if hours > MaxHours {
		hours = MaxHours
	}

	now := r.now().UTC().Truncate(time.Hour)

	pipe := r.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, hours)
	for i := 0; i < hours; i++ {
		cmds[i] = pipe.HGetAll(ctx, r.key(hourKey(now.Add(-time.Duration(i)*time.Hour))))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make([]*dto.HourlyMetrics, 0)
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		date, hour := hourKey(now.Add(-time.Duration(i) * time.Hour))
		m := &dto.HourlyMetrics{
			Date:      date,
			Hour:      hour,
			Pages:     make(map[string]int64),
			Countries: make(map[string]int64),
		}
		for field, raw := range data {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			switch {
			case field == fieldTotal:
				m.Total = v
			case strings.HasPrefix(field, pagePrefix):
				m.Pages[strings.TrimPrefix(field, pagePrefix)] = v
			case strings.HasPrefix(field, countryPrefix):
				m.Countries[strings.TrimPrefix(field, countryPrefix)] = v
			}
		}
		out = append(out, m)
	}
	return out, nil
}
