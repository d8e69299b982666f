package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	dayLayout = "2006-01-02"
)

// OperationRecord is one finished batch or image operation.
type OperationRecord struct {
	Operation  string    `json:"operation_type"`
	Status     string    `json:"status"`
	FileCount  int       `json:"file_count"`
	Bytes      int64     `json:"-"`
	DurationMs int64     `json:"processing_time_ms"`
	CreatedAt  time.Time `json:"created_at"`
	Client     string    `json:"session_id"`
}

type DayStats struct {
	Visitors      int64 `json:"visitors"`
	NewVisitors   int64 `json:"new_visitors"`
	Operations    int64 `json:"operations"`
	Successful    int64 `json:"successful"`
	Failed        int64 `json:"failed"`
	DataProcessed int64 `json:"data_processed"`
}

type TotalStats struct {
	Users             int64   `json:"users"`
	Operations        int64   `json:"operations"`
	Successful        int64   `json:"successful"`
	Failed            int64   `json:"failed"`
	DataProcessed     int64   `json:"data_processed"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
}

type OperationBreakdown struct {
	OperationType string  `json:"operation_type"`
	Count         int64   `json:"count"`
	Successful    int64   `json:"successful"`
	Failed        int64   `json:"failed"`
	AvgTime       float64 `json:"avg_time"`
}

// Dashboard is the aggregate served by /api/dashboard/stats.
type Dashboard struct {
	Today              DayStats             `json:"today"`
	Yesterday          DayStats             `json:"yesterday"`
	Total              TotalStats           `json:"total"`
	OperationBreakdown []OperationBreakdown `json:"operation_breakdown"`
	RecentOperations   []OperationRecord    `json:"recent_operations"`
}

// ZeroDashboard is served when the store is unavailable.
func ZeroDashboard() Dashboard {
	return Dashboard{OperationBreakdown: []OperationBreakdown{}, RecentOperations: []OperationRecord{}}
}

// RedisStats keeps operation counters in Redis.
type RedisStats struct {
	client *redis.Client
	keyNS  string

	// Now is the clock used for day buckets.
	Now func() time.Time
	// RecentLimit caps recent_operations.
	RecentLimit int
	// BreakdownDays is the window of operation_breakdown.
	BreakdownDays int
	// Retention is the TTL of per-day keys.
	Retention time.Duration
}

func NewRedisStats(redisURL string) (*RedisStats, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RedisStats{
		client:        c,
		keyNS:         "stats",
		Now:           time.Now,
		RecentLimit:   10,
		BreakdownDays: 30,
		Retention:     45 * 24 * time.Hour,
	}, nil
}

func (s *RedisStats) key(parts ...string) string {
	k := s.keyNS
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func day(t time.Time) string { return t.UTC().Format(dayLayout) }

// Record adds rec to the day, total and per-operation counters.
func (s *RedisStats) Record(ctx context.Context, rec OperationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.Now()
	}
	d := day(rec.CreatedAt)
	dayKey := s.key("day", d)
	opsKey := s.key("ops", d)
	opKey := s.key("ops", d, rec.Operation)

	newVisitor := false
	if rec.Client != "" {
		added, err := s.client.SAdd(ctx, s.key("visitors"), rec.Client).Result()
		if err != nil {
			return fmt.Errorf("record visitor: %w", err)
		}
		newVisitor = added == 1
	}

	outcome := "failed"
	if rec.Status == StatusSuccess {
		outcome = "successful"
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, dayKey, "operations", 1)
	pipe.HIncrBy(ctx, dayKey, outcome, 1)
	pipe.HIncrBy(ctx, dayKey, "bytes", rec.Bytes)
	if rec.Client != "" {
		visitorsKey := s.key("day", d, "visitors")
		pipe.PFAdd(ctx, visitorsKey, rec.Client)
		pipe.Expire(ctx, visitorsKey, s.Retention)
	}
	if newVisitor {
		pipe.HIncrBy(ctx, dayKey, "new_visitors", 1)
	}
	pipe.Expire(ctx, dayKey, s.Retention)

	totalKey := s.key("total")
	pipe.HIncrBy(ctx, totalKey, "operations", 1)
	pipe.HIncrBy(ctx, totalKey, outcome, 1)
	pipe.HIncrBy(ctx, totalKey, "bytes", rec.Bytes)
	pipe.HIncrBy(ctx, totalKey, "duration_ms", rec.DurationMs)

	pipe.SAdd(ctx, opsKey, rec.Operation)
	pipe.Expire(ctx, opsKey, s.Retention)
	pipe.HIncrBy(ctx, opKey, "count", 1)
	pipe.HIncrBy(ctx, opKey, outcome, 1)
	pipe.HIncrBy(ctx, opKey, "duration_ms", rec.DurationMs)
	pipe.Expire(ctx, opKey, s.Retention)

	pipe.LPush(ctx, s.key("recent"), payload)
	pipe.LTrim(ctx, s.key("recent"), 0, int64(s.RecentLimit-1))

	_, err = pipe.Exec(ctx)
	return err
}

// Dashboard aggregates the counters for the dashboard view.
func (s *RedisStats) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.Now()
	out := ZeroDashboard()

	var err error
	if out.Today, err = s.dayStats(ctx, day(now)); err != nil {
		return ZeroDashboard(), err
	}
	if out.Yesterday, err = s.dayStats(ctx, day(now.AddDate(0, 0, -1))); err != nil {
		return ZeroDashboard(), err
	}
	if out.Total, err = s.totalStats(ctx); err != nil {
		return ZeroDashboard(), err
	}
	if out.OperationBreakdown, err = s.breakdown(ctx, now); err != nil {
		return ZeroDashboard(), err
	}
	if out.RecentOperations, err = s.recent(ctx); err != nil {
		return ZeroDashboard(), err
	}
	return out, nil
}

func (s *RedisStats) dayStats(ctx context.Context, d string) (DayStats, error) {
	h, err := s.client.HGetAll(ctx, s.key("day", d)).Result()
	if err != nil {
		return DayStats{}, err
	}
	visitors, err := s.client.PFCount(ctx, s.key("day", d, "visitors")).Result()
	if err != nil {
		return DayStats{}, err
	}
	return DayStats{
		Visitors:      visitors,
		NewVisitors:   atoi(h["new_visitors"]),
		Operations:    atoi(h["operations"]),
		Successful:    atoi(h["successful"]),
		Failed:        atoi(h["failed"]),
		DataProcessed: atoi(h["bytes"]),
	}, nil
}

func (s *RedisStats) totalStats(ctx context.Context) (TotalStats, error) {
	h, err := s.client.HGetAll(ctx, s.key("total")).Result()
	if err != nil {
		return TotalStats{}, err
	}
	users, err := s.client.SCard(ctx, s.key("visitors")).Result()
	if err != nil {
		return TotalStats{}, err
	}
	t := TotalStats{
		Users:         users,
		Operations:    atoi(h["operations"]),
		Successful:    atoi(h["successful"]),
		Failed:        atoi(h["failed"]),
		DataProcessed: atoi(h["bytes"]),
	}
	if t.Operations > 0 {
		t.AvgProcessingTime = float64(atoi(h["duration_ms"])) / float64(t.Operations)
	}
	return t, nil
}

func (s *RedisStats) breakdown(ctx context.Context, now time.Time) ([]OperationBreakdown, error) {
	type acc struct{ count, ok, failed, dur int64 }
	sums := map[string]*acc{}
	for i := 0; i < s.BreakdownDays; i++ {
		d := day(now.AddDate(0, 0, -i))
		ops, err := s.client.SMembers(ctx, s.key("ops", d)).Result()
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			h, err := s.client.HGetAll(ctx, s.key("ops", d, op)).Result()
			if err != nil {
				return nil, err
			}
			a := sums[op]
			if a == nil {
				a = &acc{}
				sums[op] = a
			}
			a.count += atoi(h["count"])
			a.ok += atoi(h["successful"])
			a.failed += atoi(h["failed"])
			a.dur += atoi(h["duration_ms"])
		}
	}
	out := make([]OperationBreakdown, 0, len(sums))
	for op, a := range sums {
		b := OperationBreakdown{OperationType: op, Count: a.count, Successful: a.ok, Failed: a.failed}
		if a.count > 0 {
			b.AvgTime = float64(a.dur) / float64(a.count)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].OperationType < out[j].OperationType
	})
	return out, nil
}

func (s *RedisStats) recent(ctx context.Context) ([]OperationRecord, error) {
	raw, err := s.client.LRange(ctx, s.key("recent"), 0, int64(s.RecentLimit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]OperationRecord, 0, len(raw))
	for _, r := range raw {
		var rec OperationRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStats) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStats) Close() error { return s.client.Close() }

func atoi(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
