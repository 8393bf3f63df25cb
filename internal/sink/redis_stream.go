package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStream appends every snapshot to a capped Redis stream.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStream takes ownership of client and closes it on Close.
func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStream) Name() string { return "redis-stream" }
func (r *RedisStream) Class() Class { return ClassRelay }

func (r *RedisStream) Consume(ctx context.Context, v View) error {
	data, err := json.Marshal(Record(v.Snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	values := map[string]interface{}{
		"session_id": v.Snapshot.SessionID,
		"timestamp":  v.Snapshot.Timestamp.UnixMilli(),
		"data":       string(data),
	}
	if len(v.Events) > 0 {
		events, err := json.Marshal(EventRecords(v))
		if err != nil {
			return fmt.Errorf("marshal events: %w", err)
		}
		values["events"] = string(events)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

func (r *RedisStream) Close() error {
	return r.client.Close()
}
