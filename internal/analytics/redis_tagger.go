package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisStream  = "lemon:analytics"
	defaultRedisTimeout = 3 * time.Second
	defaultRedisMaxLen  = 100000
)

// RedisStreamConfig configures the Redis stream sink.
type RedisStreamConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
	Timeout  time.Duration
	Logger   *zap.Logger
}

// RedisStreamTagger appends each event to a Redis stream with XADD.
type RedisStreamTagger struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisStreamTagger builds a tagger writing to cfg.Stream on the Redis server at cfg.Addr.
func NewRedisStreamTagger(cfg RedisStreamConfig) (*RedisStreamTagger, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("analytics: redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = defaultRedisStream
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = defaultRedisMaxLen
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStreamTagger{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
		}),
		stream:  stream,
		maxLen:  maxLen,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Stream returns the stream key events are appended to.
func (t *RedisStreamTagger) Stream() string {
	return t.stream
}

// Tag implements Tagger. Failures are logged and dropped.
func (t *RedisStreamTagger) Tag(ctx context.Context, event Event) {
	attributes, err := json.Marshal(event.Attributes)
	if err != nil {
		t.logger.Warn("analytics event encoding failed", zap.String("event", event.Name), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	err = t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.stream,
		MaxLen: t.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   event.ID,
			"name":       event.Name,
			"tagged_at":  event.TaggedAt.Format(time.RFC3339Nano),
			"attributes": string(attributes),
		},
	}).Err()
	if err != nil {
		t.logger.Warn("analytics event delivery failed",
			zap.String("event", event.Name),
			zap.String("stream", t.stream),
			zap.Error(err),
		)
	}
}

// Close releases the Redis connection pool.
func (t *RedisStreamTagger) Close() error {
	return t.client.Close()
}
