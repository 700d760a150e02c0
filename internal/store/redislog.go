// Package store persists decisions and cross-match memory: Postgres for the
// decision history, Redis for the async decision-log queue and LevelDB for
// per-species battle memory.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kaname-hf/vgcsolver/internal/decision"
)

// decisionQueueKey is the Redis list consumed by the decision historian.
const decisionQueueKey = "vgcsolver:decisions"

// redisPublishTimeout bounds each publish so a stalled Redis can never block
// a turn.
const redisPublishTimeout = 2 * time.Second

// RedisLogger publishes decision records to a Redis queue, fire-and-forget.
// A logger with no client drops records silently so the decision path never
// depends on Redis being up.
type RedisLogger struct {
	client *redis.Client
	log    *logrus.Logger
}

// NewRedisLogger connects to addr. An empty addr returns a disabled logger.
func NewRedisLogger(addr string, log *logrus.Logger) *RedisLogger {
	if log == nil {
		log = logrus.New()
	}
	l := &RedisLogger{log: log}
	if addr != "" {
		l.client = redis.NewClient(&redis.Options{Addr: addr})
	}
	return l
}

// LogDecision implements decision.Sink: the record is published from a
// goroutine with a short timeout and failures are logged, never returned.
func (l *RedisLogger) LogDecision(rec decision.Record) {
	if l.client == nil {
		return
	}
	go func(rec decision.Record) {
		ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
		defer cancel()

		raw, err := json.Marshal(rec)
		if err != nil {
			l.log.WithError(err).Error("encode decision record")
			return
		}
		if err := l.client.LPush(ctx, decisionQueueKey, raw).Err(); err != nil {
			l.log.WithError(err).WithField("decision_id", rec.DecisionID).Error("publish decision record")
		}
	}(rec)
}

// Close releases the Redis connection.
func (l *RedisLogger) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
