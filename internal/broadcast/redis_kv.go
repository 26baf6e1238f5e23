package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	changedPayload = "changed"

	// casAttempts bounds optimistic retries of CompareAndSet under WATCH.
	casAttempts = 5
)

// RedisKeyValue implements KeyValue on a redis server: plain keys for the
// values and pub/sub for the storageChanged signal.
type RedisKeyValue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKeyValue stores values with the given ttl; 0 keeps them forever.
func NewRedisKeyValue(client *redis.Client, ttl time.Duration) *RedisKeyValue {
	return &RedisKeyValue{
		client: client,
		ttl:    ttl,
	}
}

func (kv *RedisKeyValue) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := kv.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyMissing
		}
		return nil, err
	}
	return val, nil
}

// CompareAndSet reads and writes key inside a WATCH transaction. A concurrent
// write to key aborts the transaction, which is then retried from the read.
func (kv *RedisKeyValue) CompareAndSet(ctx context.Context, key string, value []byte, accept func(current []byte) bool) (bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		written := false
		err := kv.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				current = nil
			case err != nil:
				return err
			}
			if !accept(current) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, value, kv.ttl)
				return nil
			})
			if err == nil {
				written = true
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			log.Debugf("compare-and-set %s: lost race, attempt %d", key, attempt+1)
			continue
		}
		return written, err
	}
	return false, ErrContended
}

func (kv *RedisKeyValue) Notify(ctx context.Context, channel string) error {
	return kv.client.Publish(ctx, channel, changedPayload).Err()
}

func (kv *RedisKeyValue) Changed(ctx context.Context, channel string) (<-chan struct{}, error) {
	pubsub := kv.client.Subscribe(ctx, channel)
	// wait for the subscription confirmation so signals sent after return are not lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Debugf("close pubsub %s: %s", channel, err)
			}
		}()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				// coalesce bursts; one pending signal is enough to trigger a poll
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
