package broadcast

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPollInterval = 2 * time.Second

	assignmentKeyPrefix  = "progression:assignment:"
	changedChannelPrefix = "progression:changed:"

	transportPoll = "poll"
)

var (
	// ErrKeyMissing is returned by KeyValue.Get for a key that was never set.
	ErrKeyMissing = errors.New("key missing")
	// ErrContended is returned by KeyValue.CompareAndSet when the key kept
	// changing under it.
	ErrContended = errors.New("key contended")
)

// KeyValue is the shared storage the polling transport runs on.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// CompareAndSet stores value under key when accept approves the value
	// currently stored (nil for a missing key), atomically with respect to
	// other writers, and reports whether it wrote.
	CompareAndSet(ctx context.Context, key string, value []byte, accept func(current []byte) bool) (bool, error)
	// Notify emits a storageChanged signal on channel.
	Notify(ctx context.Context, channel string) error
	// Changed delivers a value for every signal on channel until ctx is done,
	// then closes the returned channel.
	Changed(ctx context.Context, channel string) (<-chan struct{}, error)
}

type envelope struct {
	Version    int64                           `bson:"version"`
	Assignment *domain.ClientWorkoutAssignment `bson:"assignment"`
}

func assignmentKey(clientID primitive.ObjectID) string {
	return assignmentKeyPrefix + clientID.Hex()
}

func changedChannel(clientID primitive.ObjectID) string {
	return changedChannelPrefix + clientID.Hex()
}

// PollingChannel publishes the latest assignment under a per-client key and
// has subscribers poll that key on a fixed interval, or right away when a
// storageChanged signal arrives.
type PollingChannel struct {
	kv       KeyValue
	interval time.Duration
	metrics  *metrics.Manager
}

func NewPollingChannel(kv KeyValue, interval time.Duration, metricsManager *metrics.Manager) *PollingChannel {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingChannel{
		kv:       kv,
		interval: interval,
		metrics:  metricsManager,
	}
}

func (c *PollingChannel) Publish(ctx context.Context, assignment *domain.ClientWorkoutAssignment) error {
	if err := validateOutbound(assignment); err != nil {
		return err
	}

	raw, err := bson.Marshal(envelope{Version: assignment.Version, Assignment: assignment})
	if err != nil {
		return fmt.Errorf("encode assignment envelope: %w", err)
	}

	// only a newer version of the stored assignment, or its successor, replaces it
	written, err := c.kv.CompareAndSet(ctx, assignmentKey(assignment.ClientID), raw, func(current []byte) bool {
		if current == nil {
			return true
		}
		env, err := decodeEnvelope(current)
		if err != nil || env.Assignment == nil {
			return true
		}
		return supersedes(assignment, env.Assignment)
	})
	if err != nil {
		c.metrics.CounterTransportErrors.WithLabelValues(transportPoll).Inc()
		return fmt.Errorf("store assignment envelope: %w", err)
	}
	if !written {
		return nil
	}

	// readers still pick the value up on their next tick
	if err := c.kv.Notify(ctx, changedChannel(assignment.ClientID)); err != nil {
		c.metrics.CounterTransportErrors.WithLabelValues(transportPoll).Inc()
		log.WithFields(log.Fields{
			"client":  assignment.ClientID.Hex(),
			"version": assignment.Version,
		}).Warnf("storage changed signal not sent: %s", err)
	}
	return nil
}

func (c *PollingChannel) Subscribe(ctx context.Context, clientID primitive.ObjectID, onUpdate UpdateFunc) (Subscription, error) {
	if onUpdate == nil {
		return nil, ErrNoCallback
	}
	if clientID.IsZero() {
		return nil, ErrNoClient
	}

	sub := startSubscription(ctx, c.metrics, func(ctx context.Context) {
		c.poll(ctx, clientID, onUpdate)
	})
	return sub, nil
}

func (c *PollingChannel) poll(ctx context.Context, clientID primitive.ObjectID, onUpdate UpdateFunc) {
	logger := log.WithFields(log.Fields{"client": clientID.Hex(), "transport": transportPoll})

	changed, err := c.kv.Changed(ctx, changedChannel(clientID))
	if err != nil {
		c.metrics.CounterTransportErrors.WithLabelValues(transportPoll).Inc()
		logger.Warnf("storage changed signal unavailable, polling only: %s", err)
		changed = nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	gate := newVersionGate()
	key := assignmentKey(clientID)
	check := func() {
		env, err := c.read(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.metrics.CounterTransportErrors.WithLabelValues(transportPoll).Inc()
			logger.Warnf("poll assignment: %s", err)
			return
		}
		if env == nil || env.Assignment == nil {
			return
		}
		// the same version is read on every tick until the next publish
		if !gate.admit(env.Assignment) {
			return
		}
		c.metrics.CounterSyncDeliveries.WithLabelValues(transportPoll).Inc()
		onUpdate(env.Assignment)
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		case _, ok := <-changed:
			if !ok {
				changed = nil
				continue
			}
			check()
		}
	}
}

// read returns nil, nil when nothing was published yet.
func (c *PollingChannel) read(ctx context.Context, key string) (*envelope, error) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyMissing) {
			return nil, nil
		}
		return nil, err
	}

	return decodeEnvelope(raw)
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	var env envelope
	if err := bson.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode assignment envelope: %w", err)
	}
	if env.Assignment != nil {
		env.Assignment.Version = env.Version
	}
	return &env, nil
}
