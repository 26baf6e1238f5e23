package broadcast

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const transportPush = "push"

// ChangeFeed streams every committed version of a client's assignments.
// Watch blocks until ctx is done (returning nil) or the stream breaks.
type ChangeFeed interface {
	Watch(ctx context.Context, clientID primitive.ObjectID, emit func(*domain.ClientWorkoutAssignment)) error
}

// PushChannel treats the persisted record as the event source: the store
// commit is the publication, and subscribers follow the record's change feed.
type PushChannel struct {
	feed          ChangeFeed
	retryInterval time.Duration
	metrics       *metrics.Manager
}

func NewPushChannel(feed ChangeFeed, retryInterval time.Duration, metricsManager *metrics.Manager) *PushChannel {
	if retryInterval <= 0 {
		retryInterval = DefaultPollInterval
	}
	return &PushChannel{
		feed:          feed,
		retryInterval: retryInterval,
		metrics:       metricsManager,
	}
}

// Publish only validates; the commit already wrote the record the feed emits.
func (c *PushChannel) Publish(_ context.Context, assignment *domain.ClientWorkoutAssignment) error {
	return validateOutbound(assignment)
}

func (c *PushChannel) Subscribe(ctx context.Context, clientID primitive.ObjectID, onUpdate UpdateFunc) (Subscription, error) {
	if onUpdate == nil {
		return nil, ErrNoCallback
	}
	if clientID.IsZero() {
		return nil, ErrNoClient
	}

	sub := startSubscription(ctx, c.metrics, func(ctx context.Context) {
		c.follow(ctx, clientID, onUpdate)
	})
	return sub, nil
}

func (c *PushChannel) follow(ctx context.Context, clientID primitive.ObjectID, onUpdate UpdateFunc) {
	logger := log.WithFields(log.Fields{"client": clientID.Hex(), "transport": transportPush})

	// the gate outlives reconnects so a resumed stream cannot replay old versions
	gate := newVersionGate()
	emit := func(a *domain.ClientWorkoutAssignment) {
		if !gate.admit(a) {
			c.metrics.CounterSyncDiscarded.WithLabelValues(transportPush).Inc()
			return
		}
		c.metrics.CounterSyncDeliveries.WithLabelValues(transportPush).Inc()
		onUpdate(a)
	}

	for {
		err := c.feed.Watch(ctx, clientID, emit)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.metrics.CounterTransportErrors.WithLabelValues(transportPush).Inc()
			logger.Warnf("change feed interrupted, retrying in %s: %s", c.retryInterval, err)
		}

		timer := time.NewTimer(c.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
