// Package broadcast propagates committed assignment versions between the
// coach and client sessions. Delivery is at-least-once and ordered by version;
// receivers drop anything not newer than what they already have.
package broadcast

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/metrics"
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNilAssignment = errors.New("broadcast: assignment is nil")
	ErrNoClient      = errors.New("broadcast: assignment has no client")
	ErrNoCallback    = errors.New("broadcast: onUpdate is nil")
)

// UpdateFunc receives an assignment version newer than the last one delivered
// on the same subscription. It runs on the subscription's worker goroutine.
type UpdateFunc func(assignment *domain.ClientWorkoutAssignment)

// Channel carries committed assignments from the session that wrote them to
// every other session watching the same client.
type Channel interface {
	Publish(ctx context.Context, assignment *domain.ClientWorkoutAssignment) error
	Subscribe(ctx context.Context, clientID primitive.ObjectID, onUpdate UpdateFunc) (Subscription, error)
}

// Subscription is a live Subscribe registration.
type Subscription interface {
	// Unsubscribe stops delivery and waits for the worker to exit. Calling it
	// more than once is harmless. It must not be called from inside onUpdate.
	Unsubscribe()
}

type subscription struct {
	once    sync.Once
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *metrics.Manager
}

func startSubscription(ctx context.Context, m *metrics.Manager, worker func(ctx context.Context)) *subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, metrics: m}
	m.GaugeSubscriptions.Inc()

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		worker(ctx)
	}()
	return sub
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.metrics.GaugeSubscriptions.Dec()
	})
}

func validateOutbound(assignment *domain.ClientWorkoutAssignment) error {
	if assignment == nil {
		return ErrNilAssignment
	}
	if assignment.ClientID.IsZero() {
		return ErrNoClient
	}
	return nil
}

// versionGate admits an inbound assignment only when it is newer than the
// last admitted one. A different assignment starts a new version sequence
// (replacements begin at 0) and is admitted only when it is active and
// supersedes the held one, so a late echo of a replaced assignment cannot
// displace its successor.
type versionGate struct {
	held *domain.ClientWorkoutAssignment
}

func newVersionGate() versionGate {
	return versionGate{}
}

func (g *versionGate) admit(a *domain.ClientWorkoutAssignment) bool {
	if a == nil {
		return false
	}
	switch {
	case g.held == nil:
		if !a.IsActive {
			return false
		}
	case a.ID != g.held.ID:
		if !a.IsActive || !a.Supersedes(g.held) {
			return false
		}
	case a.Version <= g.held.Version:
		return false
	}
	g.reset(a)
	return true
}

// reset holds a without checking it; nil empties the gate.
func (g *versionGate) reset(a *domain.ClientWorkoutAssignment) {
	g.held = nil
	if a != nil {
		g.held = &domain.ClientWorkoutAssignment{ID: a.ID, AssignedAt: a.AssignedAt, Version: a.Version}
	}
}

// supersedes reports whether next may overwrite current in shared storage.
func supersedes(next, current *domain.ClientWorkoutAssignment) bool {
	if current == nil {
		return true
	}
	if next.ID == current.ID {
		return next.Version > current.Version
	}
	return next.Supersedes(current)
}
