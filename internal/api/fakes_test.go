package api

import (
	"alcyxob/coach-progression/internal/broadcast"
	"alcyxob/coach-progression/internal/domain"
	"context"
	"sync"

	"github.com/go-redis/redis_rate/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// localChannel delivers publishes synchronously to in-process subscribers.
type localChannel struct {
	mu     sync.Mutex
	nextID int
	subs   map[primitive.ObjectID]map[int]broadcast.UpdateFunc
}

func newLocalChannel() *localChannel {
	return &localChannel{subs: make(map[primitive.ObjectID]map[int]broadcast.UpdateFunc)}
}

func (ch *localChannel) Publish(_ context.Context, a *domain.ClientWorkoutAssignment) error {
	ch.mu.Lock()
	callbacks := make([]broadcast.UpdateFunc, 0, len(ch.subs[a.ClientID]))
	for _, cb := range ch.subs[a.ClientID] {
		callbacks = append(callbacks, cb)
	}
	ch.mu.Unlock()

	for _, cb := range callbacks {
		cb(a.Clone())
	}
	return nil
}

func (ch *localChannel) Subscribe(_ context.Context, clientID primitive.ObjectID, onUpdate broadcast.UpdateFunc) (broadcast.Subscription, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.subs[clientID] == nil {
		ch.subs[clientID] = make(map[int]broadcast.UpdateFunc)
	}
	ch.nextID++
	id := ch.nextID
	ch.subs[clientID][id] = onUpdate
	return &localSubscription{channel: ch, clientID: clientID, id: id}, nil
}

func (ch *localChannel) subscribers(clientID primitive.ObjectID) int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subs[clientID])
}

type localSubscription struct {
	channel  *localChannel
	clientID primitive.ObjectID
	id       int
}

func (s *localSubscription) Unsubscribe() {
	s.channel.mu.Lock()
	defer s.channel.mu.Unlock()
	delete(s.channel.subs[s.clientID], s.id)
}

type testRequestRateLimiter struct {
	mu sync.Mutex
	// key to remaining requests; keys not in the map are unlimited
	Limits map[string]int
}

func (l *testRequestRateLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := &redis_rate.Result{Limit: limit, Allowed: 1, Remaining: limit.Burst}

	remaining, ok := l.Limits[key]
	if !ok {
		return res, nil
	}
	if remaining <= 0 {
		res.Allowed = 0
		res.Remaining = 0
		res.RetryAfter = limit.Period
		return res, nil
	}
	l.Limits[key]--
	return res, nil
}
