package service

import (
	"alcyxob/coach-progression/internal/broadcast"
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/repository/memory"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingChannel struct {
	mu         sync.Mutex
	published  []*domain.ClientWorkoutAssignment
	subscribed []primitive.ObjectID
	publishErr error
}

func (c *recordingChannel) Publish(_ context.Context, a *domain.ClientWorkoutAssignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, a.Clone())
	return nil
}

func (c *recordingChannel) Subscribe(_ context.Context, clientID primitive.ObjectID, _ broadcast.UpdateFunc) (broadcast.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = append(c.subscribed, clientID)
	return nopSubscription{}, nil
}

func (c *recordingChannel) versions() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, 0, len(c.published))
	for _, a := range c.published {
		out = append(out, a.Version)
	}
	return out
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() {}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{objects: make(map[string][]byte)}
}

func (s *memoryArchive) PutObject(_ context.Context, key, _ string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), body...)
	return nil
}

func (s *memoryArchive) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://archive.example/" + key + "?signed", nil
}

// racingRepo lets a concurrent writer win the next races commits.
type racingRepo struct {
	*memory.AssignmentRepo
	mu         sync.Mutex
	races      int
	concurrent func(a *domain.ClientWorkoutAssignment)
}

func (r *racingRepo) ReplaceIfVersion(ctx context.Context, a *domain.ClientWorkoutAssignment, expectedVersion int64) error {
	r.mu.Lock()
	race := r.races > 0
	if race {
		r.races--
	}
	r.mu.Unlock()

	if race {
		winner := r.Stored(a.ID)
		if r.concurrent != nil {
			r.concurrent(winner)
		}
		winner.LastModifiedBy = domain.RoleClient
		winner.Version++
		if err := r.AssignmentRepo.ReplaceIfVersion(ctx, winner, winner.Version-1); err != nil {
			return err
		}
	}
	return r.AssignmentRepo.ReplaceIfVersion(ctx, a, expectedVersion)
}
