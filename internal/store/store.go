// Package store holds the canonical progression state of client assignments
// and commits changes to it with an optimistic version check.
package store

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressionStore loads and commits whole assignment documents. It never
// locks; concurrent writers are told apart by version only.
type ProgressionStore struct {
	repo repository.AssignmentRepository
	now  func() time.Time
}

func NewProgressionStore(repo repository.AssignmentRepository) *ProgressionStore {
	return &ProgressionStore{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Load fetches the latest persisted state of the client's active assignment.
// Returns repository.ErrNotFound when the client has none.
func (s *ProgressionStore) Load(ctx context.Context, clientID primitive.ObjectID) (*domain.ClientWorkoutAssignment, error) {
	a, err := s.repo.FetchActive(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("load assignment for client %s: %w", clientID.Hex(), err)
	}
	return a, nil
}

// Commit stamps the assignment with role, the current time and the next
// version, then persists it if nobody committed since assignment.Version.
// The argument is not modified; the stamped copy is returned.
// Returns repository.ErrStaleVersion when a concurrent commit won.
func (s *ProgressionStore) Commit(ctx context.Context, assignment *domain.ClientWorkoutAssignment, role domain.Role) (*domain.ClientWorkoutAssignment, error) {
	if assignment == nil {
		return nil, errors.New("commit requires an assignment")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("commit: unknown role %q", role)
	}

	base := assignment.Version
	stamped := assignment.Clone()
	stamped.LastModifiedBy = role
	stamped.LastModifiedAt = s.now()
	stamped.Version = base + 1

	if err := s.repo.ReplaceIfVersion(ctx, stamped, base); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			log.WithFields(log.Fields{
				"assignment": assignment.ID.Hex(),
				"base":       base,
				"role":       role,
			}).Debug("commit rejected, stale base version")
			return nil, repository.ErrStaleVersion
		}
		return nil, err
	}
	return stamped, nil
}
