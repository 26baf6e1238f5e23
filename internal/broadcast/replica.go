package broadcast

import (
	"alcyxob/coach-progression/internal/domain"
	"sync"
)

// Replica is a session's local copy of an assignment. Inbound updates only
// replace it when they carry a newer version.
type Replica struct {
	mu      sync.RWMutex
	gate    versionGate
	current *domain.ClientWorkoutAssignment
}

func NewReplica(initial *domain.ClientWorkoutAssignment) *Replica {
	r := &Replica{gate: newVersionGate()}
	r.Reset(initial)
	return r
}

// Offer installs update if it is newer than the local copy and reports
// whether it did.
func (r *Replica) Offer(update *domain.ClientWorkoutAssignment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.gate.admit(update) {
		return false
	}
	r.current = update.Clone()
	return true
}

// Reset replaces the local copy unconditionally, e.g. after a reload from the store.
func (r *Replica) Reset(a *domain.ClientWorkoutAssignment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate.reset(a)
	r.current = a.Clone()
}

// Current returns a copy of the local state, or nil.
func (r *Replica) Current() *domain.ClientWorkoutAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Clone()
}

// Version returns the local version, -1 when empty.
func (r *Replica) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return -1
	}
	return r.current.Version
}
