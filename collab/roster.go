package collab

import (
	"sync"
	"time"

	"github.com/docketly/docketly-api/models"
)

// Roster tracks the set of participants currently present on a document
// session, keyed by participant id. Joins are idempotent so at-least-once
// delivery of user_joined (reconnect replay) never produces duplicates.
type Roster struct {
	mu           sync.RWMutex
	order        []string
	participants map[string]*models.Participant
	now          func() time.Time
}

// NewRoster returns an empty roster
func NewRoster() *Roster {
	return &Roster{
		participants: make(map[string]*models.Participant),
		now:          time.Now,
	}
}

// ApplyJoin inserts the participant, or merges the supplied fields into the
// existing entry when the id has been seen before. Either way lastSeen is
// refreshed. A participant with an empty id is dropped.
func (r *Roster) ApplyJoin(p models.Participant) {
	if p.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.participants[p.ID]
	if !ok {
		joined := p
		if joined.Cursor != nil {
			cursor := *joined.Cursor
			joined.Cursor = &cursor
		}
		joined.LastSeen = r.now()
		r.participants[p.ID] = &joined
		r.order = append(r.order, p.ID)
		return
	}

	if p.Name != "" {
		existing.Name = p.Name
	}
	if p.Email != "" {
		existing.Email = p.Email
	}
	if p.Cursor != nil {
		cursor := *p.Cursor
		existing.Cursor = &cursor
	}
	existing.LastSeen = r.now()
}

// ApplyLeave removes the entry for userID. Removing an absent id is a no-op.
func (r *Roster) ApplyLeave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[userID]; !ok {
		return
	}
	delete(r.participants, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ApplyCursor updates the cursor on the matching participant. Events for ids
// not yet in the roster are dropped; join is authoritative for membership.
// Returns whether the update was applied.
func (r *Roster) ApplyCursor(userID string, x, y float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return false
	}
	p.Cursor = &models.CursorPosition{X: x, Y: y}
	p.LastSeen = r.now()
	return true
}

// Snapshot returns a copy of the roster in join order. Mutating the returned
// slice has no effect on roster state.
func (r *Roster) Snapshot() []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Participant, 0, len(r.order))
	for _, id := range r.order {
		p := *r.participants[id]
		if p.Cursor != nil {
			cursor := *p.Cursor
			p.Cursor = &cursor
		}
		out = append(out, p)
	}
	return out
}

// Len returns the number of tracked participants
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Clear removes every participant. Used on session teardown; callers emit a
// single aggregate disconnected notification, not per-participant leaves.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants = make(map[string]*models.Participant)
	r.order = nil
}
