package orchestrator

import (
	"sync"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// Registry tracks live orchestrators by session and by user.
// A user runs at most one live session at a time; starting a new one
// replaces the previous entry.
type Registry struct {
	mu        sync.RWMutex
	bySession map[string]*Orchestrator
	byUser    map[shared.UserID]*Orchestrator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bySession: make(map[string]*Orchestrator),
		byUser:    make(map[shared.UserID]*Orchestrator),
	}
}

// Register adds a live orchestrator and wires its removal on finish.
func (r *Registry) Register(o *Orchestrator) {
	r.mu.Lock()
	r.bySession[o.Session().ID()] = o
	r.byUser[o.Session().UserID()] = o
	r.mu.Unlock()

	o.SetOnFinish(r.remove)
}

// BySession returns the live orchestrator for a session ID.
func (r *Registry) BySession(sessionID string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.bySession[sessionID]
	return o, ok
}

// ByUser returns the user's live orchestrator.
func (r *Registry) ByUser(userID shared.UserID) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byUser[userID]
	return o, ok
}

// Live returns all currently registered orchestrators.
func (r *Registry) Live() []*Orchestrator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Orchestrator, 0, len(r.bySession))
	for _, o := range r.bySession {
		out = append(out, o)
	}
	return out
}

func (r *Registry) remove(o *Orchestrator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID := o.Session().ID()
	userID := o.Session().UserID()

	delete(r.bySession, sessionID)
	if cur, ok := r.byUser[userID]; ok && cur == o {
		delete(r.byUser, userID)
	}
}
