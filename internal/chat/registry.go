package chat

import (
	"sync"
)

// Registry tracks live sessions grouped by topic id.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string]map[string]*Session)}
}

// Join registers a session under its topic group.
func (r *Registry) Join(topicID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[topicID]; !ok {
		r.topics[topicID] = make(map[string]*Session)
	}
	r.topics[topicID][s.Handle()] = s
}

// Leave removes a session from its topic group. Safe to call for sessions
// that never joined, and safe to call more than once.
func (r *Registry) Leave(topicID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.topics[topicID]
	if !ok {
		return
	}
	delete(group, s.Handle())
	if len(group) == 0 {
		delete(r.topics, topicID)
	}
}

// Count returns the number of live sessions in a topic group.
func (r *Registry) Count(topicID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topicID])
}
