package session

import "sync"

// Store keeps live sessions in process memory, indexed by session ID and by
// (user, quiz) so one user never runs two sessions over the same quiz:
// re-entering returns the active session instead of forking state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byPair   map[pairKey]string
}

type pairKey struct{ userID, quizID string }

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		byPair:   make(map[pairKey]string),
	}
}

// Put registers a session, replacing any finished one for the same
// (user, quiz) pair. An unfinished session for the pair wins: the existing
// session is returned and the new one discarded.
func (st *Store) Put(s *Session) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	key := pairKey{s.UserID, s.Quiz.ID}
	if id, ok := st.byPair[key]; ok {
		if existing, ok := st.sessions[id]; ok && existing.Status() != StatusSubmitted {
			return existing
		}
		delete(st.sessions, id)
	}
	st.sessions[s.ID] = s
	st.byPair[key] = s.ID
	return s
}

// Get looks a session up by ID, returning ErrNotFound for unknown IDs.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session and its pair index entry.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return
	}
	delete(st.sessions, id)
	key := pairKey{s.UserID, s.Quiz.ID}
	if st.byPair[key] == id {
		delete(st.byPair, key)
	}
}
