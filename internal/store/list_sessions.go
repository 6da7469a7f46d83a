package store

import (
	"github.com/malonaz/polychat/internal/types"
)

// List returns all the sessions, most recently saved first.
// Missing or corrupt data yields an empty list.
func (s *Store) List() []*types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get the session with the given id.
func (s *Store) Get(id string) (*types.Session, error) {
	for _, session := range s.List() {
		if session.ID == id {
			return session, nil
		}
	}
	return nil, ErrNotFound
}
