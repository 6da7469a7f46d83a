package store

import (
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/types"
)

// Save inserts or overwrites the session with the same id. The saved session moves to the
// front of the collection and the oldest sessions beyond the cap are evicted.
func (s *Store) Save(session *types.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.load()
	sessions := make([]*types.Session, 0, len(existing)+1)
	sessions = append(sessions, session)
	for _, other := range existing {
		if other.ID != session.ID {
			sessions = append(sessions, other)
		}
	}
	if len(sessions) > s.maxSessions {
		for _, evicted := range sessions[s.maxSessions:] {
			s.log.Debug("evicting session", "id", evicted.ID)
		}
		sessions = sessions[:s.maxSessions]
	}
	return s.write(sessions)
}
