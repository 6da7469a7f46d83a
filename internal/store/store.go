package store

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/configuration"
	"github.com/malonaz/polychat/internal/types"
)

const (
	// StorageKey under which the session collection is stored.
	StorageKey = "chat_histories"
	// DefaultMaxSessions kept by a store.
	DefaultMaxSessions = 50
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store keeps a capped, most-recently-saved-first collection of sessions in a Backend.
// Every operation reads and rewrites the whole collection.
type Store struct {
	mu          sync.Mutex
	backend     Backend
	maxSessions int
	log         *slog.Logger
}

// New store. A non-positive maxSessions uses DefaultMaxSessions.
func New(backend Backend, maxSessions int, log *slog.Logger) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		backend:     backend,
		maxSessions: maxSessions,
		log:         log,
	}
}

// Open the store described by the configuration.
func Open(config *configuration.StoreConfig, log *slog.Logger) (*Store, error) {
	backend, err := OpenBackend(config.Driver, config.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s backend", config.Driver)
	}
	return New(backend, config.MaxSessions, log), nil
}

// Close the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// load the collection. Missing or corrupt data yields an empty collection.
func (s *Store) load() []*types.Session {
	bytes, err := s.backend.Get(StorageKey)
	if err != nil {
		s.log.Error("reading sessions, treating store as empty", "error", err)
		return nil
	}
	if len(bytes) == 0 {
		return nil
	}
	var sessions []*types.Session
	if err := json.Unmarshal(bytes, &sessions); err != nil {
		s.log.Error("unmarshaling sessions, treating store as empty", "error", err)
		return nil
	}
	valid := sessions[:0]
	for _, session := range sessions {
		if session == nil || session.ID == "" {
			continue
		}
		turns := session.Turns[:0]
		for _, turn := range session.Turns {
			if turn != nil && turn.Role.Valid() {
				turns = append(turns, turn)
			}
		}
		session.Turns = turns
		valid = append(valid, session)
	}
	return valid
}

func (s *Store) write(sessions []*types.Session) error {
	if sessions == nil {
		sessions = []*types.Session{}
	}
	bytes, err := json.Marshal(sessions)
	if err != nil {
		return errors.Wrap(err, "marshaling sessions")
	}
	if err := s.backend.Put(StorageKey, bytes); err != nil {
		return errors.Wrap(err, "writing sessions")
	}
	return nil
}
