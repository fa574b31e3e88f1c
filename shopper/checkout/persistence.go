package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MarcGrol/manualcheckout/shopper/cart"
)

// SessionFileName is the fixed storage key of the persisted session
const SessionFileName = "checkout-session.json"

// Persistence keeps the session across restarts. Load reports false when no checkout is in progress.
type Persistence interface {
	Load(c context.Context) (Session, bool, error)
	Save(c context.Context, session Session) error
	Clear(c context.Context) error
}

type fileStore struct {
	filename string
}

func NewFileStore(dir string) Persistence {
	return &fileStore{
		filename: filepath.Join(dir, SessionFileName),
	}
}

func (s *fileStore) Load(c context.Context) (Session, bool, error) {
	data, err := os.ReadFile(s.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("error reading session %s: %w", s.filename, err)
	}

	session := Session{}
	err = json.Unmarshal(data, &session)
	if err != nil {
		return Session{}, false, fmt.Errorf("error parsing session %s: %w", s.filename, err)
	}
	return session, true, nil
}

// Save replaces the file atomically
func (s *fileStore) Save(c context.Context, session Session) error {
	data, err := json.MarshalIndent(session, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshalling session: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(s.filename), 0o700)
	if err != nil {
		return fmt.Errorf("error creating session dir: %w", err)
	}

	tmp := s.filename + ".tmp"
	err = os.WriteFile(tmp, data, 0o600)
	if err != nil {
		return fmt.Errorf("error writing session: %w", err)
	}
	return os.Rename(tmp, s.filename)
}

func (s *fileStore) Clear(c context.Context) error {
	err := os.Remove(s.filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing session: %w", err)
	}
	return nil
}

type MemoryStore struct {
	sync.Mutex
	session *Session
	Saves   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(c context.Context) (Session, bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.session == nil {
		return Session{}, false, nil
	}
	return copySession(*s.session), true, nil
}

func (s *MemoryStore) Save(c context.Context, session Session) error {
	s.Lock()
	defer s.Unlock()

	copied := copySession(session)
	s.session = &copied
	s.Saves++
	return nil
}

func (s *MemoryStore) Clear(c context.Context) error {
	s.Lock()
	defer s.Unlock()

	s.session = nil
	return nil
}

func copySession(session Session) Session {
	session.Cart.Items = append([]cart.Item(nil), session.Cart.Items...)
	return session
}
