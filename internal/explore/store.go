package explore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/fslock"
)

// Store persists sessions as one JSON file per session ID under dir.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindSession, "creating session directory", err, map[string]string{"dir": dir})
	}
	return &Store{dir: dir}, nil
}

func (st *Store) pathFor(id string) string {
	return filepath.Join(st.dir, id+".json")
}

// Save writes session atomically: marshal to a temp file in the same
// directory, then rename over the destination, so a reader never observes a
// partially written session file. Writers are additionally serialized by a
// cross-process advisory lock, the same primitive the tag cache uses.
func (st *Store) Save(s *Session) error {
	lockPath := filepath.Join(st.dir, ".lock")
	lock, err := fslock.Acquire(lockPath, 5*time.Second, 30*time.Second)
	if err != nil {
		return apperr.Wrap(apperr.KindSession, "acquiring session write lock", err, nil)
	}
	defer lock.Release()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindSession, "encoding session", err, nil)
	}

	dest := st.pathFor(s.ID)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindSession, "writing session temp file", err, nil)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return apperr.Wrap(apperr.KindSession, "publishing session file", err, nil)
	}
	return nil
}

// Load reads a session by ID.
func (st *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(st.pathFor(id))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSession, "reading session file", err, map[string]string{"id": id})
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Wrap(apperr.KindSession, "decoding session file", err, map[string]string{"id": id})
	}
	return &s, nil
}

// Delete removes a session's file, if present.
func (st *Store) Delete(id string) error {
	if err := os.Remove(st.pathFor(id)); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindSession, "deleting session file", err, map[string]string{"id": id})
	}
	return nil
}

// List returns every session ID currently stored.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSession, "listing session directory", err, nil)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".json" {
			ids = append(ids, name[:len(name)-len(".json")])
		}
	}
	return ids, nil
}

// ExpireOlderThan deletes every session whose file mtime predates cutoff,
// realizing exploration.session_ttl_hours.
func (st *Store) ExpireOlderThan(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindSession, "listing session directory", err, nil)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(st.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
