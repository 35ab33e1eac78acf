// Package session manages per-session reservation records stored as JSON
// files under <workspace>/sessions/.
//
// The store is append/update only: records are created on first reference to
// an unseen session id and never deleted. The central invariant is the merge
// rule — a field, once learned, is only replaced by an explicit non-nil
// update; nil updates never erase known values.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/maitred-ai/maitred/internal/schema"
)

// Store loads and persists reservation records, one JSON file per session.
type Store struct {
	dir   string
	cache sync.Map // session id → *schema.ReservationRequest

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-session write locks
}

// NewStore creates a Store rooted at the workspace directory.
// It creates the sessions subdirectory if necessary.
func NewStore(workspace string) (*Store, error) {
	dir := filepath.Join(workspace, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// lockFor returns the mutex serializing mutations of one session id.
func (s *Store) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// MergeUpdate applies one turn's extracted fields to the session record and
// persists the result. Non-nil incoming fields overwrite; nil fields leave
// the stored value untouched. The record is created if the session id is new.
func (s *Store) MergeUpdate(sessionID string, category schema.Category, upd schema.ReservationUpdate) (*schema.ReservationRequest, error) {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	rec := s.getOrCreateLocked(sessionID, category)

	if upd.SubjectType != nil {
		rec.SubjectType = upd.SubjectType
	}
	if upd.Location != nil {
		rec.Location = upd.Location
	}
	if upd.Date != nil {
		rec.Date = upd.Date
	}
	if upd.Time != nil {
		rec.Time = upd.Time
	}
	if upd.PartySize != nil {
		rec.PartySize = upd.PartySize
	}
	if upd.Price != nil {
		rec.Price = upd.Price
	}
	if upd.AllergiesNotes != nil {
		rec.AllergiesNotes = upd.AllergiesNotes
	}
	if upd.ReservationName != nil {
		rec.ReservationName = upd.ReservationName
	}
	if upd.TimeFlexibility != nil {
		rec.TimeFlexibility = upd.TimeFlexibility
	}
	rec.UpdatedAt = time.Now()

	if err := s.saveLocked(rec); err != nil {
		return nil, err
	}
	return snapshot(rec), nil
}

// Mutate runs fn against the session record under its lock and persists the
// result. Used by the orchestrator for state transitions and venue storage.
func (s *Store) Mutate(sessionID string, category schema.Category, fn func(*schema.ReservationRequest)) (*schema.ReservationRequest, error) {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	rec := s.getOrCreateLocked(sessionID, category)
	fn(rec)
	rec.UpdatedAt = time.Now()

	if err := s.saveLocked(rec); err != nil {
		return nil, err
	}
	return snapshot(rec), nil
}

// Get returns a snapshot of the record, or nil when the session id is unseen.
func (s *Store) Get(sessionID string) *schema.ReservationRequest {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	if v, ok := s.cache.Load(sessionID); ok {
		return snapshot(v.(*schema.ReservationRequest))
	}
	rec := s.load(sessionID)
	if rec == nil {
		return nil
	}
	s.cache.Store(sessionID, rec)
	return snapshot(rec)
}

// List returns snapshots of every persisted session, unordered.
func (s *Store) List() []*schema.ReservationRequest {
	entries, _ := filepath.Glob(filepath.Join(s.dir, "*.json"))
	out := make([]*schema.ReservationRequest, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec schema.ReservationRequest
		if json.Unmarshal(data, &rec) == nil && rec.SessionID != "" {
			out = append(out, &rec)
		}
	}
	return out
}

// getOrCreateLocked returns the live record for the session id, loading from
// disk or creating a fresh one. Caller holds the session lock.
func (s *Store) getOrCreateLocked(sessionID string, category schema.Category) *schema.ReservationRequest {
	if v, ok := s.cache.Load(sessionID); ok {
		return v.(*schema.ReservationRequest)
	}
	rec := s.load(sessionID)
	if rec == nil {
		rec = &schema.ReservationRequest{
			SessionID: sessionID,
			Category:  category,
			State:     schema.StateCollecting,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	}
	actual, _ := s.cache.LoadOrStore(sessionID, rec)
	return actual.(*schema.ReservationRequest)
}

func (s *Store) saveLocked(rec *schema.ReservationRequest) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", rec.SessionID, err)
	}
	data = append(data, '\n')
	path := s.sessionPath(rec.SessionID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return nil
}

func (s *Store) load(sessionID string) *schema.ReservationRequest {
	data, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		return nil
	}
	var rec schema.ReservationRequest
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}

// sessionPath converts a session id to its JSON file path.
func (s *Store) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, safeFilename(sessionID)+".json")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// snapshot returns a copy so callers never share the cached record outside
// the session lock.
func snapshot(rec *schema.ReservationRequest) *schema.ReservationRequest {
	cp := *rec
	return &cp
}
