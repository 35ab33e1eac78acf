// Package reminder schedules reservation reminders.
//
// Jobs persist as JSON so reminders survive restarts:
//
//	{ "version": 1, "jobs": [ { "id":"…", "name":"…", "message":"…",
//	    "kind":"at", "atMs":…, "state":{"lastRunAtMs":…,"lastStatus":"ok"},
//	    "createdAtMs":…, "updatedAtMs":… } ] }
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	robfigcron "github.com/robfig/cron/v3"
)

// Schedule kinds. "at" fires once ahead of a reservation; "cron" is the
// recurring daily digest.
const (
	KindAt   = "at"
	KindCron = "cron"
)

type JobState struct {
	LastRunAtMs *int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  *string `json:"lastStatus,omitempty"`
	LastError   *string `json:"lastError,omitempty"`
}

// Job is one scheduled reminder.
type Job struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Message     string   `json:"message"`
	Kind        string   `json:"kind"`
	AtMs        *int64   `json:"atMs,omitempty"`
	Expr        *string  `json:"expr,omitempty"`
	State       JobState `json:"state"`
	CreatedAtMs int64    `json:"createdAtMs"`
	UpdatedAtMs int64    `json:"updatedAtMs"`
}

type jobStore struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// OnFireFunc delivers a reminder when it comes due.
type OnFireFunc func(ctx context.Context, job Job) error

// Service manages reminder jobs: one-shot timers for reservation reminders
// and a robfig cron entry for the optional daily digest.
type Service struct {
	storePath string
	onFire    OnFireFunc

	mu    sync.Mutex
	store jobStore

	timers    map[string]*time.Timer
	robfig    *robfigcron.Cron
	robfigIDs map[string]robfigcron.EntryID
}

// NewService creates a reminder Service. storePath is the path to jobs.json
// (e.g. ~/.maitred/reminders/jobs.json).
func NewService(storePath string) *Service {
	return &Service{
		storePath: storePath,
		timers:    make(map[string]*time.Timer),
		robfig:    robfigcron.New(),
		robfigIDs: make(map[string]robfigcron.EntryID),
	}
}

// SetOnFire registers the delivery callback. Must be set before Start().
func (s *Service) SetOnFire(fn OnFireFunc) { s.onFire = fn }

// Start loads jobs from disk, drops expired one-shots, and arms the rest.
// Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if err := s.loadLocked(); err != nil {
		slog.Warn("reminder: load failed, starting empty", "err", err)
	}
	s.pruneExpiredLocked()
	s.saveLocked()
	for _, j := range s.store.Jobs {
		s.armLocked(ctx, j)
	}
	s.mu.Unlock()

	s.robfig.Start()
	slog.Info("reminder: started", "jobs", len(s.store.Jobs))

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.mu.Unlock()
	return ctx.Err()
}

// ScheduleAt arms a one-shot reminder. The job is deleted after it fires.
func (s *Service) ScheduleAt(name, message string, at time.Time) (string, error) {
	if !at.After(time.Now()) {
		return "", fmt.Errorf("reminder time %s is in the past", at.Format(time.RFC3339))
	}
	now := nowMs()
	atMs := at.UnixMilli()
	job := Job{
		ID:          uuid.NewString(),
		Name:        name,
		Message:     message,
		Kind:        KindAt,
		AtMs:        &atMs,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}

	s.mu.Lock()
	s.store.Jobs = append(s.store.Jobs, job)
	s.saveLocked()
	s.armLocked(context.Background(), job)
	s.mu.Unlock()

	slog.Info("reminder: scheduled", "name", name, "id", job.ID, "at", at.Format(time.RFC3339))
	return job.ID, nil
}

// ScheduleDigest arms a recurring reminder from a standard 5-field cron
// expression, replacing any previous job of the same name.
func (s *Service) ScheduleDigest(name, message, expr string) (string, error) {
	parser := robfigcron.NewParser(
		robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
	)
	if _, err := parser.Parse(expr); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.store.Jobs {
		if j.Kind == KindCron && j.Name == name {
			s.removeLocked(j.ID)
			break
		}
	}
	now := nowMs()
	job := Job{
		ID:          uuid.NewString(),
		Name:        name,
		Message:     message,
		Kind:        KindCron,
		Expr:        &expr,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}
	s.store.Jobs = append(s.store.Jobs, job)
	s.saveLocked()
	s.armLocked(context.Background(), job)
	return job.ID, nil
}

// List returns all pending jobs, nearest first.
func (s *Service) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked()
	jobs := make([]Job, len(s.store.Jobs))
	copy(jobs, s.store.Jobs)
	sort.Slice(jobs, func(i, k int) bool {
		a := int64(^uint64(0) >> 1)
		b := int64(^uint64(0) >> 1)
		if jobs[i].AtMs != nil {
			a = *jobs[i].AtMs
		}
		if jobs[k].AtMs != nil {
			b = *jobs[k].AtMs
		}
		return a < b
	})
	return jobs
}

// Remove cancels and deletes a job by id, reporting whether it existed.
func (s *Service) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Service) removeLocked(id string) bool {
	before := len(s.store.Jobs)
	filtered := s.store.Jobs[:0]
	for _, j := range s.store.Jobs {
		if j.ID != id {
			filtered = append(filtered, j)
		}
	}
	s.store.Jobs = filtered
	if len(filtered) < before {
		s.cancelLocked(id)
		s.saveLocked()
		return true
	}
	return false
}

func (s *Service) armLocked(ctx context.Context, job Job) {
	s.cancelLocked(job.ID)

	switch job.Kind {
	case KindAt:
		if job.AtMs == nil {
			return
		}
		delay := time.Until(time.UnixMilli(*job.AtMs))
		if delay < 0 {
			return
		}
		t := time.AfterFunc(delay, func() {
			s.fire(ctx, job)
		})
		s.timers[job.ID] = t

	case KindCron:
		if job.Expr == nil {
			return
		}
		parser := robfigcron.NewParser(
			robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
		)
		sched, err := parser.Parse(*job.Expr)
		if err != nil {
			slog.Warn("reminder: invalid cron expression", "job", job.ID, "expr", *job.Expr, "err", err)
			return
		}
		jobCopy := job
		entryID := s.robfig.Schedule(sched, robfigcron.FuncJob(func() { s.fire(ctx, jobCopy) }))
		s.robfigIDs[job.ID] = entryID
	}
}

func (s *Service) cancelLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if eid, ok := s.robfigIDs[id]; ok {
		s.robfig.Remove(eid)
		delete(s.robfigIDs, id)
	}
}

func (s *Service) fire(ctx context.Context, job Job) {
	startMs := nowMs()
	slog.Info("reminder: firing", "name", job.Name, "id", job.ID)

	status := "ok"
	var lastErr *string
	if s.onFire != nil {
		if err := s.onFire(ctx, job); err != nil {
			status = "error"
			e := err.Error()
			lastErr = &e
			slog.Error("reminder: delivery failed", "name", job.Name, "err", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Kind == KindAt {
		// One-shot reminders disappear after firing.
		s.removeLocked(job.ID)
		return
	}
	for i := range s.store.Jobs {
		if s.store.Jobs[i].ID != job.ID {
			continue
		}
		s.store.Jobs[i].State.LastRunAtMs = &startMs
		s.store.Jobs[i].State.LastStatus = &status
		s.store.Jobs[i].State.LastError = lastErr
		s.store.Jobs[i].UpdatedAtMs = nowMs()
		break
	}
	s.saveLocked()
}

// pruneExpiredLocked drops one-shot jobs whose time passed while the
// process was down. A reservation reminder delivered late is noise.
func (s *Service) pruneExpiredLocked() {
	now := nowMs()
	filtered := s.store.Jobs[:0]
	for _, j := range s.store.Jobs {
		if j.Kind == KindAt && j.AtMs != nil && *j.AtMs <= now {
			slog.Info("reminder: dropping expired job", "name", j.Name, "id", j.ID)
			continue
		}
		filtered = append(filtered, j)
	}
	s.store.Jobs = filtered
}

func (s *Service) loadLocked() error {
	if len(s.store.Jobs) > 0 {
		return nil // already loaded
	}
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		s.store = jobStore{Version: 1}
		return nil
	}
	if err != nil {
		return err
	}
	var st jobStore
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	s.store = st
	return nil
}

func (s *Service) saveLocked() {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		slog.Warn("reminder: mkdir failed", "err", err)
		return
	}
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		slog.Warn("reminder: marshal failed", "err", err)
		return
	}
	if err := os.WriteFile(s.storePath, data, 0o644); err != nil {
		slog.Warn("reminder: write failed", "err", err)
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }
