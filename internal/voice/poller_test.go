package voice

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeStatusClient scripts a sequence of CallStatus results.
type fakeStatusClient struct {
	states       []CallState
	statusErrs   []error
	calls        int
	corrected    string
	correctedErr error
}

func (f *fakeStatusClient) CallStatus(ctx context.Context, callID string) (CallState, error) {
	i := f.calls
	f.calls++
	if i >= len(f.states) {
		i = len(f.states) - 1
	}
	var err error
	if i < len(f.statusErrs) {
		err = f.statusErrs[i]
	}
	return f.states[i], err
}

func (f *fakeStatusClient) CorrectedTranscript(ctx context.Context, callID string) (string, error) {
	return f.corrected, f.correctedErr
}

// newFakePoller builds a poller whose sleeps return instantly.
func newFakePoller(t *testing.T, client StatusClient, policy PollPolicy) *Poller {
	t.Helper()
	return NewPoller(client, policy).WithSleep(func(ctx context.Context, d time.Duration) error {
		return nil
	})
}

func TestAwaitTranscript_CompletesAfterPolls(t *testing.T) {
	client := &fakeStatusClient{
		states: []CallState{
			{Completed: false, Status: "in-progress"},
			{Completed: false, Status: "in-progress"},
			{Completed: true, Status: "completed", Summary: "Table booked for 2 at 19:00."},
		},
		correctedErr: errors.New("not ready"),
	}
	p := newFakePoller(t, client, PollPolicy{Interval: 2 * time.Second, Deadline: time.Minute})

	got, err := p.AwaitTranscript(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Table booked for 2 at 19:00." {
		t.Errorf("transcript = %q", got)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 status polls, got %d", client.calls)
	}
}

func TestAwaitTranscript_PrefersCorrected(t *testing.T) {
	client := &fakeStatusClient{
		states:    []CallState{{Completed: true, ConcatenatedTranscript: "raw words"}},
		corrected: "polished words",
	}
	p := newFakePoller(t, client, DefaultPollPolicy())

	got, err := p.AwaitTranscript(context.Background(), "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "polished words" {
		t.Errorf("transcript = %q, want corrected variant", got)
	}
}

func TestAwaitTranscript_CorrectionFailureFallsBack(t *testing.T) {
	client := &fakeStatusClient{
		states:       []CallState{{Completed: true, ConcatenatedTranscript: "raw words"}},
		correctedErr: errors.New("500"),
	}
	p := newFakePoller(t, client, DefaultPollPolicy())

	got, err := p.AwaitTranscript(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("correction failure must not fail the await: %v", err)
	}
	if got != "raw words" {
		t.Errorf("transcript = %q", got)
	}
}

func TestAwaitTranscript_Timeout(t *testing.T) {
	client := &fakeStatusClient{
		states: []CallState{{Completed: false, Status: "in-progress"}},
	}
	p := newFakePoller(t, client, PollPolicy{Interval: 2 * time.Second, Deadline: 10 * time.Second})

	_, err := p.AwaitTranscript(context.Background(), "call-1")
	if !errors.Is(err, ErrCallTimeout) {
		t.Fatalf("expected ErrCallTimeout, got %v", err)
	}
	// Deadline 10s at 2s interval: initial check plus five more polls.
	if client.calls != 6 {
		t.Errorf("expected 6 status polls before timeout, got %d", client.calls)
	}
}

func TestAwaitTranscript_TerminalFailure(t *testing.T) {
	client := &fakeStatusClient{
		states: []CallState{{Completed: false, Status: "failed"}},
	}
	p := newFakePoller(t, client, DefaultPollPolicy())

	_, err := p.AwaitTranscript(context.Background(), "call-1")
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
}

func TestAwaitTranscript_ContextCancelled(t *testing.T) {
	client := &fakeStatusClient{
		states: []CallState{{Completed: false, Status: "in-progress"}},
	}
	p := NewPoller(client, DefaultPollPolicy()).WithSleep(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	})

	_, err := p.AwaitTranscript(context.Background(), "call-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAwaitTranscript_TransientStatusErrorsArePolledThrough(t *testing.T) {
	client := &fakeStatusClient{
		states: []CallState{
			{},
			{Completed: true, Summary: "done"},
		},
		statusErrs:   []error{errors.New("502"), nil},
		correctedErr: errors.New("404"),
	}
	p := newFakePoller(t, client, DefaultPollPolicy())

	got, err := p.AwaitTranscript(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("transcript = %q", got)
	}
}
