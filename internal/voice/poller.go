package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// StatusClient is the slice of Client the poller needs; tests substitute fakes.
type StatusClient interface {
	CallStatus(ctx context.Context, callID string) (CallState, error)
	CorrectedTranscript(ctx context.Context, callID string) (string, error)
}

// PollPolicy is an explicit retry policy: poll every Interval until Deadline
// of accumulated waiting has elapsed.
type PollPolicy struct {
	Interval time.Duration
	Deadline time.Duration
}

// DefaultPollPolicy matches the provider's pacing guidance.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 2 * time.Second, Deadline: 5 * time.Minute}
}

// SleepFunc waits for d or until ctx is cancelled. Injected so tests run with
// a fake clock instead of wall-clock sleeps.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poller waits for outbound calls to finish and retrieves their transcripts.
//
// Abandoning a poll only stops the waiting; the phone call keeps running on
// the provider side. That is a documented limitation, not something the
// poller tries to fix.
type Poller struct {
	client StatusClient
	policy PollPolicy
	sleep  SleepFunc
}

// NewPoller creates a Poller with the given policy.
func NewPoller(client StatusClient, policy PollPolicy) *Poller {
	if policy.Interval <= 0 {
		policy.Interval = 2 * time.Second
	}
	if policy.Deadline <= 0 {
		policy.Deadline = 5 * time.Minute
	}
	return &Poller{client: client, policy: policy, sleep: realSleep}
}

// WithSleep replaces the sleep function. Test hook.
func (p *Poller) WithSleep(fn SleepFunc) *Poller {
	p.sleep = fn
	return p
}

// AwaitTranscript polls the call status until completion or deadline, then
// returns the best transcript available.
//
// After completion it tries the corrected transcript first; a failure of
// that secondary fetch is swallowed and the completion payload's transcript
// (or summary) is returned instead.
func (p *Poller) AwaitTranscript(ctx context.Context, callID string) (string, error) {
	var waited time.Duration
	for {
		st, err := p.client.CallStatus(ctx, callID)
		if err != nil {
			// Transient status failures are polled through; only the
			// deadline or the context ends the wait.
			slog.Warn("poller: status check failed", "call_id", callID, "err", err)
		} else {
			if st.Completed {
				return p.transcriptFor(ctx, callID, st), nil
			}
			if isTerminalFailure(st.Status) {
				return "", fmt.Errorf("%w: provider status %q", ErrCallFailed, st.Status)
			}
		}

		if waited >= p.policy.Deadline {
			return "", fmt.Errorf("%w after %s", ErrCallTimeout, p.policy.Deadline)
		}
		if err := p.sleep(ctx, p.policy.Interval); err != nil {
			return "", err
		}
		waited += p.policy.Interval
	}
}

func (p *Poller) transcriptFor(ctx context.Context, callID string, st CallState) string {
	corrected, err := p.client.CorrectedTranscript(ctx, callID)
	if err == nil && strings.TrimSpace(corrected) != "" {
		return corrected
	}
	if err != nil {
		slog.Warn("poller: corrected transcript unavailable, using raw", "call_id", callID, "err", err)
	}
	if strings.TrimSpace(st.ConcatenatedTranscript) != "" {
		return st.ConcatenatedTranscript
	}
	return st.Summary
}

func isTerminalFailure(status string) bool {
	switch strings.ToLower(status) {
	case "failed", "error", "no-answer", "busy":
		return true
	}
	return false
}
