// Package notify pushes short booking notifications to the user's
// messaging channels.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers one short text notification.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Multi fans a notification out to every configured channel. Delivery is
// best effort: one channel failing does not stop the others.
type Multi struct {
	targets []Notifier
}

// NewMulti builds a fan-out notifier, skipping nil entries.
func NewMulti(targets ...Notifier) *Multi {
	m := &Multi{}
	for _, t := range targets {
		if t != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

// Enabled reports whether any channel is configured.
func (m *Multi) Enabled() bool { return len(m.targets) > 0 }

func (m *Multi) Notify(ctx context.Context, text string) error {
	var firstErr error
	for _, t := range m.targets {
		if err := t.Notify(ctx, text); err != nil {
			slog.Warn("notify: channel failed", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
