package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maitred-ai/maitred/internal/calendar"
	"github.com/maitred-ai/maitred/internal/schema"
	"github.com/maitred-ai/maitred/internal/session"
	"github.com/maitred-ai/maitred/internal/voice"
)

// Caller places outbound calls. Satisfied by *voice.Client.
type Caller interface {
	StartCall(ctx context.Context, req voice.CallRequest) (string, error)
}

// TranscriptWaiter blocks until a call finishes. Satisfied by *voice.Poller.
type TranscriptWaiter interface {
	AwaitTranscript(ctx context.Context, callID string) (string, error)
}

// ReminderScheduler arms a one-shot reminder. Satisfied by
// *reminder.Service; kept as a local interface so the tool stays testable.
type ReminderScheduler interface {
	ScheduleAt(name, message string, at time.Time) (string, error)
}

// Notifier pushes a short notification to the user's channels.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// reminderLead is how far ahead of the reservation the reminder fires.
const reminderLead = 2 * time.Hour

// BookTableTool places the actual phone call for a session whose venue
// search already succeeded, waits for the transcript, and confirms the
// booking.
type BookTableTool struct {
	store     *session.Store
	caller    Caller
	waiter    TranscriptWaiter
	scripts   *voice.ScriptBook
	reminders ReminderScheduler
	notifier  Notifier
}

// NewBookTableTool wires the booking tool. reminders and notifier may be
// nil when those features are not configured.
func NewBookTableTool(store *session.Store, caller Caller, waiter TranscriptWaiter, scripts *voice.ScriptBook, reminders ReminderScheduler, notifier Notifier) *BookTableTool {
	return &BookTableTool{
		store:     store,
		caller:    caller,
		waiter:    waiter,
		scripts:   scripts,
		reminders: reminders,
		notifier:  notifier,
	}
}

func (t *BookTableTool) Name() string { return string(ToolBookTable) }

func (t *BookTableTool) Description() string {
	return "Call the venue found for a session, make the reservation by phone, and return the call transcript with a calendar link."
}

func (t *BookTableTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_id": {
				"type": "string",
				"description": "Session whose venue should be called"
			},
			"phone_number": {
				"type": "string",
				"description": "Override for the venue's phone number, E.164 format"
			}
		},
		"required": ["session_id"]
	}`)
}

func (t *BookTableTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	sessionID, err := stringParam(params, "session_id")
	if err != nil {
		return "Error: " + err.Error(), nil
	}

	rec := t.store.Get(sessionID)
	if rec == nil {
		return fmt.Sprintf("No reservation found for session %q. Run find_restaurant or find_activity first.", sessionID), nil
	}
	if rec.VenueFound == nil {
		return "No venue has been found for this session yet. Complete the search first.", nil
	}
	if missing := rec.MissingRequired(); len(missing) > 0 {
		return fmt.Sprintf("The reservation is still missing: %v. Provide those before booking.", missing), nil
	}

	phone := optionalString(params, "phone_number")
	if phone == "" {
		phone = rec.VenueFound.Phone
	}
	if phone == "" {
		return "No phone number is known for this venue. Pass one via the phone_number argument.", nil
	}

	name := "the guest"
	if rec.ReservationName != nil {
		name = *rec.ReservationName
	}
	script, err := t.scripts.Render(rec.Category, voice.ScriptData{
		VenueName:       rec.VenueFound.Name,
		PartySize:       derefInt(rec.PartySize),
		Date:            derefString(rec.Date),
		Time:            derefString(rec.Time),
		ReservationName: name,
	})
	if err != nil {
		return "", fmt.Errorf("render call script: %w", err)
	}

	callID, err := t.caller.StartCall(ctx, voice.CallRequest{
		PhoneNumber: phone,
		Task:        script,
	})
	if err != nil {
		slog.Warn("call placement failed", "session", sessionID, "err", err)
		return fmt.Sprintf("Could not place the call: %v", err), nil
	}
	slog.Info("booking call placed", "session", sessionID, "call", callID, "venue", rec.VenueFound.Name)
	t.recordCall(sessionID, rec.Category, schema.CallJob{
		CallID:    callID,
		Status:    schema.CallPending,
		StartedAt: time.Now(),
	})

	transcript, err := t.waiter.AwaitTranscript(ctx, callID)
	if err != nil {
		switch {
		case errors.Is(err, voice.ErrCallTimeout):
			t.recordCall(sessionID, rec.Category, schema.CallJob{CallID: callID, Status: schema.CallTimedOut})
			// The call keeps running at the provider; only the wait ends.
			return fmt.Sprintf("The call (id %s) is still in progress after the polling deadline. Check back later.", callID), nil
		case errors.Is(err, voice.ErrCallFailed):
			t.recordCall(sessionID, rec.Category, schema.CallJob{CallID: callID, Status: schema.CallFailed})
			return fmt.Sprintf("The call did not go through: %v", err), nil
		default:
			return fmt.Sprintf("Could not retrieve the call result: %v", err), nil
		}
	}

	confirmed, err := t.store.Mutate(sessionID, rec.Category, func(r *schema.ReservationRequest) {
		r.State = schema.StateConfirmed
		if r.LastCall != nil && r.LastCall.CallID == callID {
			r.LastCall.Status = schema.CallCompleted
			r.LastCall.Transcript = &transcript
		}
	})
	if err != nil {
		return "", fmt.Errorf("update session %s: %w", sessionID, err)
	}

	out := fmt.Sprintf("Reservation call to %s completed.\n\nTranscript:\n%s", confirmed.VenueFound.Name, transcript)

	if link := t.calendarLink(confirmed); link != "" {
		out += "\n\nAdd it to your calendar: " + link
	}
	t.armReminder(confirmed)
	t.notify(ctx, confirmed)
	return out, nil
}

// recordCall stores the call attempt on the session, preserving the original
// start time when only the status advances.
func (t *BookTableTool) recordCall(sessionID string, category schema.Category, job schema.CallJob) {
	_, err := t.store.Mutate(sessionID, category, func(r *schema.ReservationRequest) {
		if r.LastCall != nil && r.LastCall.CallID == job.CallID && job.StartedAt.IsZero() {
			job.StartedAt = r.LastCall.StartedAt
		}
		r.LastCall = &job
	})
	if err != nil {
		slog.Warn("call record not persisted", "session", sessionID, "err", err)
	}
}

// calendarLink is best effort: a malformed stored date just drops the link.
func (t *BookTableTool) calendarLink(rec *schema.ReservationRequest) string {
	if rec.Date == nil || rec.Time == nil {
		return ""
	}
	start := *rec.Date + "T" + *rec.Time + ":00"
	title := fmt.Sprintf("Reservation at %s", rec.VenueFound.Name)
	link, err := calendar.GoogleLink(title, start, 2, "Booked by maitred", rec.VenueFound.Address)
	if err != nil {
		slog.Warn("calendar link skipped", "session", rec.SessionID, "err", err)
		return ""
	}
	return link
}

func (t *BookTableTool) armReminder(rec *schema.ReservationRequest) {
	if t.reminders == nil || rec.Date == nil || rec.Time == nil {
		return
	}
	at, err := time.ParseInLocation("2006-01-02T15:04", *rec.Date+"T"+*rec.Time, time.Local)
	if err != nil {
		slog.Warn("reminder skipped, unparseable reservation time", "session", rec.SessionID, "err", err)
		return
	}
	fireAt := at.Add(-reminderLead)
	if fireAt.Before(time.Now()) {
		return
	}
	msg := fmt.Sprintf("Reminder: %s at %s, %s at %s for %d people.",
		rec.VenueFound.Name, rec.VenueFound.Address, *rec.Date, *rec.Time, derefInt(rec.PartySize))
	if _, err := t.reminders.ScheduleAt("reservation-"+rec.SessionID, msg, fireAt); err != nil {
		slog.Warn("reminder scheduling failed", "session", rec.SessionID, "err", err)
	}
}

func (t *BookTableTool) notify(ctx context.Context, rec *schema.ReservationRequest) {
	if t.notifier == nil {
		return
	}
	text := fmt.Sprintf("Booking confirmed: %s on %s at %s for %d.",
		rec.VenueFound.Name, derefString(rec.Date), derefString(rec.Time), derefInt(rec.PartySize))
	if err := t.notifier.Notify(ctx, text); err != nil {
		slog.Warn("notification failed", "session", rec.SessionID, "err", err)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
