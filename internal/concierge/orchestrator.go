// Package concierge sequences one user turn through extraction,
// normalization, merge, the completeness gate and venue search.
package concierge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maitred-ai/maitred/internal/normalize"
	"github.com/maitred-ai/maitred/internal/schema"
	"github.com/maitred-ai/maitred/internal/session"
	"github.com/maitred-ai/maitred/internal/shared/llmutils"
)

// Error taxonomy for the orchestration pipeline. IncompleteInput is not an
// error: it is a normal gate outcome reported on the TurnResult.
var (
	ErrExtraction = errors.New("could not extract reservation details")
	ErrSearch     = errors.New("venue search failed")
)

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	State   schema.State
	Record  *schema.ReservationRequest
	Missing []string // non-empty when the completeness gate stopped the turn
	Message string   // user-facing response text
}

// Orchestrator drives the per-session booking state machine.
type Orchestrator struct {
	llm    schema.LLMProvider
	search schema.SearchProvider
	store  *session.Store
	model  string
}

// New creates an Orchestrator. model may be empty to use the provider default.
func New(llm schema.LLMProvider, search schema.SearchProvider, store *session.Store, model string) *Orchestrator {
	if model == "" {
		model = llm.DefaultModel()
	}
	return &Orchestrator{llm: llm, search: search, store: store, model: model}
}

// HandleTurn processes one user message for a session.
//
// Extraction or search failures leave the stored session untouched in its
// prior state so the next turn can retry; the returned error is already
// tagged for the tool boundary to render.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, category schema.Category, text string) (*TurnResult, error) {
	upd, err := o.extract(ctx, category, text)
	if err != nil {
		return nil, err
	}

	rec, err := o.store.MergeUpdate(sessionID, category, upd)
	if err != nil {
		return nil, fmt.Errorf("merge session %s: %w", sessionID, err)
	}

	if missing := rec.MissingRequired(); len(missing) > 0 {
		rec, err = o.store.Mutate(sessionID, category, func(r *schema.ReservationRequest) {
			r.State = schema.StateCollecting
		})
		if err != nil {
			return nil, fmt.Errorf("update session %s: %w", sessionID, err)
		}
		slog.Info("turn incomplete", "session", sessionID, "missing", missing)
		return &TurnResult{
			State:   schema.StateCollecting,
			Record:  rec,
			Missing: missing,
			Message: incompleteMessage(rec, missing),
		}, nil
	}

	if rec.VenueFound != nil {
		return o.confirmKnownVenue(sessionID, rec)
	}
	return o.runSearch(ctx, sessionID, rec)
}

// confirmKnownVenue finalizes a session whose venue search already ran. A
// follow-up turn that only fills booking details must not trigger another
// agent call or replace the venue the user was just told about.
func (o *Orchestrator) confirmKnownVenue(sessionID string, rec *schema.ReservationRequest) (*TurnResult, error) {
	needed := bookingGaps(rec)
	next := schema.StateConfirmed
	if len(needed) > 0 {
		next = schema.StateAwaitingBookingDetails
	}

	rec, err := o.store.Mutate(sessionID, rec.Category, func(r *schema.ReservationRequest) {
		r.State = next
	})
	if err != nil {
		return nil, fmt.Errorf("update session %s: %w", sessionID, err)
	}

	slog.Info("venue confirmed", "session", sessionID, "venue", rec.VenueFound.Name, "state", next)
	return &TurnResult{
		State:   next,
		Record:  rec,
		Message: successMessage(rec, needed),
	}, nil
}

// extract runs the extraction call and normalizes every field. Nothing is
// stored yet; a failure here leaves the session as it was.
func (o *Orchestrator) extract(ctx context.Context, category schema.Category, text string) (schema.ReservationUpdate, error) {
	var upd schema.ReservationUpdate

	raw, err := o.llm.Complete(ctx, extractionPrompt(category, text), schema.CompleteOptions{
		Model:     o.model,
		ForceJSON: true,
	})
	if err != nil {
		return upd, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var fields map[string]any
	if err := llmutils.ExtractJSON(raw, &fields); err != nil {
		return upd, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	upd.SubjectType = fieldString(fields, "subject_type")
	upd.Location = fieldString(fields, "location")
	upd.Date = fieldString(fields, "date")
	upd.Time = normalize.Time(fieldString(fields, "time"))
	upd.PartySize = normalize.PartySize(fieldString(fields, "party_size"))
	upd.Price = normalize.Price(fieldString(fields, "price"))
	upd.AllergiesNotes = fieldString(fields, "allergies_or_notes")
	upd.ReservationName = fieldString(fields, "reservation_name")
	upd.TimeFlexibility = fieldString(fields, "time_flexibility")
	return upd, nil
}

// runSearch transitions to searching, invokes the web-search agent and stores
// the venue. The prior state is restored when the search fails.
func (o *Orchestrator) runSearch(ctx context.Context, sessionID string, rec *schema.ReservationRequest) (*TurnResult, error) {
	prior := rec.State
	rec, err := o.store.Mutate(sessionID, rec.Category, func(r *schema.ReservationRequest) {
		r.State = schema.StateSearching
	})
	if err != nil {
		return nil, fmt.Errorf("update session %s: %w", sessionID, err)
	}

	venue, err := o.findVenue(ctx, rec)
	if err != nil {
		if _, rerr := o.store.Mutate(sessionID, rec.Category, func(r *schema.ReservationRequest) {
			r.State = prior
		}); rerr != nil {
			slog.Error("failed to restore session state", "session", sessionID, "err", rerr)
		}
		return nil, err
	}

	needed := bookingGaps(rec)
	next := schema.StateConfirmed
	if len(needed) > 0 {
		next = schema.StateAwaitingBookingDetails
	}

	rec, err = o.store.Mutate(sessionID, rec.Category, func(r *schema.ReservationRequest) {
		r.VenueFound = venue
		r.State = next
	})
	if err != nil {
		return nil, fmt.Errorf("update session %s: %w", sessionID, err)
	}

	slog.Info("venue found", "session", sessionID, "venue", venue.Name, "state", next)
	return &TurnResult{
		State:   next,
		Record:  rec,
		Message: successMessage(rec, needed),
	}, nil
}

// findVenue creates the one-shot search agent and parses its final message.
func (o *Orchestrator) findVenue(ctx context.Context, rec *schema.ReservationRequest) (*schema.Venue, error) {
	agentID, err := o.search.CreateAgent(ctx, searchAgentSpec(rec.Category, o.model))
	if err != nil {
		return nil, fmt.Errorf("%w: create agent: %v", ErrSearch, err)
	}

	outputs, err := o.search.StartConversation(ctx, agentID, searchPrompt(rec))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}

	var final string
	for _, out := range outputs {
		if out.Type == "message.output" {
			final = out.Content
		}
	}
	if final == "" {
		return nil, fmt.Errorf("%w: no final message in agent output", ErrSearch)
	}

	var venue schema.Venue
	if err := llmutils.ExtractJSON(final, &venue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	if venue.Name == "" {
		return nil, fmt.Errorf("%w: agent returned no venue name", ErrSearch)
	}
	return &venue, nil
}

// bookingGaps lists the optional booking fields still unset, in the order
// they are asked for.
func bookingGaps(rec *schema.ReservationRequest) []string {
	var needed []string
	if rec.ReservationName == nil {
		needed = append(needed, "reservation_name")
	}
	if rec.TimeFlexibility == nil {
		needed = append(needed, "time_flexibility")
	}
	return needed
}

// incompleteMessage echoes what is already known and names exactly the
// missing fields, in declaration order.
func incompleteMessage(rec *schema.ReservationRequest, missing []string) string {
	var sb strings.Builder
	known := rec.KnownFields()
	if len(known) > 0 {
		sb.WriteString("I have the following details: ")
		for i, f := range known {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strings.ReplaceAll(f.Name, "_", " "))
			sb.WriteString(": ")
			sb.WriteString(f.Value)
		}
		sb.WriteString(". ")
	}
	sb.WriteString("Could you please provide the missing information: ")
	sb.WriteString(strings.Join(missing, ", "))
	sb.WriteString("?")
	return sb.String()
}

// successMessage confirms the found venue and, when booking details are still
// missing, asks for them by name.
func successMessage(rec *schema.ReservationRequest, needed []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found a matching venue: %s, %s", rec.VenueFound.Name, rec.VenueFound.Address)
	if rec.VenueFound.Phone != "" {
		fmt.Fprintf(&sb, " (phone: %s)", rec.VenueFound.Phone)
	}
	fmt.Fprintf(&sb, " — %s in %s for %d people on %s at %s, budget %s.",
		deref(rec.SubjectType), deref(rec.Location), derefInt(rec.PartySize),
		deref(rec.Date), deref(rec.Time), rec.Price.String())

	if rec.Category == schema.CategorySport {
		fmt.Fprintf(&sb, " Recommended after %s: %s.", deref(rec.SubjectType), wellnessFor(deref(rec.SubjectType)))
	}

	if len(needed) > 0 {
		fmt.Fprintf(&sb, " To book it I still need: %s.", strings.Join(needed, ", "))
	} else {
		sb.WriteString(" Would you like me to book it?")
	}
	return sb.String()
}

// fieldString reads a key from the extraction map as a trimmed string
// pointer. Numbers are rendered to text so the normalizers see one shape;
// null and empty values become nil.
func fieldString(fields map[string]any, key string) *string {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			s = fmt.Sprintf("%d", int64(t))
		} else {
			s = fmt.Sprintf("%v", t)
		}
	default:
		s = strings.TrimSpace(fmt.Sprintf("%v", t))
	}
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
