package concierge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/maitred-ai/maitred/internal/schema"
	"github.com/maitred-ai/maitred/internal/session"
)

// fakeLLM returns scripted completion responses in order.
type fakeLLM struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, opts schema.CompleteOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeLLM) DefaultModel() string { return "mistral-large-latest" }

// fakeSearch counts agent creations and returns a scripted final message.
type fakeSearch struct {
	finalMessage string
	err          error
	agentCalls   int
	lastPrompt   string
}

func (f *fakeSearch) CreateAgent(ctx context.Context, spec schema.AgentSpec) (string, error) {
	f.agentCalls++
	if f.err != nil {
		return "", f.err
	}
	return "ag_test", nil
}

func (f *fakeSearch) StartConversation(ctx context.Context, agentID, input string) ([]schema.ConversationOutput, error) {
	f.lastPrompt = input
	if f.err != nil {
		return nil, f.err
	}
	return []schema.ConversationOutput{
		{Type: "tool.execution", Content: "searching..."},
		{Type: "message.output", Content: f.finalMessage},
	}, nil
}

func newTestOrchestrator(t *testing.T, llm *fakeLLM, search *fakeSearch) (*Orchestrator, *session.Store) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(llm, search, store, ""), store
}

const fullExtraction = `{
	"subject_type": "Italian",
	"location": "Paris 16",
	"date": "Oct 19 2025",
	"time": "7pm",
	"party_size": "2 people",
	"price": "20-50€",
	"allergies_or_notes": null,
	"reservation_name": null,
	"time_flexibility": null
}`

func TestHandleTurn_CompletenessGate(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{
		"subject_type": "Italian",
		"location": "Paris 16",
		"date": "Oct 19 2025",
		"time": "7pm",
		"party_size": null,
		"price": null,
		"allergies_or_notes": null,
		"reservation_name": null,
		"time_flexibility": null
	}`}}
	search := &fakeSearch{}
	o, _ := newTestOrchestrator(t, llm, search)

	res, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant, "Italian in Paris 16 on Oct 19 at 7pm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != schema.StateCollecting {
		t.Errorf("state = %q, want collecting", res.State)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "party_size" {
		t.Errorf("missing = %v, want [party_size]", res.Missing)
	}
	if search.agentCalls != 0 {
		t.Errorf("search must not run on incomplete input, got %d agent calls", search.agentCalls)
	}
	if !strings.Contains(res.Message, "party_size") {
		t.Errorf("message must name the missing field: %q", res.Message)
	}
	if !strings.Contains(res.Message, "Paris 16") {
		t.Errorf("message must echo known fields: %q", res.Message)
	}
}

func TestHandleTurn_EndToEnd(t *testing.T) {
	llm := &fakeLLM{responses: []string{fullExtraction}}
	search := &fakeSearch{finalMessage: "```json\n{\"name\":\"Trattoria Sud\",\"address\":\"5 Rue de Passy\",\"phone_number\":\"+33145000000\"}\n```"}
	o, _ := newTestOrchestrator(t, llm, search)

	res, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant,
		"Italian place in Paris 16 for 2 people on Oct 19 2025 at 7pm, budget 20-50€")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := res.Record
	if rec.Time == nil || *rec.Time != "19:00" {
		t.Errorf("time = %v, want 19:00", rec.Time)
	}
	if rec.PartySize == nil || *rec.PartySize != 2 {
		t.Errorf("party size = %v, want 2", rec.PartySize)
	}
	if rec.Price == nil || rec.Price.Min == nil || rec.Price.Max == nil || *rec.Price.Min != 20 || *rec.Price.Max != 50 {
		t.Errorf("price = %+v, want {20 50}", rec.Price)
	}
	if res.State != schema.StateAwaitingBookingDetails {
		t.Errorf("state = %q, want awaiting_booking_details", res.State)
	}
	if rec.VenueFound == nil || rec.VenueFound.Name != "Trattoria Sud" {
		t.Errorf("venue = %+v", rec.VenueFound)
	}
	for _, want := range []string{"reservation_name", "time_flexibility"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message must ask for %s: %q", want, res.Message)
		}
	}
	if !strings.Contains(search.lastPrompt, "between 20€ and 50€") {
		t.Errorf("search prompt price rendering: %q", search.lastPrompt)
	}
}

func TestHandleTurn_MultiTurnMerge(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"subject_type":"Italian","location":"Paris 16","date":null,"time":null,"party_size":null,"price":null,"allergies_or_notes":null,"reservation_name":null,"time_flexibility":null}`,
		`{"subject_type":null,"location":null,"date":"Oct 19 2025","time":"19:30","party_size":"2","price":null,"allergies_or_notes":null,"reservation_name":null,"time_flexibility":null}`,
	}}
	search := &fakeSearch{finalMessage: `{"name":"Trattoria Sud","address":"5 Rue de Passy"}`}
	o, _ := newTestOrchestrator(t, llm, search)

	res, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant, "an Italian in Paris 16")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Missing) != 3 {
		t.Fatalf("missing = %v, want [date time party_size]", res.Missing)
	}

	res, err = o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant, "Oct 19 2025 at 19:30 for 2")
	if err != nil {
		t.Fatal(err)
	}
	// Fields from the first turn must survive the nulls of the second.
	if res.Record.SubjectType == nil || *res.Record.SubjectType != "Italian" {
		t.Errorf("subject type lost across turns: %v", res.Record.SubjectType)
	}
	if res.State != schema.StateAwaitingBookingDetails {
		t.Errorf("state = %q", res.State)
	}
	if search.agentCalls != 1 {
		t.Errorf("agent calls = %d, want 1", search.agentCalls)
	}
}

func TestHandleTurn_BookingDetailsSkipSearch(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		fullExtraction,
		`{"subject_type":null,"location":null,"date":null,"time":null,"party_size":null,"price":null,"allergies_or_notes":null,"reservation_name":"Martin","time_flexibility":"none"}`,
	}}
	search := &fakeSearch{finalMessage: `{"name":"Trattoria Sud","address":"5 Rue de Passy","phone_number":"+33145000000"}`}
	o, _ := newTestOrchestrator(t, llm, search)

	res, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant,
		"Italian in Paris 16 for 2 on Oct 19 2025 at 7pm, 20-50€")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != schema.StateAwaitingBookingDetails {
		t.Fatalf("first turn state = %q, want awaiting_booking_details", res.State)
	}

	res, err = o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant,
		"name is Martin, no flexibility")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != schema.StateConfirmed {
		t.Errorf("second turn state = %q, want confirmed", res.State)
	}
	// The details-only turn must reuse the stored venue, not search again.
	if search.agentCalls != 1 {
		t.Errorf("agent calls = %d, want 1", search.agentCalls)
	}
	if res.Record.VenueFound == nil || res.Record.VenueFound.Name != "Trattoria Sud" {
		t.Errorf("stored venue replaced: %+v", res.Record.VenueFound)
	}
	if !strings.Contains(res.Message, "Trattoria Sud") {
		t.Errorf("message must confirm the stored venue: %q", res.Message)
	}
}

func TestHandleTurn_ExtractionFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("503")}
	search := &fakeSearch{}
	o, store := newTestOrchestrator(t, llm, search)

	_, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant, "anything")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	// Nothing was stored for the session.
	if rec := store.Get("s1"); rec != nil {
		t.Errorf("session must be untouched on extraction failure, got %+v", rec)
	}
}

func TestHandleTurn_UnparseableExtraction(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I'm sorry, I cannot help with that."}}
	o, _ := newTestOrchestrator(t, llm, &fakeSearch{})

	_, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant, "anything")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestHandleTurn_SearchFailureRestoresState(t *testing.T) {
	llm := &fakeLLM{responses: []string{fullExtraction}}
	search := &fakeSearch{err: errors.New("agent down")}
	o, store := newTestOrchestrator(t, llm, search)

	_, err := o.HandleTurn(context.Background(), "s1", schema.CategoryRestaurant, "full request")
	if !errors.Is(err, ErrSearch) {
		t.Fatalf("expected ErrSearch, got %v", err)
	}
	rec := store.Get("s1")
	if rec == nil {
		t.Fatal("merged fields must survive a search failure")
	}
	if rec.State != schema.StateCollecting {
		t.Errorf("state = %q, want prior state restored", rec.State)
	}
	// The merged fields are retained for the retry.
	if rec.PartySize == nil || *rec.PartySize != 2 {
		t.Errorf("party size lost on search failure: %v", rec.PartySize)
	}
}

func TestHandleTurn_SportWellness(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{
		"subject_type": "tennis",
		"location": "Paris 15",
		"date": "tomorrow",
		"time": "10:00",
		"party_size": "2",
		"price": null,
		"allergies_or_notes": null,
		"reservation_name": "Dupont",
		"time_flexibility": "none"
	}`}}
	search := &fakeSearch{finalMessage: `{"name":"Tennis Club 15","address":"10 Rue du Sport","phone_number":"+331"}`}
	o, _ := newTestOrchestrator(t, llm, search)

	res, err := o.HandleTurn(context.Background(), "s1", schema.CategorySport, "tennis tomorrow")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != schema.StateConfirmed {
		t.Errorf("state = %q, want confirmed", res.State)
	}
	if !strings.Contains(res.Message, "back and shoulder massage") {
		t.Errorf("expected wellness suggestion in message: %q", res.Message)
	}
}

func TestSearchPrompt_PriceShapes(t *testing.T) {
	max := 30
	min := 15
	cases := []struct {
		price *schema.PriceRange
		want  string
	}{
		{nil, "any price"},
		{&schema.PriceRange{Max: &max}, "up to 30€"},
		{&schema.PriceRange{Min: &min}, "starting from 15€"},
		{&schema.PriceRange{Min: &min, Max: &max}, "between 15€ and 30€"},
	}
	subject, loc, date, tm := "Italian", "Paris", "Oct 19", "19:00"
	size := 2
	for _, c := range cases {
		rec := &schema.ReservationRequest{
			Category: schema.CategoryRestaurant, SubjectType: &subject,
			Location: &loc, Date: &date, Time: &tm, PartySize: &size, Price: c.price,
		}
		if got := searchPrompt(rec); !strings.Contains(got, c.want) {
			t.Errorf("searchPrompt price = %q, want to contain %q", got, c.want)
		}
	}
}
