package session

import (
	"sync"
	"testing"

	"github.com/maitred-ai/maitred/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func TestMergeUpdate_CreatesRecord(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.MergeUpdate("tg:42", schema.CategoryRestaurant, schema.ReservationUpdate{
		Location: strptr("Paris"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.SessionID != "tg:42" {
		t.Errorf("session id = %q", rec.SessionID)
	}
	if rec.State != schema.StateCollecting {
		t.Errorf("state = %q, want collecting", rec.State)
	}
	if rec.Location == nil || *rec.Location != "Paris" {
		t.Errorf("location = %v", rec.Location)
	}
	if rec.Time != nil {
		t.Errorf("time should default to nil, got %v", rec.Time)
	}
}

func TestMergeUpdate_NilNeverClobbers(t *testing.T) {
	s := newTestStore(t)
	_, err := s.MergeUpdate("k", schema.CategoryRestaurant, schema.ReservationUpdate{
		Location: strptr("Paris"),
	})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.MergeUpdate("k", schema.CategoryRestaurant, schema.ReservationUpdate{
		Location: nil,
		Time:     strptr("19:00"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Location == nil || *rec.Location != "Paris" {
		t.Errorf("nil update erased location: %v", rec.Location)
	}
	if rec.Time == nil || *rec.Time != "19:00" {
		t.Errorf("time not merged: %v", rec.Time)
	}
}

func TestMergeUpdate_NonNilOverwrites(t *testing.T) {
	s := newTestStore(t)
	s.MergeUpdate("k", schema.CategoryRestaurant, schema.ReservationUpdate{PartySize: intptr(2)})
	rec, err := s.MergeUpdate("k", schema.CategoryRestaurant, schema.ReservationUpdate{PartySize: intptr(4)})
	if err != nil {
		t.Fatal(err)
	}
	if rec.PartySize == nil || *rec.PartySize != 4 {
		t.Errorf("party size = %v, want 4", rec.PartySize)
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s1.MergeUpdate("k", schema.CategorySport, schema.ReservationUpdate{
		SubjectType: strptr("tennis"),
	}); err != nil {
		t.Fatal(err)
	}

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec := s2.Get("k")
	if rec == nil {
		t.Fatal("expected persisted record")
	}
	if rec.Category != schema.CategorySport {
		t.Errorf("category = %q", rec.Category)
	}
	if rec.SubjectType == nil || *rec.SubjectType != "tennis" {
		t.Errorf("subject type = %v", rec.SubjectType)
	}
}

func TestGet_UnknownSession(t *testing.T) {
	s := newTestStore(t)
	if rec := s.Get("never-seen"); rec != nil {
		t.Errorf("expected nil, got %+v", rec)
	}
}

func TestMutate_SetsStateAndVenue(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Mutate("k", schema.CategoryRestaurant, func(r *schema.ReservationRequest) {
		r.State = schema.StateAwaitingBookingDetails
		r.VenueFound = &schema.Venue{Name: "Chez Paul", Address: "1 Rue X", Phone: "+331234"}
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != schema.StateAwaitingBookingDetails {
		t.Errorf("state = %q", rec.State)
	}
	if rec.VenueFound == nil || rec.VenueFound.Name != "Chez Paul" {
		t.Errorf("venue = %+v", rec.VenueFound)
	}
}

func TestMergeUpdate_ConcurrentSameSession(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = s.MergeUpdate("k", schema.CategoryRestaurant, schema.ReservationUpdate{
				PartySize: intptr(n + 1),
			})
		}(i)
	}
	wg.Wait()
	rec := s.Get("k")
	if rec == nil || rec.PartySize == nil {
		t.Fatal("expected a party size after concurrent merges")
	}
	if *rec.PartySize < 1 || *rec.PartySize > 20 {
		t.Errorf("party size = %d, want one of the written values", *rec.PartySize)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	s.MergeUpdate("a", schema.CategoryRestaurant, schema.ReservationUpdate{})
	s.MergeUpdate("b", schema.CategorySport, schema.ReservationUpdate{})
	if got := len(s.List()); got != 2 {
		t.Errorf("List() returned %d records, want 2", got)
	}
}

func TestSafeFilename(t *testing.T) {
	if got := safeFilename(`tg:42/x`); got != "tg_42_x" {
		t.Errorf("safeFilename = %q", got)
	}
}
