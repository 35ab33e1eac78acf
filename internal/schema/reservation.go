package schema

import (
	"strconv"
	"time"
)

// Category distinguishes the two kinds of concierge request.
type Category string

const (
	CategoryRestaurant Category = "restaurant"
	CategorySport      Category = "sport"
)

// State is the per-session orchestration state.
type State string

const (
	StateCollecting             State = "collecting"
	StateSearching              State = "searching"
	StateAwaitingBookingDetails State = "awaiting_booking_details"
	StateConfirmed              State = "confirmed"
)

// PriceRange is a parsed budget. Either bound may be absent.
type PriceRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// Venue is a real-world venue returned by the search agent.
type Venue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone_number,omitempty"`
}

// ReservationRequest is the unit of state for one user intent.
//
// Every optional field is either a validated canonical value or nil; raw
// unparsed strings never survive normalization. Records are created on first
// reference to an unseen session id and mutated only by merge-update.
type ReservationRequest struct {
	SessionID string   `json:"session_id"`
	Category  Category `json:"category"`
	State     State    `json:"state"`

	SubjectType     *string     `json:"subject_type"`      // cuisine or sport kind
	Location        *string     `json:"location"`
	Date            *string     `json:"date"`
	Time            *string     `json:"time"`              // canonical HH:MM
	PartySize       *int        `json:"party_size"`
	Price           *PriceRange `json:"price"`
	AllergiesNotes  *string     `json:"allergies_or_notes"`
	ReservationName *string     `json:"reservation_name"`
	TimeFlexibility *string     `json:"time_flexibility"`

	VenueFound *Venue   `json:"venue_found"`
	LastCall   *CallJob `json:"last_call,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReservationUpdate is one turn's worth of newly extracted fields.
// Nil fields mean "nothing learned this turn" and never erase stored values.
type ReservationUpdate struct {
	SubjectType     *string
	Location        *string
	Date            *string
	Time            *string
	PartySize       *int
	Price           *PriceRange
	AllergiesNotes  *string
	ReservationName *string
	TimeFlexibility *string
}

// requiredFields lists the search-gate fields in declaration order.
// The missing-field list reported to the user follows this order exactly.
var requiredFields = []struct {
	name string
	get  func(*ReservationRequest) bool
}{
	{"subject_type", func(r *ReservationRequest) bool { return r.SubjectType != nil }},
	{"location", func(r *ReservationRequest) bool { return r.Location != nil }},
	{"date", func(r *ReservationRequest) bool { return r.Date != nil }},
	{"time", func(r *ReservationRequest) bool { return r.Time != nil }},
	{"party_size", func(r *ReservationRequest) bool { return r.PartySize != nil }},
}

// MissingRequired returns the names of required fields still unknown.
func (r *ReservationRequest) MissingRequired() []string {
	var missing []string
	for _, f := range requiredFields {
		if !f.get(r) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Complete reports whether every search-gate field is known.
func (r *ReservationRequest) Complete() bool { return len(r.MissingRequired()) == 0 }

// KnownFields returns name→rendered value for every non-nil field, used to
// echo back what the concierge already understood.
func (r *ReservationRequest) KnownFields() []KnownField {
	var out []KnownField
	add := func(name, value string) { out = append(out, KnownField{Name: name, Value: value}) }

	if r.SubjectType != nil {
		add("subject_type", *r.SubjectType)
	}
	if r.Location != nil {
		add("location", *r.Location)
	}
	if r.Date != nil {
		add("date", *r.Date)
	}
	if r.Time != nil {
		add("time", *r.Time)
	}
	if r.PartySize != nil {
		add("party_size", strconv.Itoa(*r.PartySize))
	}
	if r.Price != nil {
		add("price", r.Price.String())
	}
	if r.AllergiesNotes != nil {
		add("allergies_or_notes", *r.AllergiesNotes)
	}
	if r.ReservationName != nil {
		add("reservation_name", *r.ReservationName)
	}
	if r.TimeFlexibility != nil {
		add("time_flexibility", *r.TimeFlexibility)
	}
	return out
}

// KnownField is one already-understood field, rendered for display.
type KnownField struct {
	Name  string
	Value string
}

// String renders the range the same way the search prompt does, so that the
// user-visible echo and the agent criteria never disagree.
func (p *PriceRange) String() string {
	switch {
	case p == nil || (p.Min == nil && p.Max == nil):
		return "any price"
	case p.Min != nil && p.Max != nil && *p.Min != *p.Max:
		return "between " + strconv.Itoa(*p.Min) + "€ and " + strconv.Itoa(*p.Max) + "€"
	case p.Max != nil:
		return "up to " + strconv.Itoa(*p.Max) + "€"
	default:
		return "starting from " + strconv.Itoa(*p.Min) + "€"
	}
}

