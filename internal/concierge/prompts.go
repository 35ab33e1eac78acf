package concierge

import (
	"fmt"
	"strings"

	"github.com/maitred-ai/maitred/internal/schema"
)

// extractionPrompt asks the model to pull reservation fields out of free text.
// The key set is the one canonical schema; the session store and the
// normalizer both depend on these exact names.
func extractionPrompt(category schema.Category, userText string) string {
	subject := "the cuisine or restaurant type"
	assistant := "restaurant booking"
	if category == schema.CategorySport {
		subject = "the sport or activity kind"
		assistant = "sports and wellness booking"
	}

	return fmt.Sprintf(`You are a %s assistant. Analyze the user's request and
extract the following information into a strict JSON object.
The keys must be exactly: "subject_type", "location", "date", "time",
"party_size", "price", "allergies_or_notes", "reservation_name",
"time_flexibility".
"subject_type" is %s.
If a piece of information is not available, the value must be null.
Do not add any text before or after the JSON object.

User request: %q`, assistant, subject, userText)
}

// searchAgentSpec describes the one-shot web-search agent used per search.
func searchAgentSpec(category schema.Category, model string) schema.AgentSpec {
	kind := "restaurants"
	if category == schema.CategorySport {
		kind = "sports venues (tennis, padel, gym, etc.)"
	}
	return schema.AgentSpec{
		Model:       model,
		Name:        "Venue Finder",
		Description: "Finds real " + kind + " matching the user's criteria",
		Instructions: "Use your web_search tool to find one real venue matching the request. " +
			"Make sure the venue exists. Return only a JSON object with the keys " +
			`"name", "address", "phone_number".`,
		WebSearch: true,
	}
}

// searchPrompt renders the deterministic criteria prompt from normalized
// fields. The price rendering mirrors PriceRange.String exactly, one
// canonical form per shape.
func searchPrompt(rec *schema.ReservationRequest) string {
	label := "Cuisine"
	if rec.Category == schema.CategorySport {
		label = "Sport"
	}

	var sb strings.Builder
	sb.WriteString("Find one venue for:\n")
	fmt.Fprintf(&sb, "- %s: %s\n", label, deref(rec.SubjectType))
	fmt.Fprintf(&sb, "- Location: %s\n", deref(rec.Location))
	fmt.Fprintf(&sb, "- Date: %s\n", deref(rec.Date))
	fmt.Fprintf(&sb, "- Time: %s\n", deref(rec.Time))
	if rec.PartySize != nil {
		fmt.Fprintf(&sb, "- People: %d\n", *rec.PartySize)
	}
	fmt.Fprintf(&sb, "- Price: %s\n", rec.Price.String())
	if rec.AllergiesNotes != nil {
		fmt.Fprintf(&sb, "- Notes: %s\n", *rec.AllergiesNotes)
	}
	return sb.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
