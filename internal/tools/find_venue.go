package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maitred-ai/maitred/internal/concierge"
	"github.com/maitred-ai/maitred/internal/schema"
)

// FindVenueTool runs one concierge turn for a fixed category. The same
// implementation backs find_restaurant and find_activity.
type FindVenueTool struct {
	category     schema.Category
	orchestrator *concierge.Orchestrator
}

// NewFindRestaurantTool creates the restaurant-category turn tool.
func NewFindRestaurantTool(o *concierge.Orchestrator) *FindVenueTool {
	return &FindVenueTool{category: schema.CategoryRestaurant, orchestrator: o}
}

// NewFindActivityTool creates the sport-category turn tool.
func NewFindActivityTool(o *concierge.Orchestrator) *FindVenueTool {
	return &FindVenueTool{category: schema.CategorySport, orchestrator: o}
}

func (t *FindVenueTool) Name() string {
	if t.category == schema.CategorySport {
		return string(ToolFindActivity)
	}
	return string(ToolFindRestaurant)
}

func (t *FindVenueTool) Description() string {
	if t.category == schema.CategorySport {
		return "Understand a sports booking request, collect missing details across turns, and find a real venue. Includes a recovery suggestion."
	}
	return "Understand a restaurant reservation request, collect missing details across turns, and find a real restaurant."
}

func (t *FindVenueTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_id": {
				"type": "string",
				"description": "Stable identifier for this conversation; reuse it on every turn"
			},
			"request": {
				"type": "string",
				"description": "The user's words for this turn"
			}
		},
		"required": ["session_id", "request"]
	}`)
}

// Execute runs the turn. Failures surface as descriptive strings, never as
// faults to the invocation host.
func (t *FindVenueTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	sessionID, err := stringParam(params, "session_id")
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	request, err := stringParam(params, "request")
	if err != nil {
		return "Error: " + err.Error(), nil
	}

	res, err := t.orchestrator.HandleTurn(ctx, sessionID, t.category, request)
	if err != nil {
		slog.Warn("concierge turn failed", "tool", t.Name(), "session", sessionID, "err", err)
		switch {
		case errors.Is(err, concierge.ErrExtraction):
			return "Sorry, I could not understand the request. Please rephrase it.", nil
		case errors.Is(err, concierge.ErrSearch):
			return "Sorry, the venue search failed. Your details are saved — please try again.", nil
		default:
			return fmt.Sprintf("Error: %v", err), nil
		}
	}

	payload, merr := json.MarshalIndent(res.Record, "", "  ")
	if merr != nil {
		return res.Message, nil
	}
	return res.Message + "\n\nSession record:\n" + string(payload), nil
}
