package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maitred-ai/maitred/internal/calendar"
)

// CalendarLinkTool builds a Google Calendar event link from explicit fields,
// independent of any session.
type CalendarLinkTool struct{}

func NewCalendarLinkTool() *CalendarLinkTool { return &CalendarLinkTool{} }

func (t *CalendarLinkTool) Name() string { return string(ToolMakeCalendarLink) }

func (t *CalendarLinkTool) Description() string {
	return "Generate a Google Calendar link for an event. start_time must be ISO-8601, e.g. 2025-10-19T19:00:00."
}

func (t *CalendarLinkTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {
				"type": "string",
				"description": "Event title"
			},
			"start_time": {
				"type": "string",
				"description": "Event start, ISO-8601"
			},
			"duration_hours": {
				"type": "integer",
				"description": "Event length in hours",
				"default": 2
			},
			"description": {
				"type": "string",
				"description": "Event description"
			},
			"location": {
				"type": "string",
				"description": "Event location"
			}
		},
		"required": ["title", "start_time"]
	}`)
}

func (t *CalendarLinkTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	title, err := stringParam(params, "title")
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	start, err := stringParam(params, "start_time")
	if err != nil {
		return "Error: " + err.Error(), nil
	}

	duration := 2
	if _, ok := params["duration_hours"]; ok {
		if duration, err = intParam(params, "duration_hours"); err != nil {
			return "Error: " + err.Error(), nil
		}
	}
	if duration < 1 {
		duration = 1
	}

	link, err := calendar.GoogleLink(title, start, duration,
		optionalString(params, "description"), optionalString(params, "location"))
	if err != nil {
		if errors.Is(err, calendar.ErrDateFormat) {
			return fmt.Sprintf("Error: start_time %q is not ISO-8601 (expected e.g. 2025-10-19T19:00:00)", start), nil
		}
		return fmt.Sprintf("Error: %v", err), nil
	}
	return link, nil
}
