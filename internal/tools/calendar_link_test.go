package tools

import (
	"context"
	"strings"
	"testing"
)

func TestCalendarLinkTool(t *testing.T) {
	tool := NewCalendarLinkTool()

	out, err := tool.Execute(context.Background(), map[string]any{
		"title":          "Dinner at Trattoria Roma",
		"start_time":     "2025-10-19T19:00:00",
		"duration_hours": float64(2),
		"location":       "Lyon",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "dates=20251019T190000Z/20251019T210000Z") {
		t.Errorf("link missing dates pair: %s", out)
	}
	if !strings.Contains(out, "text=Dinner+at+Trattoria+Roma") {
		t.Errorf("link missing escaped title: %s", out)
	}
}

func TestCalendarLinkToolDefaultsDuration(t *testing.T) {
	tool := NewCalendarLinkTool()
	out, err := tool.Execute(context.Background(), map[string]any{
		"title":      "Padel",
		"start_time": "2025-10-19T10:00:00",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "20251019T100000Z/20251019T120000Z") {
		t.Errorf("default duration not two hours: %s", out)
	}
}

func TestCalendarLinkToolBadStart(t *testing.T) {
	tool := NewCalendarLinkTool()
	out, err := tool.Execute(context.Background(), map[string]any{
		"title":      "Dinner",
		"start_time": "next tuesday",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "not ISO-8601") {
		t.Errorf("output = %q", out)
	}
}

func TestCalendarLinkToolMissingTitle(t *testing.T) {
	tool := NewCalendarLinkTool()
	out, err := tool.Execute(context.Background(), map[string]any{
		"start_time": "2025-10-19T19:00:00",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out, "Error:") {
		t.Errorf("output = %q", out)
	}
}
