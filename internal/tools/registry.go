// Package tools implements the host-callable concierge tools.
package tools

import (
	"fmt"
	"sort"

	"github.com/maitred-ai/maitred/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolFindRestaurant   ToolName = "find_restaurant"
	ToolFindActivity     ToolName = "find_activity"
	ToolBookTable        ToolName = "book_table"
	ToolMakeCalendarLink ToolName = "make_calendar_link"
	ToolVenueDetails     ToolName = "venue_details"
)

// Registry holds a set of named tools and exposes them for invocation.
type Registry struct {
	tools map[string]schema.Tool
}

// Get returns the tool with the given name, or nil.
func (r *Registry) Get(name string) schema.Tool {
	return r.tools[name]
}

// Names returns all tool names, sorted for stable listings.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns the tools in name order.
func (r *Registry) All() []schema.Tool {
	out := make([]schema.Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// stringParam reads a required string argument.
func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// optionalString reads an optional string argument, "" when absent.
func optionalString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// intParam reads a number argument; JSON numbers arrive as float64.
func intParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}
