package voice

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/maitred-ai/maitred/internal/schema"
)

// defaultScriptsYAML holds the built-in call scripts, keyed by category.
// A scripts.yaml in the workspace overrides any of them.
const defaultScriptsYAML = `
restaurant: |
  You're Jean, a concierge at Maitred.
  You're calling a restaurant named {{.VenueName}} to book a table for
  {{.PartySize}} people on {{.Date}} at {{.Time}}.
  If neither works, ask the restaurant what time they can do.
  Confirm the reservation under the name {{.ReservationName}} and close politely.
sport: |
  You're Jean, a concierge at Maitred.
  You're calling {{.VenueName}} to book a session for {{.PartySize}} people
  on {{.Date}} at {{.Time}}.
  If that slot is unavailable, ask what times they can do.
  Confirm the booking under the name {{.ReservationName}} and close politely.
`

// ScriptData holds the fields a call script is rendered with.
type ScriptData struct {
	VenueName       string
	PartySize       int
	Date            string
	Time            string
	ReservationName string
}

// ScriptBook loads and renders call scripts.
type ScriptBook struct {
	templates map[schema.Category]*template.Template
}

// LoadScriptBook parses the built-in scripts and merges any overrides found
// at path (YAML, category → script text). A missing file is not an error.
func LoadScriptBook(path string) (*ScriptBook, error) {
	scripts := map[string]string{}
	if err := yaml.Unmarshal([]byte(defaultScriptsYAML), &scripts); err != nil {
		return nil, fmt.Errorf("parse built-in scripts: %w", err)
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			overrides := map[string]string{}
			if err := yaml.Unmarshal(data, &overrides); err != nil {
				return nil, fmt.Errorf("parse scripts %s: %w", path, err)
			}
			for k, v := range overrides {
				scripts[k] = v
			}
		}
	}

	book := &ScriptBook{templates: make(map[schema.Category]*template.Template, len(scripts))}
	for name, text := range scripts {
		tmpl, err := template.New(name).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse script %q: %w", name, err)
		}
		book.templates[schema.Category(name)] = tmpl
	}
	return book, nil
}

// Render produces the call script for a category.
func (b *ScriptBook) Render(category schema.Category, data ScriptData) (string, error) {
	tmpl, ok := b.templates[category]
	if !ok {
		return "", fmt.Errorf("no call script for category %q", category)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render script %q: %w", category, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
