package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maitred-ai/maitred/internal/schema"
)

func TestComplete_ForceJSON(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"time\":\"8 PM\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewMistralProvider("test-key", srv.URL, "mistral-large-latest")
	out, err := p.Complete(context.Background(), "extract", schema.CompleteOptions{ForceJSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"time":"8 PM"}` {
		t.Errorf("content = %q", out)
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf == nil || rf["type"] != "json_object" {
		t.Errorf("expected json_object response_format, got %v", gotBody["response_format"])
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busted", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewMistralProvider("k", srv.URL, "")
	_, err := p.Complete(context.Background(), "x", schema.CompleteOptions{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Fatalf("expected HTTP 502 error, got %v", err)
	}
}

func TestCreateAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		tools, _ := body["tools"].([]any)
		if len(tools) != 1 {
			t.Errorf("expected web_search tool, got %v", body["tools"])
		}
		w.Write([]byte(`{"id":"ag_123"}`))
	}))
	defer srv.Close()

	p := NewMistralProvider("k", srv.URL, "")
	id, err := p.CreateAgent(context.Background(), schema.AgentSpec{
		Name:      "Venue Finder",
		WebSearch: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "ag_123" {
		t.Errorf("id = %q", id)
	}
}

func TestStartConversation_ChunkedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"outputs":[
			{"type":"tool.execution","content":"..."},
			{"type":"message.output","content":[{"type":"text","text":"{\"name\":"},{"type":"text","text":"\"Chez Paul\"}"}]}
		]}`))
	}))
	defer srv.Close()

	p := NewMistralProvider("k", srv.URL, "")
	outs, err := p.StartConversation(context.Background(), "ag_123", "find a venue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outs) != 2 {
		t.Fatalf("got %d outputs", len(outs))
	}
	if outs[1].Type != "message.output" {
		t.Errorf("type = %q", outs[1].Type)
	}
	if outs[1].Content != `{"name":"Chez Paul"}` {
		t.Errorf("content = %q", outs[1].Content)
	}
}
