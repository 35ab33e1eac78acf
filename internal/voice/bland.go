// Package voice implements the outbound phone-call client and the
// asynchronous status poller.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.bland.ai"

// Error taxonomy for call handling. These are matched with errors.Is at the
// tool boundary and converted to user-facing strings.
var (
	ErrCallPlacement = errors.New("voice provider rejected the call")
	ErrCallTimeout   = errors.New("call did not complete before the deadline")
	ErrCallFailed    = errors.New("call failed")
)

// CallRequest is one outbound call to place.
type CallRequest struct {
	PhoneNumber string
	Task        string // rendered script the voice agent follows
	Voice       string
	Language    string
}

// CallState is the provider's view of a call in flight.
type CallState struct {
	Completed              bool   `json:"completed"`
	Status                 string `json:"status"`
	ConcatenatedTranscript string `json:"concatenated_transcript"`
	Summary                string `json:"summary"`
}

// Client is a Bland-style voice API client.
type Client struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewClient constructs a voice client. apiBase defaults to the public
// endpoint when empty.
func NewClient(apiKey, apiBase string) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// StartCall places one outbound call and returns the provider-issued call id.
//
// A non-success response is fatal for the attempt: phone calls are not free
// to retry blindly, so placement is never retried here.
func (c *Client) StartCall(ctx context.Context, req CallRequest) (string, error) {
	body := map[string]any{
		"phone_number": req.PhoneNumber,
		"task":         req.Task,
	}
	if req.Voice != "" {
		body["voice"] = req.Voice
	}
	if req.Language != "" {
		body["language"] = req.Language
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/calls", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCallPlacement, err)
	}

	var resp struct {
		Status string `json:"status"`
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrCallPlacement, err)
	}
	if resp.Status != "success" || resp.CallID == "" {
		return "", fmt.Errorf("%w: status=%q", ErrCallPlacement, resp.Status)
	}
	return resp.CallID, nil
}

// CallStatus fetches the current state of a call.
func (c *Client) CallStatus(ctx context.Context, callID string) (CallState, error) {
	raw, err := c.do(ctx, http.MethodGet, "/v1/calls/"+callID, nil)
	if err != nil {
		return CallState{}, err
	}
	var st CallState
	if err := json.Unmarshal(raw, &st); err != nil {
		return CallState{}, fmt.Errorf("parse call status: %w", err)
	}
	return st, nil
}

// CorrectedTranscript fetches the post-processed transcript variant. Callers
// treat any failure here as non-fatal and fall back to the raw transcript.
func (c *Client) CorrectedTranscript(ctx context.Context, callID string) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/v1/calls/"+callID+"/correct", nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Corrected []struct {
			Text string `json:"text"`
		} `json:"corrected"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("parse corrected transcript: %w", err)
	}
	var sb strings.Builder
	for _, c := range resp.Corrected {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body map[string]any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}
	return raw, nil
}
