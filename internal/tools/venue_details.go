package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/maitred-ai/maitred/internal/shared/llmutils"
)

const (
	venuePageUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"
	venuePageRedirects = 5
)

// phoneRe matches international and local phone numbers loosely; the first
// hit on a venue page is almost always the booking line.
var phoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// VenueDetailsTool fetches a venue's web page and returns its readable text
// plus any phone number found, so the host can double-check a search result
// before booking.
type VenueDetailsTool struct {
	maxChars   int
	httpClient *http.Client
}

// NewVenueDetailsTool creates the tool. maxChars defaults to 20000.
func NewVenueDetailsTool(maxChars int) *VenueDetailsTool {
	if maxChars <= 0 {
		maxChars = 20000
	}
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= venuePageRedirects {
				return fmt.Errorf("stopped after %d redirects", venuePageRedirects)
			}
			return nil
		},
	}
	return &VenueDetailsTool{maxChars: maxChars, httpClient: client}
}

func (t *VenueDetailsTool) Name() string { return string(ToolVenueDetails) }

func (t *VenueDetailsTool) Description() string {
	return "Fetch a venue's web page and extract its readable text and phone number."
}

func (t *VenueDetailsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "Venue page URL"
			}
		},
		"required": ["url"]
	}`)
}

func (t *VenueDetailsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	rawURL, err := stringParam(params, "url")
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	if err := validateVenueURL(rawURL); err != nil {
		return fmt.Sprintf("Error: invalid url: %v", err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	req.Header.Set("User-Agent", venuePageUserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Error: fetch failed: %v", err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fmt.Sprintf("Error: read failed: %v", err), nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("Error: venue page returned HTTP %d", resp.StatusCode), nil
	}

	title, text := extractReadable(body, rawURL)

	var sb strings.Builder
	if title != "" {
		sb.WriteString("# " + title + "\n\n")
	}
	if phone := phoneRe.FindString(text); phone != "" {
		sb.WriteString("Phone: " + strings.TrimSpace(phone) + "\n\n")
	}
	sb.WriteString(llmutils.Truncate(text, t.maxChars))
	return sb.String(), nil
}

// extractReadable runs readability over the page, falling back to a plain
// tag strip when the page defeats it.
func extractReadable(body []byte, rawURL string) (title, text string) {
	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", collapseSpace(tagRe.ReplaceAllString(string(body), " "))
	}
	return article.Title, collapseSpace(tagRe.ReplaceAllString(article.Content, " "))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func validateVenueURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing domain in URL")
	}
	return nil
}
