package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"champr/internal/history"

	json "github.com/goccy/go-json"
)

const (
	colorRed   = 15158332 // 0xE74C3C
	colorGreen = 5763719  // 0x57F287

	defaultWebhookTimeout = 10 * time.Second

	// Max attempts when rate limited
	maxRetries = 3

	// failures listed in the embed before truncating
	maxListedFailures = 5
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// NewRunSummaryPayload describes a finished run. The embed is green when
// every record succeeded and red otherwise.
func NewRunSummaryPayload(run history.Run) WebhookPayload {
	title := "✅ Builds Updated"
	color := colorGreen
	if run.Failed > 0 {
		title = "⚠️ Builds Updated With Failures"
		color = colorRed
	}

	fields := []EmbedField{
		{Name: "Game Version", Value: orDash(run.Version), Inline: true},
		{Name: "Files Written", Value: formatNumber(run.Succeeded), Inline: true},
		{Name: "Failed", Value: formatNumber(run.Failed), Inline: true},
		{Name: "Duration", Value: formatDuration(run.Duration()), Inline: true},
		{Name: "Sources", Value: orDash(strings.Join(run.Sources, ", "))},
	}
	if len(run.Failures) > 0 {
		fields = append(fields, EmbedField{Name: "Failures", Value: listFailures(run.Failures)})
	}

	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:     title,
				Color:     color,
				Fields:    fields,
				Footer:    &EmbedFooter{Text: "Run " + run.ID},
				Timestamp: run.FinishedAt.UTC().Format(time.RFC3339),
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// SendRunSummary posts the summary of a finished run
func (c *WebhookClient) SendRunSummary(ctx context.Context, run history.Run) error {
	return c.sendPayload(ctx, NewRunSummaryPayload(run))
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content unless ?wait=true
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp.Header.Get("Retry-After"))):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// retryAfter parses a Retry-After header given in (possibly fractional)
// seconds, defaulting to one second
func retryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return time.Second
	}
	return time.Duration(seconds * float64(time.Second))
}

func listFailures(failures []history.Failure) string {
	var b strings.Builder
	for i, f := range failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "…and %d more", len(failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "`%s` %s (%s)\n", f.Source, f.Champion, f.Stage)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 1000 {
		return s
	}

	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// formatDuration formats a duration as "Xm Ys" (e.g., 2m 5s)
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
