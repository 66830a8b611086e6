package soupnight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"
)

// Notifier dispatches a roster summary whenever the ledger changes.
// A failed notification is logged by the caller and never rolls back
// the append or surfaces to the submitter.
type Notifier interface {
	Notify(ctx context.Context, roster []RSVP, latest RSVP) error
}

// LogNotifier writes the summary to the process log. Selected when no
// email API key or recipients are configured.
type LogNotifier struct {
	SiteName string
}

func (n LogNotifier) Notify(_ context.Context, roster []RSVP, latest RSVP) error {
	log.Printf("rsvp notification (no email configured)\nsubject: %s\n%s",
		rsvpSubject(n.SiteName, latest), rsvpText(roster, latest))
	return nil
}

const resendEndpoint = "https://api.resend.com/emails"

// EmailNotifier sends the summary through an email-delivery HTTP API
// using a bearer API key.
type EmailNotifier struct {
	apiKey     string
	endpoint   string
	from       string
	recipients []string
	siteName   string
	siteURL    string
	client     *http.Client
}

// NewEmailNotifier returns a notifier that mails the given recipients.
func NewEmailNotifier(apiKey, from string, recipients []string, siteName, siteURL string) *EmailNotifier {
	return &EmailNotifier{
		apiKey:     apiKey,
		endpoint:   resendEndpoint,
		from:       from,
		recipients: recipients,
		siteName:   siteName,
		siteURL:    siteURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type emailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
}

func (n *EmailNotifier) Notify(ctx context.Context, roster []RSVP, latest RSVP) error {
	msg := emailMessage{
		From:    n.from,
		To:      n.recipients,
		Subject: rsvpSubject(n.siteName, latest),
		Text:    rsvpText(roster, latest),
		HTML:    rsvpHTML(roster, latest, n.siteURL),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}
	return nil
}

func rsvpSubject(siteName string, latest RSVP) string {
	return fmt.Sprintf("[%s RSVP] %s (party of %d)", siteName, latest.Name, latest.Guests)
}

// rsvpText builds the plain-text roster summary.
func rsvpText(roster []RSVP, latest RSVP) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New RSVP from %s\n", latest.Name)
	fmt.Fprintf(&b, "Guests: %d\n", latest.Guests)
	fmt.Fprintf(&b, "Submitted: %s\n\n", latest.SubmittedAt.Format(time.RFC1123))
	b.WriteString("Current roster:\n")
	for i, entry := range roster {
		fmt.Fprintf(&b, "%d. %s (party of %d)\n", i+1, entry.Name, entry.Guests)
	}
	return b.String()
}

// rsvpHTML builds the HTML variant with the roster as a list.
func rsvpHTML(roster []RSVP, latest RSVP, siteURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>New RSVP from <strong>%s</strong> (party of %d).</p>",
		html.EscapeString(latest.Name), latest.Guests)
	b.WriteString("<p>Current roster:</p><ol>")
	for _, entry := range roster {
		fmt.Fprintf(&b, "<li>%s (party of %d)</li>", html.EscapeString(entry.Name), entry.Guests)
	}
	b.WriteString("</ol>")
	if siteURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">%s</a></p>`, siteURL, siteURL)
	}
	return b.String()
}
