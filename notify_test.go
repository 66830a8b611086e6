package soupnight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testRoster() ([]RSVP, RSVP) {
	latest := RSVP{Name: "Bo", Guests: 2, SubmittedAt: time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)}
	roster := []RSVP{
		{Name: "Ana", Guests: 3, SubmittedAt: latest.SubmittedAt.Add(-time.Hour)},
		latest,
	}
	return roster, latest
}

func TestRSVPSubject(t *testing.T) {
	_, latest := testRoster()
	got := rsvpSubject("Soup Night", latest)
	want := "[Soup Night RSVP] Bo (party of 2)"
	if got != want {
		t.Errorf("subject = %q, want %q", got, want)
	}
}

func TestRSVPTextListsRoster(t *testing.T) {
	roster, latest := testRoster()
	text := rsvpText(roster, latest)

	for _, want := range []string{
		"New RSVP from Bo",
		"Guests: 2",
		"1. Ana (party of 3)",
		"2. Bo (party of 2)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestRSVPHTMLEscapesNames(t *testing.T) {
	latest := RSVP{Name: "<script>alert(1)</script>", Guests: 1}
	html := rsvpHTML([]RSVP{latest}, latest, "https://soupnight.example")

	if strings.Contains(html, "<script>") {
		t.Errorf("name was not escaped: %s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("expected escaped name in %s", html)
	}
	if !strings.Contains(html, `href="https://soupnight.example"`) {
		t.Errorf("expected site link in %s", html)
	}
}

func TestLogNotifier(t *testing.T) {
	roster, latest := testRoster()
	if err := (LogNotifier{SiteName: "Soup Night"}).Notify(context.Background(), roster, latest); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
}

func TestEmailNotifierSendsMessage(t *testing.T) {
	var got emailMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode message: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &EmailNotifier{
		apiKey:     "key-123",
		endpoint:   srv.URL,
		from:       "party@soupnight.example",
		recipients: []string{"hosts@soupnight.example"},
		siteName:   "Soup Night",
		siteURL:    "https://soupnight.example",
		client:     srv.Client(),
	}
	roster, latest := testRoster()
	if err := n.Notify(context.Background(), roster, latest); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if auth != "Bearer key-123" {
		t.Errorf("Authorization = %q, want Bearer key-123", auth)
	}
	if got.From != "party@soupnight.example" {
		t.Errorf("From = %q", got.From)
	}
	if len(got.To) != 1 || got.To[0] != "hosts@soupnight.example" {
		t.Errorf("To = %v", got.To)
	}
	if got.Subject != "[Soup Night RSVP] Bo (party of 2)" {
		t.Errorf("Subject = %q", got.Subject)
	}
	if !strings.Contains(got.Text, "Current roster:") {
		t.Errorf("Text = %q", got.Text)
	}
	if !strings.Contains(got.HTML, "<ol>") {
		t.Errorf("HTML = %q", got.HTML)
	}
}

func TestEmailNotifierRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	n := &EmailNotifier{
		apiKey:   "key-123",
		endpoint: srv.URL,
		client:   srv.Client(),
	}
	roster, latest := testRoster()
	if err := n.Notify(context.Background(), roster, latest); err == nil {
		t.Error("expected an error for a rejected delivery")
	}
}
