package github

import (
	"errors"
	"testing"
	"time"
)

const openedPayload = `{
	"action": "opened",
	"issue": {
		"number": 4821,
		"title": "panic on startup",
		"html_url": "https://github.com/prometheus/prometheus/issues/4821",
		"user": {"login": "octocat"},
		"labels": [{"name": "bug"}, {"name": "help wanted"}]
	},
	"repository": {"full_name": "prometheus/prometheus"}
}`

func TestParseIssueEvent_Opened(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	event, err := ParseIssueEvent([]byte(openedPayload), now)
	if err != nil {
		t.Fatalf("parse opened payload: %v", err)
	}

	if event.Repository != "prometheus/prometheus" {
		t.Fatalf("expected repository prometheus/prometheus, got %q", event.Repository)
	}
	if event.Number != 4821 {
		t.Fatalf("expected issue 4821, got %d", event.Number)
	}
	if event.Title != "panic on startup" {
		t.Fatalf("unexpected title %q", event.Title)
	}
	if event.URL != "https://github.com/prometheus/prometheus/issues/4821" {
		t.Fatalf("unexpected url %q", event.URL)
	}
	if event.Author != "octocat" {
		t.Fatalf("unexpected author %q", event.Author)
	}
	if len(event.Labels) != 2 || event.Labels[0] != "bug" || event.Labels[1] != "help wanted" {
		t.Fatalf("unexpected labels %v", event.Labels)
	}
	if !event.ReceivedAt.Equal(now) {
		t.Fatalf("expected received_at %v, got %v", now, event.ReceivedAt)
	}
}

func TestParseIssueEvent_IgnoredAction(t *testing.T) {
	payload := `{
		"action": "closed",
		"issue": {"number": 7, "title": "x", "user": {"login": "a"}},
		"repository": {"full_name": "owner/repo"}
	}`
	_, err := ParseIssueEvent([]byte(payload), time.Now())
	if !errors.Is(err, ErrIgnoredAction) {
		t.Fatalf("expected ErrIgnoredAction, got %v", err)
	}
}

func TestParseIssueEvent_MalformedJSON(t *testing.T) {
	if _, err := ParseIssueEvent([]byte(`{"action":`), time.Now()); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestParseIssueEvent_MissingFields(t *testing.T) {
	if _, err := ParseIssueEvent([]byte(`{"action":"opened"}`), time.Now()); err == nil {
		t.Fatalf("expected error for payload without repository and issue")
	}
}
