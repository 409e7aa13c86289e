package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// IssueEvent is a newly opened issue extracted from a webhook payload.
// Immutable once constructed.
type IssueEvent struct {
	Repository string // owner/name
	Number     int
	Title      string
	URL        string
	Author     string
	Labels     []string
	ReceivedAt time.Time
}

// ErrIgnoredAction is returned by ParseIssueEvent for issue actions
// other than "opened" (closed, edited, labeled, ...).
var ErrIgnoredAction = errors.New("issue action is not opened")

// ParseIssueEvent extracts an IssueEvent from an "issues" webhook
// payload. Only the "opened" action produces an event.
func ParseIssueEvent(body []byte, receivedAt time.Time) (*IssueEvent, error) {
	var payload struct {
		Action string `json:"action"`
		Issue  struct {
			Number  int    `json:"number"`
			Title   string `json:"title"`
			HTMLURL string `json:"html_url"`
			User    struct {
				Login string `json:"login"`
			} `json:"user"`
			Labels []struct {
				Name string `json:"name"`
			} `json:"labels"`
		} `json:"issue"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse issues payload: %w", err)
	}

	if payload.Action != "opened" {
		return nil, ErrIgnoredAction
	}

	if payload.Repository.FullName == "" || payload.Issue.Number == 0 {
		return nil, fmt.Errorf("issues payload missing repository or issue number")
	}

	labels := make([]string, len(payload.Issue.Labels))
	for i, l := range payload.Issue.Labels {
		labels[i] = l.Name
	}

	return &IssueEvent{
		Repository: payload.Repository.FullName,
		Number:     payload.Issue.Number,
		Title:      payload.Issue.Title,
		URL:        payload.Issue.HTMLURL,
		Author:     payload.Issue.User.Login,
		Labels:     labels,
		ReceivedAt: receivedAt,
	}, nil
}
