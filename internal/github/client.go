// Package github provides webhook handling and a GitHub API client.
package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/user/issuebot/pkg/logger"
)

// Client wraps the GitHub API client. It is used at startup to
// resolve the monitored repository list and enrich the startup
// notification; the webhook pipeline itself never calls the API.
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub API client. With an empty token the
// client is unauthenticated and subject to lower rate limits.
func NewClient(token string) *Client {
	if token == "" {
		return &Client{client: github.NewClient(nil)}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{client: github.NewClient(tc)}
}

// RepoInfo contains basic repository information.
type RepoInfo struct {
	FullName    string
	Description string
	Stars       int
	URL         string
}

// GetRepository retrieves information about an owner/name repository.
func (c *Client) GetRepository(ctx context.Context, fullName string) (*RepoInfo, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	r, _, err := c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s: %w", fullName, err)
	}

	return &RepoInfo{
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Stars:       r.GetStargazersCount(),
		URL:         r.GetHTMLURL(),
	}, nil
}

// RepositoryStars resolves each monitored repository and returns star
// counts for the ones that exist. Repositories that fail to resolve
// (typo, private, API trouble) are logged and skipped, so one bad
// entry never hides the rest of the list.
func (c *Client) RepositoryStars(ctx context.Context, repositories []string) map[string]int {
	stars := make(map[string]int, len(repositories))
	for _, repo := range repositories {
		info, err := c.GetRepository(ctx, repo)
		if err != nil {
			logger.Warn().Err(err).Str("repo", repo).Msg("Could not resolve monitored repository")
			continue
		}
		stars[repo] = info.Stars
	}
	return stars
}

func splitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository %q must be in owner/name form", fullName)
	}
	return owner, name, nil
}
