// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"net/url"
	"strings"
	"time"
)

// Category is the display status of a pull request, also used as a tab value.
type Category string

const (
	CategoryAll    Category = "all"
	CategoryOpen   Category = "open"
	CategoryMerged Category = "merged"
	CategoryClosed Category = "closed"
)

// Categories lists the tab values in display order.
var Categories = []Category{CategoryAll, CategoryOpen, CategoryMerged, CategoryClosed}

// ParseCategory returns the category named by s and whether it is a known value.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryAll, false
}

// PullRequest is one item of a GitHub pull request search.
type PullRequest struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Number        int        `json:"number"`
	HTMLURL       string     `json:"html_url"`
	RepositoryURL string     `json:"repository_url,omitempty"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	MergedAt      *time.Time `json:"merged_at,omitempty"`
}

// Category derives the display status. A merged pull request is always closed
// upstream, so merged takes precedence over state.
func (p PullRequest) Category() Category {
	switch {
	case p.MergedAt != nil:
		return CategoryMerged
	case p.State == "closed":
		return CategoryClosed
	default:
		return CategoryOpen
	}
}

// Owner returns the repository owner, or "" when neither URL can be parsed.
func (p PullRequest) Owner() string {
	owner, _ := p.repository()
	return owner
}

// RepositoryName returns the repository name, or "" when it cannot be parsed.
func (p PullRequest) RepositoryName() string {
	_, name := p.repository()
	return name
}

// FullName returns "owner/name" when both parts are known.
func (p PullRequest) FullName() string {
	owner, name := p.repository()
	if owner == "" || name == "" {
		return owner
	}
	return owner + "/" + name
}

func (p PullRequest) repository() (string, string) {
	if owner, name, ok := ParseRepository(p.HTMLURL); ok {
		return owner, name
	}
	if owner, name, ok := ParseRepository(p.RepositoryURL); ok {
		return owner, name
	}
	return "", ""
}

// ParseRepository extracts owner and repository name from a GitHub web URL
// (https://github.com/{owner}/{repo}/pull/{n}) or REST API URL
// (https://api.github.com/repos/{owner}/{repo}). ok is false when no owner
// can be found; the function never panics on malformed input.
func ParseRepository(rawURL string) (owner, repo string, ok bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && segments[0] == "repos" {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[0] == "" {
		return "", "", false
	}
	owner = segments[0]
	if len(segments) > 1 {
		repo = segments[1]
	}
	return owner, repo, true
}

// Collection is the merged result of a paginated search.
// TotalCount and IncompleteResults come from the first page only.
type Collection struct {
	TotalCount        int           `json:"total_count"`
	IncompleteResults bool          `json:"incomplete_results"`
	Items             []PullRequest `json:"items"`
}
