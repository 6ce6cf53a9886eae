// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/metrics"
)

const (
	// searchPageSize is the largest page the search API accepts.
	searchPageSize = 100
	// DefaultMaxResults is the number of results the search API will return at most.
	DefaultMaxResults  = 1000
	DefaultPageTimeout = 15 * time.Second
)

// SearchFilter narrows a pull request search. Zero values mean "no restriction"
// and the upstream default ordering (newest first).
type SearchFilter struct {
	State string `json:"state,omitempty"` // "open", "closed" or "all"
	Sort  string `json:"sort,omitempty"`  // "created", "updated" or "comments"
	Order string `json:"order,omitempty"` // "asc" or "desc"
}

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	SearchPullRequests(ctx context.Context, username string, filter SearchFilter) (*domain.Collection, error)
	FetchAvatarURL(ctx context.Context, username string) (string, error)
	FetchPRCounts(ctx context.Context, username string) (total, merged int, err error)
}

// Config holds the settings of a GitHubGateway.
type Config struct {
	Token string
	// BaseURL points the clients at a GitHub Enterprise host. Empty means github.com.
	BaseURL        string
	MaxResults     int
	PageTimeout    time.Duration
	BreakerTimeout time.Duration
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	breaker       *gobreaker.CircuitBreaker
	metrics       *metrics.Metrics
	logger        *zap.SugaredLogger
	maxResults    int
	pageTimeout   time.Duration
}

// prCountQuery fetches the total and merged pull request counts in one round trip.
type prCountQuery struct {
	All struct {
		IssueCount int
	} `graphql:"all: search(query: $allQuery, type: ISSUE, first: 1)"`
	Merged struct {
		IssueCount int
	} `graphql:"merged: search(query: $mergedQuery, type: ISSUE, first: 1)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(cfg Config, m *metrics.Metrics, logger *zap.SugaredLogger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	restClient := github.NewClient(httpClient)
	graphqlClient := githubv4.NewClient(httpClient)
	if base := strings.TrimSuffix(cfg.BaseURL, "/"); base != "" && base != "https://github.com" && base != "https://api.github.com" {
		restClient, err = restClient.WithEnterpriseURLs(base+"/api/v3/", base+"/api/uploads/")
		if err != nil {
			return nil, fmt.Errorf("failed to configure GitHub Enterprise URLs: %w", err)
		}
		graphqlClient = githubv4.NewEnterpriseClient(base+"/api/graphql", httpClient)
	}

	return newGateway(restClient, graphqlClient, cfg, m, logger), nil
}

func newGateway(restClient *github.Client, graphqlClient *githubv4.Client, cfg Config, m *metrics.Metrics, logger *zap.SugaredLogger) *GitHubGateway {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultPageTimeout
	}
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		breaker:       newBreaker("github-search", cfg.BreakerTimeout, logger),
		metrics:       m,
		logger:        logger,
		maxResults:    cfg.MaxResults,
		pageTimeout:   cfg.PageTimeout,
	}
}

// BuildSearchQuery returns the search query for the public pull requests authored by username.
// NOTE: the search API treats "state:all" as an unknown qualifier, so it is omitted.
func BuildSearchQuery(username string, filter SearchFilter) string {
	query := fmt.Sprintf("author:%s type:pr is:public", username)
	switch filter.State {
	case "open", "closed":
		query += " state:" + filter.State
	}
	return query
}

// SearchPullRequests fetches every pull request matching the query, page by page,
// until a short page is returned or min(total_count, maxResults) items are collected.
// Any failure aborts the whole fetch; there is no internal retry.
func (g *GitHubGateway) SearchPullRequests(ctx context.Context, username string, filter SearchFilter) (*domain.Collection, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}
	query := BuildSearchQuery(username, filter)
	g.logger.Debugw("searching pull requests", "query", query)

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.searchAll(ctx, query, filter)
	})
	if err != nil {
		g.metrics.IncFetchFailure()
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	return result.(*domain.Collection), nil
}

func (g *GitHubGateway) searchAll(ctx context.Context, query string, filter SearchFilter) (*domain.Collection, error) {
	opts := &github.SearchOptions{
		Sort:        "created",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: searchPageSize},
	}
	if filter.Sort != "" {
		opts.Sort = filter.Sort
	}
	if filter.Order != "" {
		opts.Order = filter.Order
	}

	collection := &domain.Collection{Items: []domain.PullRequest{}}
	limit := g.maxResults
	page := 1
	for ; ; page++ {
		opts.Page = page
		result, err := g.searchPage(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search pull requests with REST API (page %d): %w", page, err)
		}
		// total_count and incomplete_results are only trusted from the first page.
		if page == 1 {
			collection.TotalCount = result.GetTotal()
			collection.IncompleteResults = result.GetIncompleteResults()
			if collection.TotalCount < limit {
				limit = collection.TotalCount
			}
		}
		for _, issue := range result.Issues {
			collection.Items = append(collection.Items, toPullRequest(issue))
		}
		if len(result.Issues) < searchPageSize || len(collection.Items) >= limit {
			break
		}
		g.logger.Debugw("fetching next page of pull requests", "page", page+1, "fetched", len(collection.Items))
	}
	if len(collection.Items) > g.maxResults {
		collection.Items = collection.Items[:g.maxResults]
	}

	g.logger.Infow("completed fetching pull requests",
		"total_count", collection.TotalCount,
		"items_fetched", len(collection.Items),
		"pages_fetched", page,
	)
	return collection, nil
}

func (g *GitHubGateway) searchPage(ctx context.Context, query string, opts *github.SearchOptions) (*github.IssuesSearchResult, error) {
	pageCtx, cancel := context.WithTimeout(ctx, g.pageTimeout)
	defer cancel()

	start := time.Now()
	result, _, err := g.restClient.Search.Issues(pageCtx, query, opts)
	g.metrics.ObserveSearchPage(time.Since(start))
	return result, err
}

func toPullRequest(issue *github.Issue) domain.PullRequest {
	pr := domain.PullRequest{
		ID:            issue.GetID(),
		Title:         issue.GetTitle(),
		Number:        issue.GetNumber(),
		HTMLURL:       issue.GetHTMLURL(),
		RepositoryURL: issue.GetRepositoryURL(),
		State:         issue.GetState(),
		CreatedAt:     issue.GetCreatedAt().Time,
	}
	if links := issue.GetPullRequestLinks(); links != nil && links.MergedAt != nil {
		mergedAt := links.MergedAt.Time
		pr.MergedAt = &mergedAt
	}
	return pr
}

func requireUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidArgument)
	}
	return nil
}

// FetchAvatarURL returns the avatar of a GitHub user.
func (g *GitHubGateway) FetchAvatarURL(ctx context.Context, username string) (string, error) {
	if err := requireUsername(username); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, g.pageTimeout)
	defer cancel()

	user, _, err := g.restClient.Users.Get(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to get user %q with REST API: %w", username, err)
	}
	return user.GetAvatarURL(), nil
}

// FetchPRCounts returns how many public pull requests username authored and how many were merged.
func (g *GitHubGateway) FetchPRCounts(ctx context.Context, username string) (int, int, error) {
	if err := requireUsername(username); err != nil {
		return 0, 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, g.pageTimeout)
	defer cancel()

	base := BuildSearchQuery(username, SearchFilter{})
	variables := map[string]interface{}{
		"allQuery":    githubv4.String(base),
		"mergedQuery": githubv4.String(base + " is:merged"),
	}
	var q prCountQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return 0, 0, fmt.Errorf("failed to execute GraphQL query for counts: %w", err)
	}
	g.logger.Debugw("fetched pull request counts", "total", q.All.IssueCount, "merged", q.Merged.IssueCount)
	return q.All.IssueCount, q.Merged.IssueCount, nil
}
