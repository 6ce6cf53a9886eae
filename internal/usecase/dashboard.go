package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/gateway"
	"github.com/naka-gawa/pr-dashboard/internal/metrics"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultCacheSize     = 32
	DefaultMaxRetries    = 2
	DefaultFetchTimeout  = 2 * time.Minute
	defaultRetryInterval = 500 * time.Millisecond
)

// View is everything the rendering layer needs for one page of the dashboard.
type View struct {
	Items             []domain.PullRequest         `json:"paginated_items"`
	TotalPages        int                          `json:"total_pages"`
	CurrentPage       int                          `json:"current_page"`
	Counts            domain.CategoryCounts        `json:"category_counts"`
	Organizations     []domain.OrganizationSummary `json:"organization_summaries"`
	State             viewstate.State              `json:"view_state"`
	FilteredCount     int                          `json:"filtered_count"`
	TotalCount        int                          `json:"total_count"`
	IncompleteResults bool                         `json:"incomplete_results"`
	Page              Page                         `json:"-"`
}

type cacheKey struct {
	username string
	filter   gateway.SearchFilter
}

// Dashboard is the use case behind every entry point: it fetches a user's pull
// requests (memoized), and derives views, the profile card and summaries from them.
type Dashboard struct {
	fetcher       gateway.Fetcher
	logger        *zap.SugaredLogger
	metrics       *metrics.Metrics
	cache         *expirable.LRU[cacheKey, *domain.Collection]
	group         singleflight.Group
	filter        gateway.SearchFilter
	pageSize      int
	maxRetries    uint64
	retryInterval time.Duration
	fetchTimeout  time.Duration
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithPageSize sets the number of pull requests per page.
func WithPageSize(n int) Option {
	return func(d *Dashboard) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

// WithCache memoizes fetched collections for ttl. size <= 0 disables the cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(d *Dashboard) {
		if size <= 0 {
			d.cache = nil
			return
		}
		d.cache = expirable.NewLRU[cacheKey, *domain.Collection](size, nil, ttl)
	}
}

// WithRetry sets how often a failed fetch is retried and the first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(d *Dashboard) {
		d.maxRetries = maxRetries
		if initial > 0 {
			d.retryInterval = initial
		}
	}
}

// WithSearchFilter restricts the upstream search, e.g. to open pull requests only.
func WithSearchFilter(f gateway.SearchFilter) Option {
	return func(d *Dashboard) { d.filter = f }
}

// WithFetchTimeout bounds a shared upstream fetch, retries included.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(d *Dashboard) {
		if timeout > 0 {
			d.fetchTimeout = timeout
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// NewDashboard creates a new Dashboard instance.
func NewDashboard(fetcher gateway.Fetcher, logger *zap.SugaredLogger, opts ...Option) *Dashboard {
	d := &Dashboard{
		fetcher:       fetcher,
		logger:        logger,
		cache:         expirable.NewLRU[cacheKey, *domain.Collection](DefaultCacheSize, nil, DefaultCacheTTL),
		pageSize:      DefaultPageSize,
		maxRetries:    DefaultMaxRetries,
		retryInterval: defaultRetryInterval,
		fetchTimeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PageSize returns the number of pull requests per page.
func (d *Dashboard) PageSize() int {
	return d.pageSize
}

// Collection returns all pull requests of username, newest first. Concurrent
// callers for the same user share one upstream fetch. The returned collection
// is shared and must not be modified.
func (d *Dashboard) Collection(ctx context.Context, username string) (*domain.Collection, error) {
	key := cacheKey{username: username, filter: d.filter}
	if d.cache != nil {
		if c, ok := d.cache.Get(key); ok {
			d.metrics.IncCache(true)
			d.logger.Debugw("serving pull requests from cache", "username", username)
			return c, nil
		}
	}
	d.metrics.IncCache(false)

	// The fetch is shared, so it outlives the caller that started it and is
	// bounded by fetchTimeout instead. A canceled caller stops waiting.
	ch := d.group.DoChan(fmt.Sprintf("%s|%+v", username, d.filter), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.fetchTimeout)
		defer cancel()

		c, err := d.fetchWithRetry(fetchCtx, username)
		if err != nil {
			return nil, err
		}
		if d.filter.Order != "asc" && (d.filter.Sort == "" || d.filter.Sort == "created") {
			sortNewestFirst(c.Items)
		}
		if d.cache != nil {
			d.cache.Add(key, c)
		}
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Collection), nil
	}
}

// fetchWithRetry is the caller-side retry policy; the fetcher never retries itself.
func (d *Dashboard) fetchWithRetry(ctx context.Context, username string) (*domain.Collection, error) {
	var collection *domain.Collection
	attempt := 0
	operation := func() error {
		attempt++
		c, err := d.fetcher.SearchPullRequests(ctx, username, d.filter)
		if err != nil {
			if !gateway.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			d.logger.Warnw("fetching pull requests failed", "username", username, "attempt", attempt, "error", err)
			return err
		}
		collection = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retryInterval
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, d.maxRetries), ctx)); err != nil {
		d.logger.Errorw("giving up fetching pull requests", "username", username, "attempts", attempt, "error", err)
		return nil, err
	}
	return collection, nil
}

func sortNewestFirst(items []domain.PullRequest) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// View returns the page of username's pull requests described by state.
func (d *Dashboard) View(ctx context.Context, username string, state viewstate.State) (*View, error) {
	collection, err := d.Collection(ctx, username)
	if err != nil {
		return nil, err
	}
	return BuildView(collection, state, d.pageSize), nil
}

// BuildView derives a view from a fetched collection. Tab counts reflect the
// organization filter but not the tab or search text; the organization list
// always covers the whole collection.
func BuildView(collection *domain.Collection, state viewstate.State, pageSize int) *View {
	byOrg := FilterByOrganization(collection.Items, state.Org)
	filtered := ApplyFilters(collection.Items, state)
	page := Paginate(filtered, state.Page, pageSize)

	return &View{
		Items:             page.Items,
		TotalPages:        page.TotalPages,
		CurrentPage:       page.CurrentPage,
		Counts:            CountCategories(byOrg),
		Organizations:     AggregateOrganizations(collection.Items),
		State:             state,
		FilteredCount:     len(filtered),
		TotalCount:        collection.TotalCount,
		IncompleteResults: collection.IncompleteResults,
		Page:              page,
	}
}

// Organizations returns the organization summaries of username's pull requests.
func (d *Dashboard) Organizations(ctx context.Context, username string) ([]domain.OrganizationSummary, error) {
	collection, err := d.Collection(ctx, username)
	if err != nil {
		return nil, err
	}
	return AggregateOrganizations(collection.Items), nil
}

// Profile fetches the avatar and pull request counts of username concurrently.
func (d *Dashboard) Profile(ctx context.Context, username string) (*domain.Profile, error) {
	profile := &domain.Profile{Login: username}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		avatar, err := d.fetcher.FetchAvatarURL(egCtx, username)
		if err != nil {
			return err
		}
		profile.AvatarURL = avatar
		return nil
	})
	eg.Go(func() error {
		total, merged, err := d.fetcher.FetchPRCounts(egCtx, username)
		if err != nil {
			return err
		}
		profile.TotalPRs = total
		profile.MergedPRs = merged
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	return profile, nil
}

// Summary aggregates counts, organizations and merge lead times of username's pull requests.
func (d *Dashboard) Summary(ctx context.Context, username string) (*domain.Summary, error) {
	collection, err := d.Collection(ctx, username)
	if err != nil {
		return nil, err
	}
	d.logger.Debugw("aggregating summary", "username", username, "items", len(collection.Items))
	return &domain.Summary{
		Username:          username,
		TotalCount:        collection.TotalCount,
		IncompleteResults: collection.IncompleteResults,
		Counts:            CountCategories(collection.Items),
		Organizations:     AggregateOrganizations(collection.Items),
		LeadTime:          MergeLeadTime(collection.Items),
	}, nil
}
