package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/gateway"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) SearchPullRequests(ctx context.Context, username string, filter gateway.SearchFilter) (*domain.Collection, error) {
	args := m.Called(ctx, username, filter)
	// We need to handle the case where the returned collection is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *mockFetcher) FetchAvatarURL(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *mockFetcher) FetchPRCounts(ctx context.Context, username string) (int, int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Int(1), args.Error(2)
}

func newTestDashboard(fetcher gateway.Fetcher, opts ...Option) *Dashboard {
	opts = append([]Option{WithRetry(2, time.Millisecond)}, opts...)
	return NewDashboard(fetcher, zap.NewNop().Sugar(), opts...)
}

func fetchFailed(status int) error {
	return fmt.Errorf("%w: %w", domain.ErrFetchFailed,
		&github.ErrorResponse{Response: &http.Response{StatusCode: status, Request: &http.Request{Method: http.MethodGet}}})
}

func TestDashboard_View(t *testing.T) {
	testCases := []struct {
		name            string
		state           viewstate.State
		wantIDs         []int64
		wantCounts      domain.CategoryCounts
		wantTotalPages  int
		wantFiltered    int
		wantOrgsFirst   string
		wantCurrentPage int
	}{
		{
			name:            "default view lists newest first",
			state:           viewstate.Default(),
			wantIDs:         []int64{5, 4, 3, 2, 1, 6},
			wantCounts:      domain.CategoryCounts{All: 6, Open: 3, Merged: 2, Closed: 1},
			wantTotalPages:  1,
			wantFiltered:    6,
			wantOrgsFirst:   "acme",
			wantCurrentPage: 1,
		},
		{
			name:            "org filter narrows the tab counts",
			state:           viewstate.State{Tab: domain.CategoryMerged, Org: "acme", Page: 1},
			wantIDs:         []int64{2},
			wantCounts:      domain.CategoryCounts{All: 3, Open: 2, Merged: 1, Closed: 0},
			wantTotalPages:  1,
			wantFiltered:    1,
			wantOrgsFirst:   "acme",
			wantCurrentPage: 1,
		},
		{
			name:            "search does not change the tab counts",
			state:           viewstate.State{Tab: domain.CategoryAll, Search: "router", Page: 1},
			wantIDs:         []int64{5, 1},
			wantCounts:      domain.CategoryCounts{All: 6, Open: 3, Merged: 2, Closed: 1},
			wantTotalPages:  1,
			wantFiltered:    2,
			wantOrgsFirst:   "acme",
			wantCurrentPage: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
				Return(&domain.Collection{TotalCount: 6, IncompleteResults: true, Items: fixturePRs()}, nil)

			view, err := newTestDashboard(fetcher).View(context.Background(), "octocat", tc.state)

			require.NoError(t, err)
			assert.Equal(t, tc.wantIDs, ids(view.Items))
			assert.Equal(t, tc.wantCounts, view.Counts)
			assert.Equal(t, tc.wantTotalPages, view.TotalPages)
			assert.Equal(t, tc.wantCurrentPage, view.CurrentPage)
			assert.Equal(t, tc.wantFiltered, view.FilteredCount)
			assert.Equal(t, tc.wantOrgsFirst, view.Organizations[0].Login)
			assert.Equal(t, tc.state, view.State)
			assert.Equal(t, 6, view.TotalCount)
			assert.True(t, view.IncompleteResults)
			fetcher.AssertExpectations(t)
		})
	}
}

func TestDashboard_View_Pagination(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(&domain.Collection{TotalCount: 25, Items: manyPRs(25)}, nil)

	view, err := newTestDashboard(fetcher, WithPageSize(15)).View(context.Background(), "octocat", viewstate.Default().WithPage(2))

	require.NoError(t, err)
	assert.Len(t, view.Items, 10)
	assert.Equal(t, 2, view.TotalPages)
	// Newest first: ids 10 down to 1 land on the second page.
	assert.Equal(t, []int64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, ids(view.Items))
}

func TestBuildView_HugePage(t *testing.T) {
	state := viewstate.Parse(url.Values{"page": {"4611686018427387905"}})
	require.Equal(t, 4611686018427387905, state.Page)

	view := BuildView(&domain.Collection{TotalCount: 20, Items: manyPRs(20)}, state, 15)

	assert.Empty(t, view.Items)
	assert.Equal(t, 2, view.TotalPages)
	assert.Equal(t, 20, view.FilteredCount)
	assert.False(t, view.Page.InRange(view.CurrentPage))
}

func TestDashboard_Collection_IsMemoized(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(&domain.Collection{TotalCount: 6, Items: fixturePRs()}, nil).Once()

	d := newTestDashboard(fetcher)
	_, err := d.View(context.Background(), "octocat", viewstate.Default())
	require.NoError(t, err)
	_, err = d.View(context.Background(), "octocat", viewstate.Default().WithTab(domain.CategoryOpen))
	require.NoError(t, err)
	_, err = d.Summary(context.Background(), "octocat")
	require.NoError(t, err)

	fetcher.AssertNumberOfCalls(t, "SearchPullRequests", 1)
}

func TestDashboard_Collection_CacheDisabled(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(&domain.Collection{Items: fixturePRs()}, nil)

	d := newTestDashboard(fetcher, WithCache(0, 0))
	for i := 0; i < 3; i++ {
		_, err := d.Collection(context.Background(), "octocat")
		require.NoError(t, err)
	}
	fetcher.AssertNumberOfCalls(t, "SearchPullRequests", 3)
}

func TestDashboard_Collection_CacheExpires(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(&domain.Collection{Items: fixturePRs()}, nil)

	d := newTestDashboard(fetcher, WithCache(4, 20*time.Millisecond))
	_, err := d.Collection(context.Background(), "octocat")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = d.Collection(context.Background(), "octocat")
	require.NoError(t, err)

	fetcher.AssertNumberOfCalls(t, "SearchPullRequests", 2)
}

func TestDashboard_Collection_PassesSearchFilter(t *testing.T) {
	filter := gateway.SearchFilter{State: "open"}
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", filter).
		Return(&domain.Collection{Items: []domain.PullRequest{}}, nil).Once()

	_, err := newTestDashboard(fetcher, WithSearchFilter(filter)).Collection(context.Background(), "octocat")
	require.NoError(t, err)
	fetcher.AssertExpectations(t)
}

func TestDashboard_Collection_Retry(t *testing.T) {
	testCases := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectError   bool
		expectedErr   error
	}{
		{
			name:          "transient failure is retried",
			errs:          []error{fetchFailed(http.StatusBadGateway)},
			expectedCalls: 2,
		},
		{
			name:          "gives up after max retries",
			errs:          []error{fetchFailed(http.StatusBadGateway), fetchFailed(http.StatusBadGateway), fetchFailed(http.StatusBadGateway)},
			expectedCalls: 3,
			expectError:   true,
			expectedErr:   domain.ErrFetchFailed,
		},
		{
			name:          "client error is not retried",
			errs:          []error{fetchFailed(http.StatusUnprocessableEntity)},
			expectedCalls: 1,
			expectError:   true,
			expectedErr:   domain.ErrFetchFailed,
		},
		{
			name:          "invalid argument is not retried",
			errs:          []error{fmt.Errorf("%w: username is required", domain.ErrInvalidArgument)},
			expectedCalls: 1,
			expectError:   true,
			expectedErr:   domain.ErrInvalidArgument,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			for _, err := range tc.errs {
				fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).Return(nil, err).Once()
			}
			fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
				Return(&domain.Collection{Items: fixturePRs()}, nil).Maybe()

			collection, err := newTestDashboard(fetcher).Collection(context.Background(), "octocat")

			fetcher.AssertNumberOfCalls(t, "SearchPullRequests", tc.expectedCalls)
			if tc.expectError {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, collection)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, collection.Items, 6)
		})
	}
}

func TestDashboard_Collection_CanceledCallerDoesNotAbortSharedFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchCtxErr error
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
			fetchCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(&domain.Collection{Items: fixturePRs()}, nil).Once()

	d := newTestDashboard(fetcher)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.Collection(firstCtx, "octocat")
		firstErr <- err
	}()
	<-started

	type result struct {
		collection *domain.Collection
		err        error
	}
	second := make(chan result, 1)
	go func() {
		c, err := d.Collection(context.Background(), "octocat")
		second <- result{c, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Len(t, res.collection.Items, 6)
	assert.NoError(t, fetchCtxErr)
	fetcher.AssertNumberOfCalls(t, "SearchPullRequests", 1)
}

func TestDashboard_Collection_FetchTimeout(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, context.DeadlineExceeded))

	_, err := newTestDashboard(fetcher, WithFetchTimeout(20*time.Millisecond)).Collection(context.Background(), "octocat")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDashboard_Collection_FailureIsNotCached(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(nil, fetchFailed(http.StatusNotFound)).Once()
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(&domain.Collection{Items: fixturePRs()}, nil).Once()

	d := newTestDashboard(fetcher)
	_, err := d.View(context.Background(), "octocat", viewstate.Default())
	require.Error(t, err)

	view, err := d.View(context.Background(), "octocat", viewstate.Default())
	require.NoError(t, err)
	assert.Len(t, view.Items, 6)
	fetcher.AssertExpectations(t)
}

func TestDashboard_Profile(t *testing.T) {
	testCases := []struct {
		name        string
		avatarErr   error
		countsErr   error
		expected    *domain.Profile
		expectError bool
	}{
		{
			name:     "happy path - fetches avatar and counts",
			expected: &domain.Profile{Login: "octocat", AvatarURL: "https://avatars.example.com/1", TotalPRs: 40, MergedPRs: 31},
		},
		{
			name:        "error case - avatar fails",
			avatarErr:   errors.New("github api error"),
			expectError: true,
		},
		{
			name:        "error case - counts fail",
			countsErr:   errors.New("graphql error"),
			expectError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			fetcher.On("FetchAvatarURL", mock.Anything, "octocat").Return("https://avatars.example.com/1", tc.avatarErr).Maybe()
			fetcher.On("FetchPRCounts", mock.Anything, "octocat").Return(40, 31, tc.countsErr).Maybe()

			profile, err := newTestDashboard(fetcher).Profile(context.Background(), "octocat")

			if tc.expectError {
				assert.ErrorIs(t, err, domain.ErrFetchFailed)
				assert.Nil(t, profile)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, profile)
		})
	}
}

func TestDashboard_Summary(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(&domain.Collection{TotalCount: 6, Items: fixturePRs()}, nil)

	summary, err := newTestDashboard(fetcher).Summary(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Equal(t, "octocat", summary.Username)
	assert.Equal(t, 6, summary.TotalCount)
	assert.Equal(t, domain.CategoryCounts{All: 6, Open: 3, Merged: 2, Closed: 1}, summary.Counts)
	assert.Len(t, summary.Organizations, 4)
	assert.Equal(t, 2, summary.LeadTime.Count)
	assert.InDelta(t, 24.0, summary.LeadTime.MedianHours, 0.001)
}

func TestDashboard_Organizations(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("SearchPullRequests", mock.Anything, "octocat", gateway.SearchFilter{}).
		Return(nil, fetchFailed(http.StatusBadGateway))

	orgs, err := newTestDashboard(fetcher, WithRetry(0, time.Millisecond)).Organizations(context.Background(), "octocat")
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Nil(t, orgs)
}
