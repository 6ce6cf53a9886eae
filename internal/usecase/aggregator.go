// Package usecase contains the business logic of the application.
package usecase

import (
	"sort"
	"strconv"
	"strings"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

// The functions in this file are pure: they never mutate their input and may
// return the input slice itself when a filter is a no-op.

// Partitions splits a collection by category.
type Partitions struct {
	All    []domain.PullRequest
	Open   []domain.PullRequest
	Merged []domain.PullRequest
	Closed []domain.PullRequest
}

// Get returns the partition shown by a tab.
func (p Partitions) Get(tab domain.Category) []domain.PullRequest {
	switch tab {
	case domain.CategoryOpen:
		return p.Open
	case domain.CategoryMerged:
		return p.Merged
	case domain.CategoryClosed:
		return p.Closed
	default:
		return p.All
	}
}

// Counts returns the size of each partition.
func (p Partitions) Counts() domain.CategoryCounts {
	return domain.CategoryCounts{
		All:    len(p.All),
		Open:   len(p.Open),
		Merged: len(p.Merged),
		Closed: len(p.Closed),
	}
}

// PartitionByCategory splits items into open, merged and closed, preserving order.
// All is items itself.
func PartitionByCategory(items []domain.PullRequest) Partitions {
	p := Partitions{
		All:    items,
		Open:   []domain.PullRequest{},
		Merged: []domain.PullRequest{},
		Closed: []domain.PullRequest{},
	}
	for _, pr := range items {
		switch pr.Category() {
		case domain.CategoryMerged:
			p.Merged = append(p.Merged, pr)
		case domain.CategoryClosed:
			p.Closed = append(p.Closed, pr)
		default:
			p.Open = append(p.Open, pr)
		}
	}
	return p
}

// CountCategories returns the number of pull requests per tab.
func CountCategories(items []domain.PullRequest) domain.CategoryCounts {
	c := domain.CategoryCounts{All: len(items)}
	for _, pr := range items {
		switch pr.Category() {
		case domain.CategoryMerged:
			c.Merged++
		case domain.CategoryClosed:
			c.Closed++
		default:
			c.Open++
		}
	}
	return c
}

// FilterByTab keeps the pull requests shown under tab. "all" is a no-op.
func FilterByTab(items []domain.PullRequest, tab domain.Category) []domain.PullRequest {
	if tab == domain.CategoryAll || tab == "" {
		return items
	}
	return filter(items, func(pr domain.PullRequest) bool {
		return pr.Category() == tab
	})
}

// FilterByOrganization keeps the pull requests whose repository owner equals
// login, ignoring case. An empty login is a no-op.
func FilterByOrganization(items []domain.PullRequest, login string) []domain.PullRequest {
	if login == "" {
		return items
	}
	return filter(items, func(pr domain.PullRequest) bool {
		owner := pr.Owner()
		return owner != "" && strings.EqualFold(owner, login)
	})
}

// FilterByText keeps the pull requests whose title, URL or number contains
// query, ignoring case. An empty query is a no-op.
func FilterByText(items []domain.PullRequest, query string) []domain.PullRequest {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	return filter(items, func(pr domain.PullRequest) bool {
		return strings.Contains(strings.ToLower(pr.Title), q) ||
			strings.Contains(strings.ToLower(pr.HTMLURL), q) ||
			strings.Contains(strconv.Itoa(pr.Number), q)
	})
}

// ApplyFilters narrows items to the view: organization, then tab, then text.
// Pagination always comes after this.
func ApplyFilters(items []domain.PullRequest, state viewstate.State) []domain.PullRequest {
	items = FilterByOrganization(items, state.Org)
	items = FilterByTab(items, state.Tab)
	return FilterByText(items, state.Search)
}

// AggregateOrganizations counts pull requests per repository owner, sorted by
// count descending and login ascending. Pull requests without a parsable owner
// are skipped.
func AggregateOrganizations(items []domain.PullRequest) []domain.OrganizationSummary {
	index := make(map[string]int)
	orgs := make([]domain.OrganizationSummary, 0)
	for _, pr := range items {
		owner := pr.Owner()
		if owner == "" {
			continue
		}
		i, ok := index[owner]
		if !ok {
			i = len(orgs)
			index[owner] = i
			orgs = append(orgs, domain.NewOrganizationSummary(owner))
		}
		orgs[i].TotalPRs++
	}

	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].TotalPRs != orgs[j].TotalPRs {
			return orgs[i].TotalPRs > orgs[j].TotalPRs
		}
		return orgs[i].Login < orgs[j].Login
	})
	return orgs
}

func filter(items []domain.PullRequest, keep func(domain.PullRequest) bool) []domain.PullRequest {
	out := make([]domain.PullRequest, 0, len(items))
	for _, pr := range items {
		if keep(pr) {
			out = append(out, pr)
		}
	}
	return out
}
