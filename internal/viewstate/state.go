// Package viewstate holds the URL-addressable dashboard view: the selected tab,
// the search text, the organization filter and the page number.
package viewstate

import (
	"net/url"
	"strconv"

	"github.com/google/go-querystring/query"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
)

const (
	ParamTab    = "tab"
	ParamSearch = "search"
	ParamOrg    = "org"
	ParamPage   = "page"
)

// State is one view of the dashboard. The zero value is not valid; use Default.
type State struct {
	Tab    domain.Category `url:"tab,omitempty" json:"tab"`
	Search string          `url:"search,omitempty" json:"search"`
	Org    string          `url:"org,omitempty" json:"org"`
	Page   int             `url:"page,omitempty" json:"page"`
}

// Default returns the view shown for a bare URL.
func Default() State {
	return State{Tab: domain.CategoryAll, Page: 1}
}

// Parse decodes a view from query parameters. Unknown or malformed values
// fall back to their defaults instead of failing.
func Parse(values url.Values) State {
	s := Default()
	if tab, ok := domain.ParseCategory(values.Get(ParamTab)); ok {
		s.Tab = tab
	}
	s.Search = values.Get(ParamSearch)
	s.Org = values.Get(ParamOrg)
	if page, err := strconv.Atoi(values.Get(ParamPage)); err == nil && page >= 1 {
		s.Page = page
	}
	return s
}

// Values encodes the view. Fields holding their default value are left out,
// so the default view encodes to an empty set.
func (s State) Values() url.Values {
	enc := s
	if enc.Tab == domain.CategoryAll {
		enc.Tab = ""
	}
	if enc.Page == 1 {
		enc.Page = 0
	}
	values, err := query.Values(enc)
	if err != nil {
		// query.Values only fails for non-struct input.
		return url.Values{}
	}
	return values
}

// Encode returns the query string form of the view, without a leading "?".
func (s State) Encode() string {
	return s.Values().Encode()
}

// Link returns path with the encoded view appended.
func (s State) Link(path string) string {
	if q := s.Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

// WithTab returns a copy showing tab, back on page 1. Unknown tabs select "all".
func (s State) WithTab(tab domain.Category) State {
	if _, ok := domain.ParseCategory(string(tab)); !ok {
		tab = domain.CategoryAll
	}
	s.Tab = tab
	s.Page = 1
	return s
}

// WithSearch returns a copy filtered by text, back on page 1.
func (s State) WithSearch(text string) State {
	s.Search = text
	s.Page = 1
	return s
}

// WithOrg returns a copy filtered by organization, back on page 1.
// An empty login clears the filter.
func (s State) WithOrg(login string) State {
	s.Org = login
	s.Page = 1
	return s
}

// WithPage returns a copy on page n. Other fields are untouched.
func (s State) WithPage(n int) State {
	s.Page = n
	return s
}
