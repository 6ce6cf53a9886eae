package usecase

import (
	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

// DefaultPageSize is the number of pull requests listed per page.
const DefaultPageSize = 15

// Page is one window of a filtered collection.
type Page struct {
	Items       []domain.PullRequest `json:"items"`
	CurrentPage int                  `json:"current_page"`
	TotalPages  int                  `json:"total_pages"`
	PageSize    int                  `json:"page_size"`
	TotalItems  int                  `json:"total_items"`
}

// Paginate returns the items of page (1-based). TotalPages is at least 1, so an
// empty collection is "page 1 of 1". A page outside the range yields no items.
func Paginate(items []domain.PullRequest, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := (len(items) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	p := Page{
		Items:       []domain.PullRequest{},
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    pageSize,
		TotalItems:  len(items),
	}
	// Checked before multiplying so a huge page cannot overflow the offset.
	if page < 1 || page > totalPages {
		return p
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return p
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	p.Items = items[start:end]
	return p
}

// InRange reports whether n is a page that exists.
func (p Page) InRange(n int) bool {
	return n >= 1 && n <= p.TotalPages
}

func (p Page) HasPrev() bool { return p.InRange(p.CurrentPage - 1) }
func (p Page) HasNext() bool { return p.InRange(p.CurrentPage + 1) }

// FirstIndex is the 1-based position of the first item shown, or 0 when the page is empty.
func (p Page) FirstIndex() int {
	if len(p.Items) == 0 {
		return 0
	}
	return (p.CurrentPage-1)*p.PageSize + 1
}

// LastIndex is the 1-based position of the last item shown, or 0 when the page is empty.
func (p Page) LastIndex() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.FirstIndex() + len(p.Items) - 1
}

// ChangePage moves store to page n when it exists and reports whether it did.
// Requests outside [1, totalPages] leave the store unchanged.
func ChangePage(store *viewstate.Store, n, totalPages int) bool {
	if n < 1 || n > totalPages {
		return false
	}
	store.SetPage(n)
	return true
}
