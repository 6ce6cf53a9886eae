package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/usecase"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

const fetchFailedMessage = "Pull requests could not be loaded from GitHub. Please try again later."

var tabLabels = map[domain.Category]string{
	domain.CategoryAll:    "All",
	domain.CategoryOpen:   "Open",
	domain.CategoryMerged: "Merged",
	domain.CategoryClosed: "Closed",
}

type tabLink struct {
	Label  string
	Count  int
	Href   string
	Active bool
}

type orgLink struct {
	domain.OrganizationSummary
	Href   string
	Active bool
}

type pageLink struct {
	Number int
	Href   string
	Active bool
}

// dashboardPage is the data of templates/dashboard.html.
type dashboardPage struct {
	Username     string
	Profile      *domain.Profile
	View         *usecase.View
	State        viewstate.State
	Tabs         []tabLink
	Orgs         []orgLink
	ClearOrgHref string
	Pages        []pageLink
	PrevHref     string
	NextHref     string
	Error        string
}

func parseState(c *gin.Context) viewstate.State {
	return viewstate.Parse(c.Request.URL.Query())
}

// handleIndex renders the dashboard. A failed profile lookup only hides the
// profile card; a failed pull request fetch renders the fallback with 502.
func (s *Server) handleIndex(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	store := viewstate.NewStoreFromQuery(c.Request.URL.Query())
	unsubscribe := store.Subscribe(func(st viewstate.State) {
		s.logger.Debugw("view state changed", "state", st.Encode())
	})
	defer unsubscribe()

	var (
		eg      errgroup.Group
		profile *domain.Profile
	)
	eg.Go(func() error {
		p, err := s.dashboard.Profile(ctx, s.username)
		if err != nil {
			s.logger.Warnw("profile lookup failed", "username", s.username, "error", err)
			return nil
		}
		profile = p
		return nil
	})

	view, err := s.dashboard.View(ctx, s.username, store.GetState())
	_ = eg.Wait()

	page := dashboardPage{Username: s.username, Profile: profile, State: store.GetState()}
	if err != nil {
		status, _ := errorStatus(err)
		s.logger.Errorw("rendering dashboard failed", "username", s.username, "error", err)
		page.Error = fetchFailedMessage
		c.HTML(status, "dashboard.html", page)
		return
	}

	// A stale link to a page that no longer exists lands on the last page.
	if !view.Page.InRange(view.CurrentPage) && usecase.ChangePage(store, view.TotalPages, view.TotalPages) {
		c.Redirect(http.StatusFound, store.GetState().Link("/"))
		return
	}

	page.View = view
	page.fill()
	c.HTML(http.StatusOK, "dashboard.html", page)
}

// fill derives the links of the page from its view.
func (p *dashboardPage) fill() {
	st := p.View.State

	for _, cat := range domain.Categories {
		p.Tabs = append(p.Tabs, tabLink{
			Label:  tabLabels[cat],
			Count:  p.View.Counts.Get(cat),
			Href:   st.WithTab(cat).Link("/"),
			Active: st.Tab == cat,
		})
	}

	for _, org := range p.View.Organizations {
		p.Orgs = append(p.Orgs, orgLink{
			OrganizationSummary: org,
			Href:                st.WithOrg(org.Login).Link("/"),
			Active:              strings.EqualFold(st.Org, org.Login),
		})
	}
	if st.Org != "" {
		p.ClearOrgHref = st.WithOrg("").Link("/")
	}

	if p.View.TotalPages > 1 {
		for n := 1; n <= p.View.TotalPages; n++ {
			p.Pages = append(p.Pages, pageLink{
				Number: n,
				Href:   st.WithPage(n).Link("/"),
				Active: n == p.View.CurrentPage,
			})
		}
	}
	if p.View.Page.HasPrev() {
		p.PrevHref = st.WithPage(p.View.CurrentPage - 1).Link("/")
	}
	if p.View.Page.HasNext() {
		p.NextHref = st.WithPage(p.View.CurrentPage + 1).Link("/")
	}
}
