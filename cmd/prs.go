package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/usecase"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

var prsCmd = &cobra.Command{
	Use:   "prs",
	Short: "Prints one page of the dashboard as JSON",
	Long: `Prints one page of a user's pull requests as JSON, together with the tab counts
and the organization summaries. Filters compose as organization, then tab, then text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, _ := cmd.Flags().GetString("tab")
		search, _ := cmd.Flags().GetString("search")
		org, _ := cmd.Flags().GetString("org")
		page, _ := cmd.Flags().GetInt("page")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		view, err := selectView(cmd.Context(), a.dashboard, a.cfg.GitHub.Username, tab, search, org, page)
		if err != nil {
			return err
		}

		// Marshal the results into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal view to JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
		return nil
	},
}

// viewer is the part of the dashboard selectView needs.
type viewer interface {
	View(ctx context.Context, username string, state viewstate.State) (*usecase.View, error)
}

// selectView applies the flags to a fresh view state the way the dashboard
// controls do: filters first, each resetting the page, then the page change,
// which must land on an existing page.
func selectView(ctx context.Context, d viewer, username, tab, search, org string, page int) (*usecase.View, error) {
	store := viewstate.NewStore(viewstate.Default())
	if tab != "" {
		category, ok := domain.ParseCategory(tab)
		if !ok {
			return nil, fmt.Errorf("%w: unknown tab %q (want all, open, merged or closed)", domain.ErrInvalidArgument, tab)
		}
		store.SetTab(category)
	}
	store.SetOrganizationFilter(org)
	store.SetSearchText(search)

	view, err := d.View(ctx, username, store.GetState())
	if err != nil {
		return nil, fmt.Errorf("failed to load pull requests: %w", err)
	}
	if page == view.CurrentPage {
		return view, nil
	}
	if !usecase.ChangePage(store, page, view.TotalPages) {
		return nil, fmt.Errorf("%w: page %d is out of range (1-%d)", domain.ErrInvalidArgument, page, view.TotalPages)
	}
	view, err = d.View(ctx, username, store.GetState())
	if err != nil {
		return nil, fmt.Errorf("failed to load pull requests: %w", err)
	}
	return view, nil
}

func init() {
	rootCmd.AddCommand(prsCmd)
	prsCmd.Flags().String("tab", "all", "Tab to show: all, open, merged or closed")
	prsCmd.Flags().String("search", "", "Only show pull requests whose title, URL or number contains this text")
	prsCmd.Flags().String("org", "", "Only show pull requests in repositories owned by this organization")
	prsCmd.Flags().Int("page", 1, "Page number (1-based)")
	prsCmd.Flags().Int("page-size", 0, "Pull requests per page (default 15)")

	_ = v.BindPFlag("view.page_size", prsCmd.Flags().Lookup("page-size"))
}
