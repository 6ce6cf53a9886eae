package domain

// CategoryCounts holds the number of pull requests per tab.
type CategoryCounts struct {
	All    int `json:"all"`
	Open   int `json:"open"`
	Merged int `json:"merged"`
	Closed int `json:"closed"`
}

// Get returns the count for a tab value.
func (c CategoryCounts) Get(cat Category) int {
	switch cat {
	case CategoryOpen:
		return c.Open
	case CategoryMerged:
		return c.Merged
	case CategoryClosed:
		return c.Closed
	default:
		return c.All
	}
}

// LeadTimeStats describes how long merged pull requests stayed open, in hours.
type LeadTimeStats struct {
	Count       int     `json:"count"`
	MeanHours   float64 `json:"mean_hours"`
	MedianHours float64 `json:"median_hours"`
	P90Hours    float64 `json:"p90_hours"`
}

// Summary is the output of the stats command.
type Summary struct {
	Username          string                `json:"username"`
	TotalCount        int                   `json:"total_count"`
	IncompleteResults bool                  `json:"incomplete_results"`
	Counts            CategoryCounts        `json:"counts"`
	Organizations     []OrganizationSummary `json:"organizations"`
	LeadTime          LeadTimeStats         `json:"lead_time"`
}
