package usecase

import (
	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
)

// MergeLeadTime describes the time from creation to merge of the merged pull
// requests in items. Pull requests merged before they were created (clock skew
// in imported data) are ignored.
func MergeLeadTime(items []domain.PullRequest) domain.LeadTimeStats {
	hours := make(stats.Float64Data, 0, len(items))
	for _, pr := range items {
		if pr.MergedAt == nil {
			continue
		}
		d := pr.MergedAt.Sub(pr.CreatedAt)
		if d < 0 {
			continue
		}
		hours = append(hours, d.Hours())
	}
	if len(hours) == 0 {
		return domain.LeadTimeStats{}
	}

	// The inputs are non-empty and the percentile is in range, so these cannot fail.
	mean, _ := stats.Mean(hours)
	median, _ := stats.Median(hours)
	p90, _ := stats.Percentile(hours, 90)

	return domain.LeadTimeStats{
		Count:       len(hours),
		MeanHours:   mean,
		MedianHours: median,
		P90Hours:    p90,
	}
}
