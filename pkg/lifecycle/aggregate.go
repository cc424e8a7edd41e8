package lifecycle

import (
	"time"

	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/utils"
)

// StatusCounts is the dashboard roll-up. Total counts every report, including
// any with a status outside the known lifecycle, so the three buckets may sum
// to less than Total on dirty data.
type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// AggregateCounts tallies reports by lifecycle status in one pass.
func AggregateCounts(reports []models.Report) StatusCounts {
	var c StatusCounts
	c.Total = len(reports)
	for i := range reports {
		switch reports[i].Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusInProgress:
			c.InProgress++
		case models.StatusResolved:
			c.Resolved++
		}
	}
	return c
}

// CountsByCategory tallies reports per category.
func CountsByCategory(reports []models.Report) map[string]int {
	out := make(map[string]int)
	for i := range reports {
		out[string(reports[i].Category)]++
	}
	return out
}

// CountsByPriority tallies reports per priority.
func CountsByPriority(reports []models.Report) map[string]int {
	out := make(map[string]int)
	for i := range reports {
		out[string(reports[i].Priority)]++
	}
	return out
}

// AverageRating returns the mean citizen rating over rated reports, and how
// many reports carried a rating. Zero reports rated yields (0, 0).
func AverageRating(reports []models.Report) (float64, int) {
	sum, n := 0, 0
	for i := range reports {
		if reports[i].Rating != nil {
			sum += *reports[i].Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return float64(sum) / float64(n), n
}

// FilterByProximity keeps reports whose coordinates fall inside the bounding
// box of radiusKm around the center. Border hits are included.
func FilterByProximity(reports []models.Report, lat, lon, radiusKm float64) []models.Report {
	bound := utils.ProximityBound(lat, lon, radiusKm)
	out := make([]models.Report, 0, len(reports))
	for i := range reports {
		if utils.InBound(bound, reports[i].Latitude, reports[i].Longitude) {
			out = append(out, reports[i])
		}
	}
	return out
}

// FilterSince keeps reports submitted at or after the cutoff, for the recent
// alerts feed.
func FilterSince(reports []models.Report, cutoff time.Time) []models.Report {
	out := make([]models.Report, 0, len(reports))
	for i := range reports {
		if !reports[i].ReportedAt.Time().Before(cutoff) {
			out = append(out, reports[i])
		}
	}
	return out
}
