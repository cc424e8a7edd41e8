package lifecycle

import (
	"testing"
	"time"

	"p9e.in/villagepulse/models"
)

func rep(status models.ReportStatus) models.Report {
	return models.Report{Status: status}
}

func TestAggregateCounts(t *testing.T) {
	tests := []struct {
		name    string
		reports []models.Report
		want    StatusCounts
	}{
		{
			name: "empty",
			want: StatusCounts{},
		},
		{
			name: "mixed",
			reports: []models.Report{
				rep(models.StatusPending),
				rep(models.StatusPending),
				rep(models.StatusInProgress),
				rep(models.StatusResolved),
			},
			want: StatusCounts{Total: 4, Pending: 2, InProgress: 1, Resolved: 1},
		},
		{
			name: "unknown status counts toward total only",
			reports: []models.Report{
				rep(models.StatusPending),
				rep("Archived"),
			},
			want: StatusCounts{Total: 2, Pending: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateCounts(tt.reports); got != tt.want {
				t.Errorf("AggregateCounts() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterByProximity(t *testing.T) {
	center := models.Report{Latitude: 17.4, Longitude: 78.5}
	radiusKm := 2.0
	delta := 0.03 * radiusKm

	tests := []struct {
		name   string
		report models.Report
		want   bool
	}{
		{"at center", center, true},
		{"inside box", models.Report{Latitude: 17.4 + delta/2, Longitude: 78.5 - delta/2}, true},
		{"on latitude border", models.Report{Latitude: 17.4 + delta, Longitude: 78.5}, true},
		{"on corner", models.Report{Latitude: 17.4 - delta, Longitude: 78.5 + delta}, true},
		{"just past latitude border", models.Report{Latitude: 17.4 + delta + 1e-9, Longitude: 78.5}, false},
		{"far away", models.Report{Latitude: 18.0, Longitude: 79.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByProximity([]models.Report{tt.report}, center.Latitude, center.Longitude, radiusKm)
			if (len(got) == 1) != tt.want {
				t.Errorf("FilterByProximity() kept=%v, want %v", len(got) == 1, tt.want)
			}
		})
	}

	t.Run("empty input", func(t *testing.T) {
		if got := FilterByProximity(nil, 17.4, 78.5, radiusKm); len(got) != 0 {
			t.Errorf("expected empty result, got %d", len(got))
		}
	})
}

func TestFilterSince(t *testing.T) {
	now := time.Now()
	reports := []models.Report{
		{ReportedAt: models.JSONTime(now.Add(-48 * time.Hour))},
		{ReportedAt: models.JSONTime(now.Add(-2 * time.Hour))},
		{ReportedAt: models.JSONTime(now)},
	}
	got := FilterSince(reports, now.Add(-24*time.Hour))
	if len(got) != 2 {
		t.Fatalf("FilterSince kept %d reports, want 2", len(got))
	}
}

func TestAverageRating(t *testing.T) {
	r3, r5 := 3, 5
	reports := []models.Report{
		{Rating: &r3},
		{Rating: &r5},
		{},
	}
	avg, n := AverageRating(reports)
	if n != 2 || avg != 4.0 {
		t.Errorf("AverageRating() = (%v, %d), want (4, 2)", avg, n)
	}

	avg, n = AverageRating(nil)
	if n != 0 || avg != 0 {
		t.Errorf("AverageRating(nil) = (%v, %d), want (0, 0)", avg, n)
	}
}

func TestCountsByCategoryAndPriority(t *testing.T) {
	reports := []models.Report{
		{Category: models.CategoryWater, Priority: models.PriorityHigh},
		{Category: models.CategoryWater, Priority: models.PriorityLow},
		{Category: models.CategoryRoads, Priority: models.PriorityHigh},
	}
	byCat := CountsByCategory(reports)
	if byCat["Water Supply"] != 2 || byCat["Roads & Infrastructure"] != 1 {
		t.Errorf("CountsByCategory() = %v", byCat)
	}
	byPri := CountsByPriority(reports)
	if byPri["High"] != 2 || byPri["Low"] != 1 {
		t.Errorf("CountsByPriority() = %v", byPri)
	}
}
