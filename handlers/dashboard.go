// handlers/dashboard.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/pkg/lifecycle"
)

// LeadershipDashboard rolls every report into the counts leadership reviews:
// lifecycle totals, category and priority breakdowns, and citizen sentiment.
func LeadershipDashboard(w http.ResponseWriter, r *http.Request) {
	reports, _, err := engine.ListReports(r.Context(), lifecycle.ReportQuery{})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	counts := lifecycle.AggregateCounts(reports)
	avg, rated := lifecycle.AverageRating(reports)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"counts":        counts,
		"byCategory":    lifecycle.CountsByCategory(reports),
		"byPriority":    lifecycle.CountsByPriority(reports),
		"averageRating": avg,
		"ratedReports":  rated,
		"generatedAt":   time.Now().Format(time.RFC3339),
	})
}

// WatchDashboard streams live status counts over SSE. Each event carries the
// recomputed roll-up; the subscription is torn down when the client goes away.
func WatchDashboard(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, err := engine.Watch(r.Context(), lifecycle.ReportQuery{})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-sub.Snapshots():
			if !open {
				return
			}
			payload, err := json.Marshal(map[string]interface{}{
				"counts":     lifecycle.AggregateCounts(snapshot),
				"byCategory": lifecycle.CountsByCategory(snapshot),
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// ExportReports downloads every report as an Excel workbook for offline
// review in panchayat meetings.
func ExportReports(w http.ResponseWriter, r *http.Request) {
	reports, _, err := engine.ListReports(r.Context(), lifecycle.ReportQuery{})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Reports"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Category", "Priority", "Status", "Description", "Village",
		"Department", "Supporters", "Rating", "Submitted At", "Resolution Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, rep := range reports {
		values := []interface{}{
			rep.ID.String(),
			string(rep.Category),
			string(rep.Priority),
			string(rep.Status),
			rep.Description,
			rep.Village,
			derefOr(rep.DepartmentCode, "-"),
			rep.SupportersCount,
			ratingOrDash(rep),
			rep.ReportedAt.Time().Format(time.RFC3339),
			rep.ResolutionNote,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("village_reports_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func ratingOrDash(r models.Report) interface{} {
	if r.Rating == nil {
		return "-"
	}
	return *r.Rating
}
