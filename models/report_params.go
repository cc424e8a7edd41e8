// models/report_params.go
package models

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ReportParams are the common list-endpoint query parameters. All filters are
// optional; paging always has defaults.
type ReportParams struct {
	SubmittedBy    string
	Status         string
	Category       string
	DepartmentCode string
	StartDate      *time.Time
	EndDate        *time.Time
	Page           int
	Limit          int
}

// ParseReportParams reads list filters and paging from the query string.
func ParseReportParams(r *http.Request) (*ReportParams, error) {
	q := r.URL.Query()
	p := &ReportParams{
		SubmittedBy: q.Get("submittedBy"),
		Status:      q.Get("status"),
		Category:    q.Get("category"),
		Page:        1,
		Limit:       DefaultPageSize,
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", v)
		}
		p.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		p.Limit = n
	}
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate %q: expected RFC3339", v)
		}
		p.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate %q: expected RFC3339", v)
		}
		p.EndDate = &t
	}
	return p, nil
}

// Validate checks paging bounds and filter enum values.
func (p *ReportParams) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1")
	}
	if p.Limit < 1 || p.Limit > MaxPageSize {
		return fmt.Errorf("limit must be between 1 and %d", MaxPageSize)
	}
	if p.Status != "" && !KnownStatus(ReportStatus(p.Status)) {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("endDate before startDate")
	}
	return nil
}

// Offset returns the row offset for the current page.
func (p *ReportParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
