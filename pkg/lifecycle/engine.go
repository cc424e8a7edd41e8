package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/utils"
)

// casRetries bounds the read-modify-write retry loop. A mutation that keeps
// losing the version race this many times surfaces Conflict to the caller.
const casRetries = 3

// Engine validates and applies every report/assignment mutation. All writes
// go through the store's conditional-write primitives, so two racing actors
// can never both commit mutually exclusive transitions.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(s Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// CreateReportInput carries everything a new report needs. ReportedAt is the
// client-side submission time; zero means "now".
type CreateReportInput struct {
	SubmittedBy     string
	Category        models.ReportCategory
	Priority        models.ReportPriority
	Description     string
	Latitude        float64
	Longitude       float64
	Village         string
	PhotoURLs       []string
	DepartmentCode  *string
	ReporterDetails []byte
	ReportedAt      time.Time
}

// CreateReport validates the input and persists a new Pending report.
func (e *Engine) CreateReport(ctx context.Context, in CreateReportInput) (*models.Report, error) {
	if in.SubmittedBy == "" {
		return nil, errf(KindValidation, "submittedBy is required")
	}
	if in.Category == "" {
		return nil, errf(KindValidation, "category is required")
	}
	if !models.KnownCategory(in.Category) {
		return nil, errf(KindValidation, "unknown category %q", in.Category)
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, errf(KindValidation, "description is required")
	}
	if err := utils.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, wrapf(KindValidation, err, "invalid location")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.KnownPriority(in.Priority) {
		return nil, errf(KindValidation, "unknown priority %q", in.Priority)
	}

	reportedAt := in.ReportedAt
	if reportedAt.IsZero() {
		reportedAt = e.now()
	}

	r := &models.Report{
		ID:                  uuid.New(),
		SubmittedBy:         in.SubmittedBy,
		Category:            in.Category,
		Priority:            in.Priority,
		Description:         in.Description,
		Latitude:            in.Latitude,
		Longitude:           in.Longitude,
		Village:             in.Village,
		PhotoURLs:           pq.StringArray(in.PhotoURLs),
		Status:              models.StatusPending,
		DepartmentCode:      in.DepartmentCode,
		SupportersCount:     0,
		ResolutionPhotoURLs: pq.StringArray{},
		ReporterDetails:     datatypes.JSON(in.ReporterDetails),
		ReportedAt:          models.JSONTime(reportedAt),
		Version:             1,
	}
	if err := e.store.CreateReport(ctx, r); err != nil {
		return nil, e.storeErr(err, "create report")
	}
	return r, nil
}

// GetReport fetches one report.
func (e *Engine) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	r, err := e.store.GetReport(ctx, id)
	if err != nil {
		return nil, e.storeErr(err, "get report")
	}
	return r, nil
}

// ListReports pages through reports matching q.
func (e *Engine) ListReports(ctx context.Context, q ReportQuery) ([]models.Report, int64, error) {
	reports, total, err := e.store.ListReports(ctx, q)
	if err != nil {
		return nil, 0, e.storeErr(err, "list reports")
	}
	return reports, total, nil
}

// Support records one distinct supporter and returns the new count. The
// membership check and the increment are a single atomic store operation, so
// concurrent duplicate calls can never double count.
func (e *Engine) Support(ctx context.Context, reportID uuid.UUID, supporterID string) (int, error) {
	if supporterID == "" {
		return 0, errf(KindValidation, "supporter id is required")
	}
	count, err := e.store.AddSupporter(ctx, reportID, supporterID)
	if err != nil {
		if errors.Is(err, ErrDuplicateSupport) {
			return 0, errf(KindAlreadySupported, "user %s already supported report %s", supporterID, reportID)
		}
		return 0, e.storeErr(err, "support report")
	}
	return count, nil
}

// Assign dispatches a Pending report to a worker: it creates the Assignment
// (status Pending) and moves the report to In Progress in one atomic write.
// Exactly one of two racing assigns can succeed; the loser observes the fresh
// state and fails InvalidTransition.
func (e *Engine) Assign(ctx context.Context, reportID uuid.UUID, workerID string, actor Actor) (*models.Assignment, *models.Report, error) {
	if workerID == "" {
		return nil, nil, errf(KindValidation, "workerId is required")
	}
	if !Authorize(actor, ActionAssignReport, nil) {
		return nil, nil, errf(KindForbidden, "role %q may not assign reports", actor.Role)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		r, err := e.store.GetReport(ctx, reportID)
		if err != nil {
			return nil, nil, e.storeErr(err, "assign report")
		}
		if r.Status != models.StatusPending {
			return nil, nil, errf(KindInvalidTransition, "cannot assign report in state %q", r.Status)
		}
		if r.AssignmentID != nil {
			return nil, nil, errf(KindInvalidTransition, "report %s already has an assignment", reportID)
		}

		a := &models.Assignment{
			ID:         uuid.New(),
			ReportID:   r.ID,
			WorkerID:   workerID,
			Status:     models.AssignmentPending,
			Title:      assignmentTitle(r),
			Priority:   r.Priority,
			Location:   r.Village,
			AssignedBy: actor.ID,
			AssignedAt: e.now(),
			Version:    1,
		}

		expected := r.Version
		r.Status = models.StatusInProgress
		r.AssignedWorkerID = &workerID
		r.AssignmentID = &a.ID

		err = e.store.CreateAssignmentWithReport(ctx, a, r, expected)
		if err == nil {
			return a, r, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, nil, e.storeErr(err, "assign report")
		}
		// Lost the race; re-read and re-validate.
	}
	return nil, nil, errf(KindConflict, "report %s is being modified concurrently", reportID)
}

// UpdateAssignmentStatus advances an assignment Pending -> Active -> Completed
// and mirrors the change into the parent report (Active -> In Progress,
// Completed -> Resolved) atomically. Only the owning worker may call it.
// resolutionNote is attached to the report when completing; it is ignored for
// other transitions.
func (e *Engine) UpdateAssignmentStatus(ctx context.Context, assignmentID uuid.UUID, newStatus models.AssignmentStatus, resolutionNote string, actor Actor) (*models.Assignment, models.ReportStatus, error) {
	if !models.KnownAssignmentStatus(newStatus) {
		return nil, "", errf(KindValidation, "unknown assignment status %q", newStatus)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		a, err := e.store.GetAssignment(ctx, assignmentID)
		if err != nil {
			return nil, "", e.storeErr(err, "update assignment")
		}
		if !Authorize(actor, ActionUpdateAssignment, a) {
			return nil, "", errf(KindForbidden, "assignment %s does not belong to actor %s", assignmentID, actor.ID)
		}
		if !validAssignmentStep(a.Status, newStatus) {
			return nil, "", errf(KindInvalidTransition, "assignment cannot move %q -> %q", a.Status, newStatus)
		}

		r, err := e.store.GetReport(ctx, a.ReportID)
		if err != nil {
			return nil, "", e.storeErr(err, "update assignment")
		}

		aVersion, rVersion := a.Version, r.Version
		a.Status = newStatus
		switch newStatus {
		case models.AssignmentActive:
			r.Status = models.StatusInProgress
		case models.AssignmentCompleted:
			now := e.now()
			a.CompletedAt = &now
			r.Status = models.StatusResolved
			if resolutionNote != "" {
				r.ResolutionNote = resolutionNote
			}
		}

		err = e.store.UpdateAssignmentWithReport(ctx, a, aVersion, r, rVersion)
		if err == nil {
			return a, r.Status, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, "", e.storeErr(err, "update assignment")
		}
	}
	return nil, "", errf(KindConflict, "assignment %s is being modified concurrently", assignmentID)
}

// DepartmentPatch is the department-direct update surface, used for call-in
// reports with no digital worker flow. Nil fields are left untouched.
type DepartmentPatch struct {
	Status              *models.ReportStatus
	Priority            *models.ReportPriority
	TeamLead            *string
	ResolutionNote      *string
	ResolutionPhotoURLs []string
}

// DepartmentUpdateReport lets department/leader staff move a report through
// the lifecycle directly, bypassing the Assignment sub-flow. The transition
// table still applies; Pending -> Resolved is the documented direct-resolve
// shortcut for call-in reports.
func (e *Engine) DepartmentUpdateReport(ctx context.Context, reportID uuid.UUID, patch DepartmentPatch, actor Actor) (*models.Report, error) {
	if !Authorize(actor, ActionUpdateReport, nil) {
		return nil, errf(KindForbidden, "role %q may not update reports", actor.Role)
	}
	if patch.Status != nil && !models.KnownStatus(*patch.Status) {
		return nil, errf(KindValidation, "unknown status %q", *patch.Status)
	}
	if patch.Priority != nil && !models.KnownPriority(*patch.Priority) {
		return nil, errf(KindValidation, "unknown priority %q", *patch.Priority)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		r, err := e.store.GetReport(ctx, reportID)
		if err != nil {
			return nil, e.storeErr(err, "update report")
		}

		if patch.Status != nil {
			if !validDepartmentStep(r.Status, *patch.Status) {
				return nil, errf(KindInvalidTransition, "report cannot move %q -> %q", r.Status, *patch.Status)
			}
		}

		expected := r.Version
		if patch.Status != nil {
			r.Status = *patch.Status
		}
		if patch.Priority != nil {
			r.Priority = *patch.Priority
		}
		if patch.TeamLead != nil {
			r.TeamLead = *patch.TeamLead
		}
		if patch.ResolutionNote != nil {
			r.ResolutionNote = *patch.ResolutionNote
		}
		if len(patch.ResolutionPhotoURLs) > 0 {
			r.ResolutionPhotoURLs = append(r.ResolutionPhotoURLs, patch.ResolutionPhotoURLs...)
		}

		err = e.store.UpdateReport(ctx, r, expected)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, e.storeErr(err, "update report")
		}
	}
	return nil, errf(KindConflict, "report %s is being modified concurrently", reportID)
}

// SubmitFeedback records the submitter's one-shot rating on a resolved report.
func (e *Engine) SubmitFeedback(ctx context.Context, reportID uuid.UUID, rating int, comment string, actor Actor) (*models.Feedback, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		r, err := e.store.GetReport(ctx, reportID)
		if err != nil {
			return nil, e.storeErr(err, "submit feedback")
		}
		if !Authorize(actor, ActionRateReport, r) {
			return nil, errf(KindForbidden, "only the submitter may rate report %s", reportID)
		}
		if r.Status != models.StatusResolved {
			return nil, errf(KindInvalidTransition, "report must be Resolved before feedback, currently %q", r.Status)
		}
		if rating < 1 || rating > 5 {
			return nil, errf(KindValidation, "rating must be between 1 and 5")
		}
		if r.Rating != nil {
			return nil, errf(KindAlreadyRated, "report %s is already rated", reportID)
		}

		f := &models.Feedback{
			ID:       uuid.New(),
			ReportID: r.ID,
			UserID:   actor.ID,
			Rating:   rating,
			Comment:  comment,
		}

		expected := r.Version
		now := e.now()
		r.Rating = &rating
		r.Feedback = comment
		r.RatedAt = &now

		err = e.store.CreateFeedbackWithReport(ctx, f, r, expected)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, ErrDuplicateFeedback) {
			return nil, errf(KindAlreadyRated, "report %s is already rated", reportID)
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, e.storeErr(err, "submit feedback")
		}
	}
	return nil, errf(KindConflict, "report %s is being modified concurrently", reportID)
}

// GetAssignment fetches one assignment.
func (e *Engine) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	a, err := e.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, e.storeErr(err, "get assignment")
	}
	return a, nil
}

// WorkerAssignments lists a worker's assignments, newest first.
func (e *Engine) WorkerAssignments(ctx context.Context, workerID string) ([]models.Assignment, error) {
	as, err := e.store.ListAssignmentsByWorker(ctx, workerID)
	if err != nil {
		return nil, e.storeErr(err, "list assignments")
	}
	return as, nil
}

// ReportFeedback lists feedback rows for a report.
func (e *Engine) ReportFeedback(ctx context.Context, reportID uuid.UUID) ([]models.Feedback, error) {
	if _, err := e.store.GetReport(ctx, reportID); err != nil {
		return nil, e.storeErr(err, "list feedback")
	}
	fs, err := e.store.ListFeedback(ctx, reportID)
	if err != nil {
		return nil, e.storeErr(err, "list feedback")
	}
	return fs, nil
}

// Watch opens a live subscription; see Store.Watch.
func (e *Engine) Watch(ctx context.Context, q ReportQuery) (Subscription, error) {
	sub, err := e.store.Watch(ctx, q)
	if err != nil {
		return nil, e.storeErr(err, "watch reports")
	}
	return sub, nil
}

// validAssignmentStep enforces the strict assignment ordering.
func validAssignmentStep(from, to models.AssignmentStatus) bool {
	switch {
	case from == models.AssignmentPending && to == models.AssignmentActive:
		return true
	case from == models.AssignmentActive && to == models.AssignmentCompleted:
		return true
	}
	return false
}

// validDepartmentStep is the department-direct edge set of the report state
// machine: forward steps only, plus the Pending -> Resolved shortcut.
func validDepartmentStep(from, to models.ReportStatus) bool {
	switch {
	case from == models.StatusPending && to == models.StatusInProgress:
		return true
	case from == models.StatusInProgress && to == models.StatusResolved:
		return true
	case from == models.StatusPending && to == models.StatusResolved:
		return true
	}
	return false
}

// storeErr converts store failures into the public taxonomy. Store-specific
// error types never cross the engine boundary.
func (e *Engine) storeErr(err error, op string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return wrapf(KindNotFound, err, "%s", op)
	case errors.Is(err, ErrVersionConflict):
		return wrapf(KindConflict, err, "%s", op)
	case errors.Is(err, context.DeadlineExceeded):
		return wrapf(KindTimeout, err, "%s: store deadline exceeded", op)
	case errors.Is(err, context.Canceled):
		return wrapf(KindTimeout, err, "%s: store call canceled", op)
	default:
		return wrapf(KindStorageUnavailable, err, "%s", op)
	}
}

func assignmentTitle(r *models.Report) string {
	title := strings.TrimSpace(r.Description)
	if len(title) > 80 {
		title = title[:77] + "..."
	}
	return string(r.Category) + ": " + title
}
