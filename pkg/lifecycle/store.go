package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"p9e.in/villagepulse/models"
)

// Store sentinel errors. The engine maps these onto the public taxonomy;
// anything else coming out of a store is treated as StorageUnavailable.
var (
	ErrNotFound          = errors.New("store: not found")
	ErrVersionConflict   = errors.New("store: version conflict")
	ErrDuplicateSupport  = errors.New("store: duplicate supporter")
	ErrDuplicateFeedback = errors.New("store: duplicate feedback")
)

// ReportQuery filters report listings and live watches.
type ReportQuery struct {
	SubmittedBy    string
	Status         models.ReportStatus
	Category       models.ReportCategory
	DepartmentCode string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time

	// UnroutedOrPending widens a department feed to reports that have not
	// been routed to any department yet.
	UnroutedOrPending bool

	// Offset/Limit page the result. Limit 0 means no paging.
	Offset int
	Limit  int
}

// Subscription is a live report feed. Snapshots delivers the full current
// result of the watched query after every observed change; Cancel is safe to
// call more than once and guarantees no further deliveries afterwards.
type Subscription interface {
	Snapshots() <-chan []models.Report
	Cancel()
}

// Store is the persistence capability the engine runs against: point reads,
// conditional (compare-and-swap) writes keyed on entity version, a few
// compound writes that must be atomic, and a revocable live query.
//
// Implementations: store.GormStore (Postgres) and MemStore (tests).
type Store interface {
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	CreateReport(ctx context.Context, r *models.Report) error

	// UpdateReport persists r only if the stored version still equals
	// expectedVersion; it bumps r.Version on success and returns
	// ErrVersionConflict otherwise.
	UpdateReport(ctx context.Context, r *models.Report, expectedVersion int64) error

	ListReports(ctx context.Context, q ReportQuery) ([]models.Report, int64, error)

	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	ListAssignmentsByWorker(ctx context.Context, workerID string) ([]models.Assignment, error)

	// CreateAssignmentWithReport atomically creates the assignment and applies
	// the conditional report update that links it.
	CreateAssignmentWithReport(ctx context.Context, a *models.Assignment, r *models.Report, reportVersion int64) error

	// UpdateAssignmentWithReport atomically applies a conditional write to the
	// assignment and the mirrored update to its parent report.
	UpdateAssignmentWithReport(ctx context.Context, a *models.Assignment, assignmentVersion int64, r *models.Report, reportVersion int64) error

	// AddSupporter records supporter membership and increments the counter in
	// one atomic step, returning the new count. A repeat supporter gets
	// ErrDuplicateSupport and the count is untouched.
	AddSupporter(ctx context.Context, reportID uuid.UUID, userID string) (int, error)

	// CreateFeedbackWithReport atomically inserts the feedback row and applies
	// the conditional report update denormalizing the rating.
	CreateFeedbackWithReport(ctx context.Context, f *models.Feedback, r *models.Report, reportVersion int64) error

	ListFeedback(ctx context.Context, reportID uuid.UUID) ([]models.Feedback, error)

	// Watch opens a live subscription over q. The first snapshot reflects the
	// current state; later ones follow mutations. Ordering beyond "eventually
	// the latest state" is not guaranteed.
	Watch(ctx context.Context, q ReportQuery) (Subscription, error)
}
