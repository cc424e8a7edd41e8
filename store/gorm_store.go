// Package store backs the lifecycle engine with Postgres through GORM.
// Conditional writes are plain UPDATE ... WHERE version = ? statements; an
// affected-row count of zero is how a lost race shows up.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/pkg/lifecycle"
)

// defaultPollInterval paces the Watch polling loop. Postgres has no push
// channel wired here, so live dashboards poll.
const defaultPollInterval = 3 * time.Second

type GormStore struct {
	db           *gorm.DB
	pollInterval time.Duration
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, pollInterval: defaultPollInterval}
}

var _ lifecycle.Store = (*GormStore)(nil)

func (s *GormStore) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get report")
	}
	return &r, nil
}

func (s *GormStore) CreateReport(ctx context.Context, r *models.Report) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return translate(err, "create report")
	}
	return nil
}

func (s *GormStore) UpdateReport(ctx context.Context, r *models.Report, expectedVersion int64) error {
	return s.conditionalReportUpdate(s.db.WithContext(ctx), r, expectedVersion)
}

// conditionalReportUpdate writes every column of r guarded by the version
// check and bumps r.Version on success.
func (s *GormStore) conditionalReportUpdate(tx *gorm.DB, r *models.Report, expectedVersion int64) error {
	r.Version = expectedVersion + 1
	res := tx.Model(&models.Report{}).
		Where("id = ? AND version = ?", r.ID, expectedVersion).
		Select("*").Omit("id", "created_at", "deleted_at").
		Updates(r)
	if res.Error != nil {
		r.Version = expectedVersion
		return translate(res.Error, "update report")
	}
	if res.RowsAffected == 0 {
		r.Version = expectedVersion
		return lifecycle.ErrVersionConflict
	}
	return nil
}

func (s *GormStore) ListReports(ctx context.Context, q lifecycle.ReportQuery) ([]models.Report, int64, error) {
	tx := s.applyQuery(s.db.WithContext(ctx).Model(&models.Report{}), q)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count reports")
	}

	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var reports []models.Report
	if err := tx.Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, 0, translate(err, "list reports")
	}
	return reports, total, nil
}

func (s *GormStore) applyQuery(tx *gorm.DB, q lifecycle.ReportQuery) *gorm.DB {
	if q.SubmittedBy != "" {
		tx = tx.Where("submitted_by = ?", q.SubmittedBy)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.DepartmentCode != "" {
		if q.UnroutedOrPending {
			tx = tx.Where("department_code = ? OR department_code IS NULL", q.DepartmentCode)
		} else {
			tx = tx.Where("department_code = ?", q.DepartmentCode)
		}
	}
	if q.CreatedAfter != nil {
		tx = tx.Where("created_at >= ?", *q.CreatedAfter)
	}
	if q.CreatedBefore != nil {
		tx = tx.Where("created_at <= ?", *q.CreatedBefore)
	}
	return tx
}

func (s *GormStore) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get assignment")
	}
	return &a, nil
}

func (s *GormStore) ListAssignmentsByWorker(ctx context.Context, workerID string) ([]models.Assignment, error) {
	var out []models.Assignment
	err := s.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("assigned_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list assignments")
	}
	return out, nil
}

func (s *GormStore) CreateAssignmentWithReport(ctx context.Context, a *models.Assignment, r *models.Report, reportVersion int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return translate(err, "create assignment")
		}
		return s.conditionalReportUpdate(tx, r, reportVersion)
	})
}

func (s *GormStore) UpdateAssignmentWithReport(ctx context.Context, a *models.Assignment, assignmentVersion int64, r *models.Report, reportVersion int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a.Version = assignmentVersion + 1
		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND version = ?", a.ID, assignmentVersion).
			Select("*").Omit("id", "created_at").
			Updates(a)
		if res.Error != nil {
			a.Version = assignmentVersion
			return translate(res.Error, "update assignment")
		}
		if res.RowsAffected == 0 {
			a.Version = assignmentVersion
			return lifecycle.ErrVersionConflict
		}
		return s.conditionalReportUpdate(tx, r, reportVersion)
	})
}

func (s *GormStore) AddSupporter(ctx context.Context, reportID uuid.UUID, userID string) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ReportSupporter{ReportID: reportID, UserID: userID})
		if res.Error != nil {
			return translate(res.Error, "add supporter")
		}
		if res.RowsAffected == 0 {
			return lifecycle.ErrDuplicateSupport
		}

		upd := tx.Model(&models.Report{}).
			Where("id = ?", reportID).
			UpdateColumns(map[string]interface{}{
				"supporters_count": gorm.Expr("supporters_count + 1"),
				"version":          gorm.Expr("version + 1"),
				"updated_at":       time.Now(),
			})
		if upd.Error != nil {
			return translate(upd.Error, "increment supporters")
		}
		if upd.RowsAffected == 0 {
			return lifecycle.ErrNotFound
		}

		return tx.Model(&models.Report{}).
			Select("supporters_count").
			Where("id = ?", reportID).
			Scan(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) CreateFeedbackWithReport(ctx context.Context, f *models.Feedback, r *models.Report, reportVersion int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(f)
		if res.Error != nil {
			return translate(res.Error, "create feedback")
		}
		if res.RowsAffected == 0 {
			return lifecycle.ErrDuplicateFeedback
		}
		return s.conditionalReportUpdate(tx, r, reportVersion)
	})
}

func (s *GormStore) ListFeedback(ctx context.Context, reportID uuid.UUID) ([]models.Feedback, error) {
	var out []models.Feedback
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list feedback")
	}
	return out, nil
}

// pollSub implements lifecycle.Subscription over a polling loop. Only the
// loop goroutine sends on ch; Cancel waits for it to exit, so there can be no
// delivery after Cancel returns.
type pollSub struct {
	ch     chan []models.Report
	stop   chan struct{}
	done   chan struct{}
	cancel func()
}

func (p *pollSub) Snapshots() <-chan []models.Report { return p.ch }

func (p *pollSub) Cancel() { p.cancel() }

func (s *GormStore) Watch(ctx context.Context, q lifecycle.ReportQuery) (lifecycle.Subscription, error) {
	first, _, err := s.ListReports(ctx, q)
	if err != nil {
		return nil, err
	}

	sub := &pollSub{
		ch:   make(chan []models.Report, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	var once sync.Once
	sub.cancel = func() {
		once.Do(func() {
			close(sub.stop)
			<-sub.done
		})
	}

	go s.pollLoop(ctx, q, first, sub)
	return sub, nil
}

func (s *GormStore) pollLoop(ctx context.Context, q lifecycle.ReportQuery, first []models.Report, sub *pollSub) {
	defer close(sub.done)
	defer close(sub.ch)

	deliver := func(snap []models.Report) {
		select {
		case sub.ch <- snap:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}

	last := fingerprint(first)
	deliver(first)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sub.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, _, err := s.ListReports(ctx, q)
			if err != nil {
				continue
			}
			fp := fingerprint(snap)
			if fp != last {
				last = fp
				deliver(snap)
			}
		}
	}
}

// fingerprint condenses a result set to its ids and versions, enough to tell
// whether anything the watcher cares about changed between polls.
func fingerprint(reports []models.Report) string {
	h := make([]byte, 0, len(reports)*24)
	for i := range reports {
		h = append(h, reports[i].ID.String()...)
		h = append(h, fmt.Sprintf(":%d;", reports[i].Version)...)
	}
	return string(h)
}

// translate maps GORM errors onto the store sentinels the engine understands.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, lifecycle.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
