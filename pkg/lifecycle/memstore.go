package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"p9e.in/villagepulse/models"
)

// MemStore is the in-memory Store used by the engine tests and local demos.
// A single mutex serializes every operation, which makes each compound write
// trivially atomic; the version checks still run so the store exercises the
// same conflict paths as Postgres.
type MemStore struct {
	mu          sync.Mutex
	reports     map[uuid.UUID]*models.Report
	assignments map[uuid.UUID]*models.Assignment
	supporters  map[uuid.UUID]map[string]struct{}
	feedback    map[uuid.UUID][]models.Feedback
	subs        map[int]*memSub
	nextSubID   int
}

func NewMemStore() *MemStore {
	return &MemStore{
		reports:     make(map[uuid.UUID]*models.Report),
		assignments: make(map[uuid.UUID]*models.Assignment),
		supporters:  make(map[uuid.UUID]map[string]struct{}),
		feedback:    make(map[uuid.UUID][]models.Feedback),
		subs:        make(map[int]*memSub),
	}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(r), nil
}

func (s *MemStore) CreateReport(ctx context.Context, r *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.reports[r.ID] = cloneReport(r)
	s.notifyLocked()
	return nil
}

func (s *MemStore) UpdateReport(ctx context.Context, r *models.Report, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateReportLocked(r, expectedVersion); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// updateReportLocked is the CAS core shared by every compound write.
func (s *MemStore) updateReportLocked(r *models.Report, expectedVersion int64) error {
	stored, ok := s.reports[r.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	r.Version = expectedVersion + 1
	r.UpdatedAt = time.Now()
	r.CreatedAt = stored.CreatedAt
	s.reports[r.ID] = cloneReport(r)
	return nil
}

func (s *MemStore) ListReports(ctx context.Context, q ReportQuery) ([]models.Report, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.queryLocked(q)
	total := int64(len(matched))
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (s *MemStore) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *a
	return &out, nil
}

func (s *MemStore) ListAssignmentsByWorker(ctx context.Context, workerID string) ([]models.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.WorkerID == workerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

func (s *MemStore) CreateAssignmentWithReport(ctx context.Context, a *models.Assignment, r *models.Report, reportVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateReportLocked(r, reportVersion); err != nil {
		return err
	}
	cp := *a
	s.assignments[a.ID] = &cp
	s.notifyLocked()
	return nil
}

func (s *MemStore) UpdateAssignmentWithReport(ctx context.Context, a *models.Assignment, assignmentVersion int64, r *models.Report, reportVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assignments[a.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != assignmentVersion {
		return ErrVersionConflict
	}
	if err := s.updateReportLocked(r, reportVersion); err != nil {
		return err
	}
	a.Version = assignmentVersion + 1
	cp := *a
	s.assignments[a.ID] = &cp
	s.notifyLocked()
	return nil
}

func (s *MemStore) AddSupporter(ctx context.Context, reportID uuid.UUID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportID]
	if !ok {
		return 0, ErrNotFound
	}
	set := s.supporters[reportID]
	if set == nil {
		set = make(map[string]struct{})
		s.supporters[reportID] = set
	}
	if _, dup := set[userID]; dup {
		return 0, ErrDuplicateSupport
	}
	set[userID] = struct{}{}
	r.SupportersCount++
	r.Version++
	r.UpdatedAt = time.Now()
	s.notifyLocked()
	return r.SupportersCount, nil
}

func (s *MemStore) CreateFeedbackWithReport(ctx context.Context, f *models.Feedback, r *models.Report, reportVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.feedback[f.ReportID]) > 0 {
		return ErrDuplicateFeedback
	}
	if err := s.updateReportLocked(r, reportVersion); err != nil {
		return err
	}
	f.CreatedAt = time.Now()
	s.feedback[f.ReportID] = append(s.feedback[f.ReportID], *f)
	s.notifyLocked()
	return nil
}

func (s *MemStore) ListFeedback(ctx context.Context, reportID uuid.UUID) ([]models.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Feedback(nil), s.feedback[reportID]...), nil
}

// memSub delivers latest-wins snapshots over a one-slot channel. Both delivery
// and teardown run under the store mutex, so a snapshot can never be sent
// after Cancel returns.
type memSub struct {
	id    int
	query ReportQuery
	ch    chan []models.Report
	store *MemStore
	once  sync.Once
}

func (m *memSub) Snapshots() <-chan []models.Report { return m.ch }

func (m *memSub) Cancel() {
	m.once.Do(func() {
		m.store.mu.Lock()
		delete(m.store.subs, m.id)
		close(m.ch)
		m.store.mu.Unlock()
	})
}

func (s *MemStore) Watch(ctx context.Context, q ReportQuery) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	sub := &memSub{id: s.nextSubID, query: q, ch: make(chan []models.Report, 1), store: s}
	s.nextSubID++
	s.subs[sub.id] = sub
	deliverLocked(sub, s.queryLocked(q))
	s.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Cancel()
		}()
	}
	return sub, nil
}

func (s *MemStore) notifyLocked() {
	for _, sub := range s.subs {
		deliverLocked(sub, s.queryLocked(sub.query))
	}
}

// deliverLocked replaces any undelivered snapshot with the newer one.
func deliverLocked(sub *memSub, snapshot []models.Report) {
	select {
	case sub.ch <- snapshot:
	default:
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snapshot
	}
}

// queryLocked evaluates q against all reports, newest first.
func (s *MemStore) queryLocked(q ReportQuery) []models.Report {
	var out []models.Report
	for _, r := range s.reports {
		if matchQuery(r, q) {
			out = append(out, *cloneReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matchQuery(r *models.Report, q ReportQuery) bool {
	if q.SubmittedBy != "" && r.SubmittedBy != q.SubmittedBy {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.DepartmentCode != "" {
		routed := r.DepartmentCode != nil && *r.DepartmentCode == q.DepartmentCode
		if q.UnroutedOrPending {
			if !routed && r.DepartmentCode != nil {
				return false
			}
		} else if !routed {
			return false
		}
	}
	if q.CreatedAfter != nil && r.CreatedAt.Before(*q.CreatedAfter) {
		return false
	}
	if q.CreatedBefore != nil && r.CreatedAt.After(*q.CreatedBefore) {
		return false
	}
	return true
}

func cloneReport(r *models.Report) *models.Report {
	cp := *r
	cp.PhotoURLs = append(pq.StringArray(nil), r.PhotoURLs...)
	cp.ResolutionPhotoURLs = append(pq.StringArray(nil), r.ResolutionPhotoURLs...)
	if r.Rating != nil {
		v := *r.Rating
		cp.Rating = &v
	}
	if r.RatedAt != nil {
		t := *r.RatedAt
		cp.RatedAt = &t
	}
	if r.DepartmentCode != nil {
		v := *r.DepartmentCode
		cp.DepartmentCode = &v
	}
	if r.AssignedWorkerID != nil {
		v := *r.AssignedWorkerID
		cp.AssignedWorkerID = &v
	}
	if r.AssignmentID != nil {
		v := *r.AssignmentID
		cp.AssignmentID = &v
	}
	return &cp
}
