package lifecycle

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/villagepulse/models"
)

var (
	citizen    = Actor{ID: "user-1", Role: models.RoleCitizen}
	otherUser  = Actor{ID: "user-2", Role: models.RoleCitizen}
	deptStaff  = Actor{ID: "staff-1", Role: models.RoleDepartment, DepartmentCode: "water"}
	leader     = Actor{ID: "leader-1", Role: models.RoleLeader}
	fieldCrew  = Actor{ID: "worker-1", Role: models.RoleWorker}
	wrongCrew  = Actor{ID: "worker-2", Role: models.RoleWorker}
	testCtx    = context.Background()
	testInput  = CreateReportInput{
		SubmittedBy: "user-1",
		Category:    models.CategoryWater,
		Description: "Hand pump near the school is leaking",
		Latitude:    17.385,
		Longitude:   78.4867,
		Village:     "Rampur",
	}
)

func newTestEngine() (*Engine, *MemStore) {
	ms := NewMemStore()
	return NewEngine(ms), ms
}

func mustCreate(t *testing.T, e *Engine) *models.Report {
	t.Helper()
	r, err := e.CreateReport(testCtx, testInput)
	require.NoError(t, err)
	return r
}

func TestCreateReport(t *testing.T) {
	e, _ := newTestEngine()

	r := mustCreate(t, e)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, models.PriorityMedium, r.Priority, "priority defaults to Medium")
	assert.Equal(t, int64(1), r.Version)
	assert.Equal(t, 0, r.SupportersCount)
	assert.False(t, r.ReportedAt.Time().IsZero())

	got, err := e.GetReport(testCtx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestCreateReportValidation(t *testing.T) {
	e, _ := newTestEngine()

	cases := []struct {
		name   string
		mutate func(in *CreateReportInput)
	}{
		{"missing submitter", func(in *CreateReportInput) { in.SubmittedBy = "" }},
		{"missing category", func(in *CreateReportInput) { in.Category = "" }},
		{"unknown category", func(in *CreateReportInput) { in.Category = "Potholes" }},
		{"blank description", func(in *CreateReportInput) { in.Description = "   " }},
		{"NaN latitude", func(in *CreateReportInput) { in.Latitude = math.NaN() }},
		{"infinite longitude", func(in *CreateReportInput) { in.Longitude = math.Inf(1) }},
		{"latitude out of range", func(in *CreateReportInput) { in.Latitude = 91 }},
		{"longitude out of range", func(in *CreateReportInput) { in.Longitude = -200 }},
		{"unknown priority", func(in *CreateReportInput) { in.Priority = "Urgent" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := testInput
			tc.mutate(&in)
			_, err := e.CreateReport(testCtx, in)
			assert.True(t, IsKind(err, KindValidation), "want validation error, got %v", err)
		})
	}
}

func TestAssign(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	a, updated, err := e.Assign(testCtx, r.ID, fieldCrew.ID, deptStaff)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentPending, a.Status)
	assert.Equal(t, fieldCrew.ID, a.WorkerID)
	assert.Equal(t, deptStaff.ID, a.AssignedBy)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignmentID)
	assert.Equal(t, a.ID, *updated.AssignmentID)

	stored, err := e.GetReport(testCtx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestAssignGuards(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	_, _, err := e.Assign(testCtx, r.ID, fieldCrew.ID, citizen)
	assert.True(t, IsKind(err, KindForbidden))

	_, _, err = e.Assign(testCtx, r.ID, "", deptStaff)
	assert.True(t, IsKind(err, KindValidation))

	_, _, err = e.Assign(testCtx, uuid.New(), fieldCrew.ID, deptStaff)
	assert.True(t, IsKind(err, KindNotFound))

	_, _, err = e.Assign(testCtx, r.ID, fieldCrew.ID, deptStaff)
	require.NoError(t, err)

	_, _, err = e.Assign(testCtx, r.ID, wrongCrew.ID, deptStaff)
	assert.True(t, IsKind(err, KindInvalidTransition), "second assign must fail, got %v", err)
}

func TestAssignConcurrent(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	workers := []string{"worker-1", "worker-2", "worker-3", "worker-4"}
	errs := make([]error, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w string) {
			defer wg.Done()
			_, _, errs[i] = e.Assign(testCtx, r.ID, w, deptStaff)
		}(i, w)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		ok := IsKind(err, KindInvalidTransition) || IsKind(err, KindConflict)
		assert.True(t, ok, "loser must see invalid transition or conflict, got %v", err)
	}
	assert.Equal(t, 1, won, "exactly one assign may win")

	stored, err := e.GetReport(testCtx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	require.NotNil(t, stored.AssignedWorkerID)
}

func TestAssignmentProgression(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)
	a, _, err := e.Assign(testCtx, r.ID, fieldCrew.ID, deptStaff)
	require.NoError(t, err)

	// Pending -> Completed skips a step.
	_, _, err = e.UpdateAssignmentStatus(testCtx, a.ID, models.AssignmentCompleted, "", fieldCrew)
	assert.True(t, IsKind(err, KindInvalidTransition))

	// Another worker cannot touch it.
	_, _, err = e.UpdateAssignmentStatus(testCtx, a.ID, models.AssignmentActive, "", wrongCrew)
	assert.True(t, IsKind(err, KindForbidden))

	active, mirrored, err := e.UpdateAssignmentStatus(testCtx, a.ID, models.AssignmentActive, "", fieldCrew)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentActive, active.Status)
	assert.Equal(t, models.StatusInProgress, mirrored)

	done, mirrored, err := e.UpdateAssignmentStatus(testCtx, a.ID, models.AssignmentCompleted, "replaced the gasket", fieldCrew)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, done.Status)
	assert.Equal(t, models.StatusResolved, mirrored)
	require.NotNil(t, done.CompletedAt)

	stored, err := e.GetReport(testCtx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Equal(t, "replaced the gasket", stored.ResolutionNote)

	// Completed is terminal.
	_, _, err = e.UpdateAssignmentStatus(testCtx, a.ID, models.AssignmentActive, "", fieldCrew)
	assert.True(t, IsKind(err, KindInvalidTransition))
}

func TestSupport(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	count, err := e.Support(testCtx, r.ID, otherUser.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = e.Support(testCtx, r.ID, otherUser.ID)
	assert.True(t, IsKind(err, KindAlreadySupported))

	count, err = e.Support(testCtx, r.ID, "user-3")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = e.Support(testCtx, uuid.New(), otherUser.ID)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestSupportConcurrentDuplicates(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Support(testCtx, r.ID, "same-user")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.True(t, IsKind(err, KindAlreadySupported), "got %v", err)
		}
	}
	assert.Equal(t, 1, won)

	stored, err := e.GetReport(testCtx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SupportersCount, "count must match distinct supporters")
}

func TestSubmitFeedback(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	// Not resolved yet.
	_, err := e.SubmitFeedback(testCtx, r.ID, 5, "quick work", citizen)
	assert.True(t, IsKind(err, KindInvalidTransition))

	resolved := models.StatusResolved
	_, err = e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &resolved}, deptStaff)
	require.NoError(t, err)

	// Only the submitter may rate.
	_, err = e.SubmitFeedback(testCtx, r.ID, 5, "", otherUser)
	assert.True(t, IsKind(err, KindForbidden))

	for _, bad := range []int{0, 6, -1} {
		_, err = e.SubmitFeedback(testCtx, r.ID, bad, "", citizen)
		assert.True(t, IsKind(err, KindValidation), "rating %d must fail", bad)
	}

	f, err := e.SubmitFeedback(testCtx, r.ID, 4, "took a week but solid fix", citizen)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Rating)
	assert.Equal(t, citizen.ID, f.UserID)

	stored, err := e.GetReport(testCtx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 4, *stored.Rating)
	require.NotNil(t, stored.RatedAt)

	_, err = e.SubmitFeedback(testCtx, r.ID, 5, "changed my mind", citizen)
	assert.True(t, IsKind(err, KindAlreadyRated))
}

func TestDepartmentUpdateReport(t *testing.T) {
	e, _ := newTestEngine()

	inProgress := models.StatusInProgress
	resolved := models.StatusResolved
	pending := models.StatusPending

	t.Run("forward steps", func(t *testing.T) {
		r := mustCreate(t, e)
		updated, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &inProgress}, deptStaff)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, updated.Status)

		updated, err = e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{
			Status:         &resolved,
			ResolutionNote: strPtr("crew fixed it on site"),
		}, deptStaff)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, updated.Status)
		assert.Equal(t, "crew fixed it on site", updated.ResolutionNote)
	})

	t.Run("direct resolve shortcut", func(t *testing.T) {
		r := mustCreate(t, e)
		updated, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &resolved}, leader)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, updated.Status)
	})

	t.Run("resolved is terminal", func(t *testing.T) {
		r := mustCreate(t, e)
		_, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &resolved}, deptStaff)
		require.NoError(t, err)
		for _, to := range []models.ReportStatus{pending, inProgress, resolved} {
			s := to
			_, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &s}, deptStaff)
			assert.True(t, IsKind(err, KindInvalidTransition), "Resolved -> %s must fail", to)
		}
	})

	t.Run("citizens forbidden", func(t *testing.T) {
		r := mustCreate(t, e)
		_, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &resolved}, citizen)
		assert.True(t, IsKind(err, KindForbidden))
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		r := mustCreate(t, e)
		bogus := models.ReportStatus("Closed")
		_, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &bogus}, deptStaff)
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("metadata-only patch keeps status", func(t *testing.T) {
		r := mustCreate(t, e)
		high := models.PriorityHigh
		updated, err := e.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{
			Priority: &high,
			TeamLead: strPtr("Sunita's crew, Tuesday"),
		}, deptStaff)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, updated.Status)
		assert.Equal(t, models.PriorityHigh, updated.Priority)
		assert.Equal(t, "Sunita's crew, Tuesday", updated.TeamLead)
	})
}

// alwaysConflict makes every conditional report write lose, exercising the
// bounded retry loop.
type alwaysConflict struct {
	Store
}

func (alwaysConflict) UpdateReport(ctx context.Context, r *models.Report, expectedVersion int64) error {
	return ErrVersionConflict
}

func TestRetriesExhaustedSurfaceConflict(t *testing.T) {
	ms := NewMemStore()
	e := NewEngine(ms)
	r := mustCreate(t, e)

	contended := NewEngine(alwaysConflict{Store: ms})
	resolved := models.StatusResolved
	_, err := contended.DepartmentUpdateReport(testCtx, r.ID, DepartmentPatch{Status: &resolved}, deptStaff)
	assert.True(t, IsKind(err, KindConflict), "got %v", err)
}

func TestCanceledContextMapsToTimeout(t *testing.T) {
	e, _ := newTestEngine()
	r := mustCreate(t, e)

	ctx, cancel := context.WithCancel(testCtx)
	cancel()
	_, err := e.GetReport(ctx, r.ID)
	assert.True(t, IsKind(err, KindTimeout), "got %v", err)
}

func strPtr(s string) *string { return &s }
