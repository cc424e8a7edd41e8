package lifecycle

import (
	"testing"

	"p9e.in/villagepulse/models"
)

func TestAuthorize(t *testing.T) {
	report := &models.Report{SubmittedBy: "user-1"}
	assignment := &models.Assignment{WorkerID: "worker-1"}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		entity interface{}
		want   bool
	}{
		{"citizen creates", Actor{ID: "user-1", Role: models.RoleCitizen}, ActionCreateReport, nil, true},
		{"anonymous cannot create", Actor{}, ActionCreateReport, nil, false},
		{"citizen supports", Actor{ID: "user-2", Role: models.RoleCitizen}, ActionSupportReport, nil, true},

		{"department assigns", Actor{ID: "staff-1", Role: models.RoleDepartment}, ActionAssignReport, nil, true},
		{"leader assigns", Actor{ID: "leader-1", Role: models.RoleLeader}, ActionAssignReport, nil, true},
		{"citizen cannot assign", Actor{ID: "user-1", Role: models.RoleCitizen}, ActionAssignReport, nil, false},
		{"worker cannot assign", Actor{ID: "worker-1", Role: models.RoleWorker}, ActionAssignReport, nil, false},

		{"department updates report", Actor{ID: "staff-1", Role: models.RoleDepartment}, ActionUpdateReport, report, true},
		{"worker cannot update report", Actor{ID: "worker-1", Role: models.RoleWorker}, ActionUpdateReport, report, false},

		{"submitter rates", Actor{ID: "user-1", Role: models.RoleCitizen}, ActionRateReport, report, true},
		{"non-submitter cannot rate", Actor{ID: "user-2", Role: models.RoleCitizen}, ActionRateReport, report, false},
		{"rate needs a report entity", Actor{ID: "user-1", Role: models.RoleCitizen}, ActionRateReport, nil, false},

		{"owning worker updates assignment", Actor{ID: "worker-1", Role: models.RoleWorker}, ActionUpdateAssignment, assignment, true},
		{"other worker cannot", Actor{ID: "worker-2", Role: models.RoleWorker}, ActionUpdateAssignment, assignment, false},
		{"department cannot drive assignment", Actor{ID: "staff-1", Role: models.RoleDepartment}, ActionUpdateAssignment, assignment, false},

		{"leader views dashboard", Actor{ID: "leader-1", Role: models.RoleLeader}, ActionViewDashboard, nil, true},
		{"department views dashboard", Actor{ID: "staff-1", Role: models.RoleDepartment}, ActionViewDashboard, nil, true},
		{"citizen cannot view dashboard", Actor{ID: "user-1", Role: models.RoleCitizen}, ActionViewDashboard, nil, false},

		{"unknown action denied", Actor{ID: "leader-1", Role: models.RoleLeader}, Action("report:delete"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.actor, tt.action, tt.entity); got != tt.want {
				t.Errorf("Authorize(%v, %s) = %v, want %v", tt.actor, tt.action, got, tt.want)
			}
		})
	}
}
