package lifecycle

import "p9e.in/villagepulse/models"

// Actor is the authenticated principal performing an operation. The role claim
// comes from the identity layer and is trusted as-is.
type Actor struct {
	ID             string
	Role           string
	DepartmentCode string
}

// Action names every mutating operation the policy knows about.
type Action string

const (
	ActionCreateReport     Action = "report:create"
	ActionSupportReport    Action = "report:support"
	ActionAssignReport     Action = "report:assign"
	ActionUpdateReport     Action = "report:update"
	ActionResolveReport    Action = "report:resolve"
	ActionRateReport       Action = "report:rate"
	ActionUpdateAssignment Action = "assignment:update"
	ActionViewDashboard    Action = "dashboard:view"
)

// Authorize is the single role/ownership policy consulted by every mutating
// engine operation, instead of ad-hoc role checks at each call site. Entity is
// the Report or Assignment being acted on; it may be nil for create-type
// actions that have no target yet.
func Authorize(actor Actor, action Action, entity interface{}) bool {
	switch action {
	case ActionCreateReport, ActionSupportReport:
		return actor.ID != ""

	case ActionAssignReport, ActionUpdateReport, ActionResolveReport:
		return actor.Role == models.RoleDepartment || actor.Role == models.RoleLeader

	case ActionRateReport:
		r, ok := entity.(*models.Report)
		return ok && actor.ID != "" && r.SubmittedBy == actor.ID

	case ActionUpdateAssignment:
		a, ok := entity.(*models.Assignment)
		return ok && actor.Role == models.RoleWorker && a.WorkerID == actor.ID

	case ActionViewDashboard:
		return actor.Role == models.RoleLeader || actor.Role == models.RoleDepartment
	}
	return false
}
