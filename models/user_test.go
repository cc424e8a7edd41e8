package models

import "testing"

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleCitizen, RoleWorker, RoleDepartment, RoleLeader} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%q) = false, want true", r)
		}
	}
	for _, r := range []string{"", "admin", "Citizen", "superuser"} {
		if ValidRole(r) {
			t.Errorf("ValidRole(%q) = true, want false", r)
		}
	}
}

func TestIsStaff(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleCitizen, false},
		{RoleWorker, false},
		{RoleDepartment, true},
		{RoleLeader, true},
	}
	for _, tt := range tests {
		u := User{Role: tt.role}
		if got := u.IsStaff(); got != tt.want {
			t.Errorf("IsStaff() with role %q = %v, want %v", tt.role, got, tt.want)
		}
	}
}
