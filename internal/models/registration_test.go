package models

import "testing"

func TestRegistrationStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from RegistrationStatus
		to   RegistrationStatus
		want bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("%q.CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRegistrationStatus_IsValid(t *testing.T) {
	for _, s := range []RegistrationStatus{StatusPending, StatusApproved, StatusRejected} {
		if !s.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", s)
		}
	}
	if RegistrationStatus("waitlisted").IsValid() {
		t.Error(`"waitlisted".IsValid() = true, want false`)
	}
}

func TestRegistration_Public(t *testing.T) {
	reg := &Registration{
		TeamID:      "IN25-004",
		TeamName:    "Null Pointers",
		LeaderEmail: "lead@example.edu",
		Phone:       "+91 90000 00000",
		College:     "Example Institute",
		Status:      StatusApproved,
	}

	pub := reg.Public()
	if pub.TeamID != "IN25-004" || pub.Status != StatusApproved {
		t.Fatalf("Public() = %+v, want team id and status carried over", pub)
	}
}
