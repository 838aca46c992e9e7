package models

import (
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func approved(degree Degree) Registration {
	return Registration{Degree: degree, ApprovalStatus: ApprovalApproved}
}

func pending(expiresAt time.Time) Registration {
	return Registration{Degree: DegreeMSc, ApprovalStatus: ApprovalPending, TokenExpiresAt: &expiresAt}
}

func TestComputeSlotStatus(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		regs     []Registration
		want     SlotStatus
	}{
		{"empty", 3, nil, SlotFree},
		{"partial", 3, []Registration{approved(DegreeMSc)}, SlotSemi},
		{"at capacity", 2, []Registration{approved(DegreeMSc), approved(DegreeMSc)}, SlotFull},
		{"exclusive locks regardless of capacity", 5, []Registration{approved(DegreePhD)}, SlotFull},
		{"declined frees the seat", 1, []Registration{{Degree: DegreeMSc, ApprovalStatus: ApprovalDeclined}}, SlotFree},
		{"expired pending frees the seat", 1, []Registration{pending(now.Add(-time.Minute))}, SlotFree},
		{"live pending counts", 1, []Registration{pending(now.Add(time.Minute))}, SlotFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSlotStatus(tt.capacity, tt.regs, now); got != tt.want {
				t.Errorf("ComputeSlotStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRegistrationActive(t *testing.T) {
	expired := now.Add(-time.Hour)
	live := now.Add(time.Hour)
	tests := []struct {
		name string
		reg  Registration
		want bool
	}{
		{"approved", Registration{ApprovalStatus: ApprovalApproved}, true},
		{"pending before expiry", Registration{ApprovalStatus: ApprovalPending, TokenExpiresAt: &live}, true},
		{"pending past expiry", Registration{ApprovalStatus: ApprovalPending, TokenExpiresAt: &expired}, false},
		{"pending without expiry", Registration{ApprovalStatus: ApprovalPending}, true},
		{"declined", Registration{ApprovalStatus: ApprovalDeclined}, false},
		{"expired", Registration{ApprovalStatus: ApprovalExpired}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reg.Active(now); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDegree(t *testing.T) {
	if NormalizeDegree("") != DegreeMSc {
		t.Error("unset degree should fall back to the shared MSc track")
	}
	if NormalizeDegree(DegreePhD) != DegreePhD {
		t.Error("PhD should survive normalization")
	}
	if NormalizeDegree("BSc") != DegreeMSc {
		t.Error("unknown degree should fall back to MSc")
	}
}
