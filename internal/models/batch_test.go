package models

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		completed int
		failed    int
		want      BatchStatus
	}{
		{"all succeeded", 5, 5, 0, BatchStatusCompleted},
		{"single success", 1, 1, 0, BatchStatusCompleted},
		{"mixed outcome", 5, 3, 2, BatchStatusPartial},
		{"all failed", 4, 0, 4, BatchStatusPartial},
		{"nothing selected", 0, 0, 0, BatchStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := AutoPlanBatch{
				TotalPlans:     tt.total,
				CompletedPlans: tt.completed,
				FailedPlans:    tt.failed,
			}
			if got := b.DeriveStatus(); got != tt.want {
				t.Errorf("DeriveStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []BatchStatus{BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed} {
		b := AutoPlanBatch{Status: status}
		if !b.Terminal() {
			t.Errorf("Terminal() = false for %s", status)
		}
	}
	running := AutoPlanBatch{Status: BatchStatusRunning}
	if running.Terminal() {
		t.Error("Terminal() = true for running")
	}
}
