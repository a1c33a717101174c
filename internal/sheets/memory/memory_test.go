package memory

import (
	"context"
	"testing"

	"caixa/internal/core"
	"caixa/internal/sheets"
)

func TestStore_Append(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), sheets.AuditRecord{
		SessionID:   1,
		ServiceDate: core.NewDate(2025, 3, 2),
		Label:       "sunday evening",
		Status:      "validated",
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Append() ref = %q, want %q", ref, "mem:1")
	}

	records := s.Records()
	if len(records) != 1 {
		t.Fatalf("Records() len = %d, want 1", len(records))
	}
	if records[0].SessionID != 1 {
		t.Errorf("record session id = %d, want 1", records[0].SessionID)
	}

	// Records returns a copy, not the backing slice
	records[0].SessionID = 99
	if s.Records()[0].SessionID != 1 {
		t.Error("Records() must not expose the backing slice")
	}
}
