package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEntry_Validate(t *testing.T) {
	date := NewDate(2025, 3, 2)

	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{
			name:  "valid inflow",
			entry: Entry{Date: date, Description: "offering", Direction: In, Instrument: Cash, Amount: Money{Cents: 100}},
		},
		{
			name:  "valid outflow",
			entry: Entry{Date: date, Description: "cleaning", Direction: Out, Amount: Money{Cents: 100}},
		},
		{
			name:    "inflow needs an instrument",
			entry:   Entry{Date: date, Description: "offering", Direction: In, Amount: Money{Cents: 100}},
			wantErr: ErrInvalidInstrument,
		},
		{
			name:    "outflow carries no instrument",
			entry:   Entry{Date: date, Description: "cleaning", Direction: Out, Instrument: Pix, Amount: Money{Cents: 100}},
			wantErr: ErrInvalidInstrument,
		},
		{
			name:    "blank description",
			entry:   Entry{Date: date, Description: "   ", Direction: In, Instrument: Cash, Amount: Money{Cents: 100}},
			wantErr: ErrEmptyDescription,
		},
		{
			name:    "unknown direction",
			entry:   Entry{Date: date, Description: "offering", Direction: "sideways", Instrument: Cash, Amount: Money{Cents: 100}},
			wantErr: ErrInvalidDirection,
		},
		{
			name:    "negative amount",
			entry:   Entry{Date: date, Description: "offering", Direction: In, Instrument: Cash, Amount: Money{Cents: -1}},
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("overlong description", func(t *testing.T) {
		e := Entry{Date: date, Description: strings.Repeat("x", 201), Direction: In, Instrument: Cash, Amount: Money{Cents: 100}}
		if err := e.Validate(); err == nil {
			t.Error("Validate() = nil, want error for description over 200 characters")
		}
	})
}

func TestSession_Check(t *testing.T) {
	base := Session{
		ServiceDate:    NewDate(2025, 3, 2),
		Label:          "sunday evening",
		CongregationID: 7,
		Status:         StatusOpen,
		CreatedBy:      "u1",
	}

	t.Run("valid open session", func(t *testing.T) {
		if err := base.Check(); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("validator without timestamp", func(t *testing.T) {
		s := base
		s.ValidatedBy = "u2"
		if err := s.Check(); err == nil {
			t.Error("Check() = nil, want error when validator is set without timestamp")
		}
	})

	t.Run("timestamp without validator", func(t *testing.T) {
		s := base
		s.ValidatedAt = time.Now()
		if err := s.Check(); err == nil {
			t.Error("Check() = nil, want error when timestamp is set without validator")
		}
	})

	t.Run("creator validating own session", func(t *testing.T) {
		s := base
		s.Status = StatusValidated
		s.ValidatedBy = "u1"
		s.ValidatedAt = time.Now()
		if err := s.Check(); err == nil {
			t.Error("Check() = nil, want error when creator and validator coincide")
		}
	})

	t.Run("blank label", func(t *testing.T) {
		s := base
		s.Label = " "
		if err := s.Check(); err == nil {
			t.Error("Check() = nil, want error for blank label")
		}
	})
}
