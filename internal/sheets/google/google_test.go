package google

import (
	"context"
	"strings"
	"testing"
)

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		errorString string
	}{
		{
			name:        "missing spreadsheet id",
			cfg:         Config{SheetName: "Caixa", ServiceAccountJSON: "{}"},
			errorString: "missing spreadsheet id",
		},
		{
			name:        "missing sheet name",
			cfg:         Config{SpreadsheetID: "1abc", ServiceAccountJSON: "{}"},
			errorString: "missing sheet name",
		},
		{
			name:        "missing credentials",
			cfg:         Config{SpreadsheetID: "1abc", SheetName: "Caixa"},
			errorString: "missing service account credentials",
		},
		{
			name: "unreadable credentials file",
			cfg: Config{
				SpreadsheetID:      "1abc",
				SheetName:          "Caixa",
				ServiceAccountFile: "/nonexistent/service-account.json",
			},
			errorString: "read service account file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if err == nil {
				t.Fatal("New() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("New() error = %v, want it to contain %q", err, tt.errorString)
			}
		})
	}
}
