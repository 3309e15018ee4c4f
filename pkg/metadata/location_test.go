package metadata

import (
	"testing"
)

// TestIsValid tests the IsValid method of the Location type.
func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		location Location
		expected bool
	}{
		{"pune location", LocationPune, true},
		{"bangalore location", LocationBangalore, true},
		{"ncr location", LocationNCR, true},
		{"other location", LocationOther, false},
		{"unknown location", Location("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.location.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid pune", "pune", false},
		{"valid uppercase NCR", "NCR", false},
		{"invalid unknown", "unknown", true},
		{"valid other with spaces", "  other ", false},
		{"valid bangalore", "Bangalore", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLocation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && !got.IsValid() && !got.isPredefined() {
				t.Errorf("NewLocation() = %v is neither valid nor predefined", got)
			}
		})
	}
}

func TestNewStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"pending", "pending", false},
		{"issued", "issued", false},
		{"overdue", "overdue", false},
		{"unknown", "approved", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCondition(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     bool
		problematic bool
	}{
		{"good", "good", false, false},
		{"damaged", "damaged", false, true},
		{"missing", "missing", false, true},
		{"obsolete", "obsolete", false, true},
		{"unknown", "broken", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCondition(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCondition() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && got.Problematic() != tt.problematic {
				t.Errorf("Problematic() = %v, want %v", got.Problematic(), tt.problematic)
			}
		})
	}
}
