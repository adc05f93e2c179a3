package jsoncfg

import (
	"testing"
	"time"
)

func TestNewReflectionInput(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// Friday 2025-03-14 14:00 local.
	at := time.Date(2025, 3, 14, 14, 0, 0, 0, ny)
	in := NewReflectionInput(at, []string{"github"}, "en")

	if in.ISOYear != 2025 || in.ISOWeek != 11 {
		t.Fatalf("iso week = %d/%d, want 2025/11", in.ISOYear, in.ISOWeek)
	}
	if in.WeekStart != "2025-03-10" {
		t.Fatalf("WeekStart = %q, want 2025-03-10", in.WeekStart)
	}
	if in.WeekEnd != "2025-03-14" {
		t.Fatalf("WeekEnd = %q, want 2025-03-14", in.WeekEnd)
	}
	if len(in.IncludeIntegrations) != 1 || in.IncludeIntegrations[0] != "github" {
		t.Fatalf("IncludeIntegrations = %#v", in.IncludeIntegrations)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestReflectionInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      ReflectionInput
		wantErr bool
	}{
		{
			name: "valid",
			in:   ReflectionInput{ISOYear: 2025, ISOWeek: 11, WeekStart: "2025-03-10", WeekEnd: "2025-03-14"},
		},
		{
			name:    "week out of range",
			in:      ReflectionInput{ISOYear: 2025, ISOWeek: 54, WeekStart: "2025-03-10", WeekEnd: "2025-03-14"},
			wantErr: true,
		},
		{
			name:    "missing year",
			in:      ReflectionInput{ISOWeek: 11, WeekStart: "2025-03-10", WeekEnd: "2025-03-14"},
			wantErr: true,
		},
		{
			name:    "empty bounds",
			in:      ReflectionInput{ISOYear: 2025, ISOWeek: 11},
			wantErr: true,
		},
		{
			name:    "malformed bound",
			in:      ReflectionInput{ISOYear: 2025, ISOWeek: 11, WeekStart: "March 10", WeekEnd: "2025-03-14"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}
