package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type coords struct {
	Lat *float64 `json:"lat" validate:"omitempty,min=-90,max=90"`
}

type pickup struct {
	Coordinates coords `json:"coordinates"`
}

type sample struct {
	Title  string    `json:"title" validate:"required,max=5"`
	Email  string    `json:"email" validate:"omitempty,email"`
	Kind   string    `json:"kind" validate:"omitempty,oneof=a b"`
	From   time.Time `json:"from" validate:"required"`
	Until  time.Time `json:"until" validate:"required,gtefield=From"`
	Pickup pickup    `json:"pickupAddress"`
	Secret string    `json:"-"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	now := time.Now()
	bad := 91.0

	tests := []struct {
		name      string
		input     sample
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid",
			input: sample{Title: "ok", From: now, Until: now},
		},
		{
			name:      "missing title",
			input:     sample{From: now, Until: now},
			wantField: "title",
			wantMsg:   "title is required",
		},
		{
			name:      "title too long",
			input:     sample{Title: "toolong", From: now, Until: now},
			wantField: "title",
			wantMsg:   "title must be at most 5 characters",
		},
		{
			name:      "bad email",
			input:     sample{Title: "ok", Email: "nope", From: now, Until: now},
			wantField: "email",
			wantMsg:   "email must be a valid email",
		},
		{
			name:      "enum",
			input:     sample{Title: "ok", Kind: "c", From: now, Until: now},
			wantField: "kind",
			wantMsg:   "kind must be one of: a, b",
		},
		{
			name:      "window inverted",
			input:     sample{Title: "ok", From: now, Until: now.Add(-time.Hour)},
			wantField: "until",
			wantMsg:   "until must not be before from",
		},
		{
			name:      "nested coordinate",
			input:     sample{Title: "ok", From: now, Until: now, Pickup: pickup{Coordinates: coords{Lat: &bad}}},
			wantField: "pickupAddress.coordinates.lat",
			wantMsg:   "pickupAddress.coordinates.lat must be at most 90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() error = %v", err)
				}
				return
			}

			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateStruct() error = %v, want *RequestValidationError", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("got %d field errors: %v", len(verr.Fields), verr)
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Fields[0].Field, tt.wantField)
			}
			if verr.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_MultipleErrorsJoined(t *testing.T) {
	err := ValidateStruct(&sample{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"title is required", "from is required", "until is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Error() = %q, missing %q", err.Error(), want)
		}
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf("limit", "limit must be a number, got %q", "x")
	if err.Fields[0].Field != "limit" || err.Error() != `limit must be a number, got "x"` {
		t.Errorf("Errorf() = %+v", err)
	}
}
