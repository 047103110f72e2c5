package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	tests := map[Kind]int{
		KindInvalid:         http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusBadRequest,
		Kind(0):             http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := kind.Status(); got != want {
			t.Errorf("Kind(%d).Status() = %d, want %d", kind, got, want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("reserve: %w", Conflict("food listing is %s", "reserved"))
	if KindOf(err) != KindConflict {
		t.Errorf("KindOf() = %v, want conflict", KindOf(err))
	}
	if KindOf(errors.New("boom")) != 0 {
		t.Error("unclassified error should have zero kind")
	}
}

func TestNotFoundMessage(t *testing.T) {
	if got := NotFound("donation").Error(); got != "donation not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(cause, KindConflict, "email already registered")
	if !errors.Is(err, cause) {
		t.Error("Wrap should keep the cause reachable")
	}
	if err.Message != "email already registered" {
		t.Errorf("Message = %q", err.Message)
	}
}
