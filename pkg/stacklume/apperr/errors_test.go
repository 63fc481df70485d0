package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get snapshot: %w", ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("mode: %w", ErrInvalidInput), http.StatusBadRequest},
		{"validation", NewValidationError("links.0.url: cannot be blank"), http.StatusBadRequest},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetails(t *testing.T) {
	err := fmt.Errorf("decode: %w", NewValidationError("a", "b"))
	if got := Details(err); len(got) != 2 || got[0] != "a" {
		t.Errorf("Details() = %v", got)
	}
	if got := Details(ErrNotFound); got != nil {
		t.Errorf("Details() = %v, want nil", got)
	}
}
