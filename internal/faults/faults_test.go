package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestExhaustedError_Matching(t *testing.T) {
	cause := errors.New("connection reset")
	var err error = &ExhaustedError{Attempts: 3, Delays: []time.Duration{1, 2, 4}, Err: cause}
	wrapped := fmt.Errorf("rag: %w", err)

	if !errors.Is(wrapped, ErrGenerationExhausted) {
		t.Error("expected errors.Is to match ErrGenerationExhausted")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected errors.Is to reach the underlying cause")
	}

	var ex *ExhaustedError
	if !errors.As(wrapped, &ex) {
		t.Fatal("expected errors.As to find *ExhaustedError")
	}
	if ex.Attempts != 3 {
		t.Errorf("attempts: got %d, want 3", ex.Attempts)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("missing english template for %q", "harm")
	if !errors.Is(err, ErrConfiguration) {
		t.Error("expected ErrConfiguration")
	}
	if !strings.Contains(err.Error(), `"harm"`) {
		t.Errorf("message: got %q", err.Error())
	}
}
