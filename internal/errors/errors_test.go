package errors

import (
	"fmt"
	"testing"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		malformed bool
		transient bool
		persist   bool
	}{
		{"malformed", NewMalformed("bad json"), true, true, false},
		{"too large", Wrap(ErrReportTooLarge, "read"), true, true, false},
		{"empty", ErrEmptyReport, true, true, false},
		{"blocked", ErrPeerBlocked, false, true, false},
		{"persist", Wrapf(ErrPersist, "write %s", "x.json"), false, false, true},
		{"corrupt", ErrCorruptMirror, false, false, true},
		{"not found", NewNotFound("peer", "10.0.0.1"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMalformed(tt.err); got != tt.malformed {
				t.Errorf("IsMalformed(%v) = %v, want %v", tt.err, got, tt.malformed)
			}
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.transient)
			}
			if got := IsPersist(tt.err); got != tt.persist {
				t.Errorf("IsPersist(%v) = %v, want %v", tt.err, got, tt.persist)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	if v.Err() != nil {
		t.Fatal("empty collector should return nil")
	}

	v.AddField("discovery.port", "must differ from service port")
	v.AddMissing("store.mirror_path")
	v.Add(nil)

	if len(v.Errors) != 2 {
		t.Fatalf("got %d errors, want 2", len(v.Errors))
	}

	err := v.Err()
	if !Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig in %v", err)
	}
	if !Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField in %v", err)
	}
	if !IsValidation(fmt.Errorf("load: %w", err)) {
		t.Error("wrapped collector should still be a validation error")
	}
}
