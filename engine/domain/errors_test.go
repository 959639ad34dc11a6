package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := Ef(KindTransient, "embed", "connection reset")
	if KindOf(err) != KindTransient {
		t.Errorf("kind = %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should be unknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil should be unknown")
	}
}

func TestKindOf_SurvivesWrapping(t *testing.T) {
	inner := Ef(KindSchema, "semantic: create collection", "dimension mismatch")
	wrapped := fmt.Errorf("ingest: lease 7: %w", inner)
	if KindOf(wrapped) != KindSchema {
		t.Errorf("kind lost through wrapping: %v", KindOf(wrapped))
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(E(KindTransient, "search", errors.New("unavailable"))) {
		t.Error("transient error not detected")
	}
	if IsTransient(E(KindConfig, "embed", errors.New("bad key"))) {
		t.Error("config error marked transient")
	}
	if IsTransient(nil) {
		t.Error("nil marked transient")
	}
}

func TestErrorMessage(t *testing.T) {
	err := E(KindConfig, "openai: embed", errors.New("invalid api key"))
	msg := err.Error()
	for _, want := range []string{"openai: embed", "config", "invalid api key"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUnknown:       "unknown",
		KindTransient:     "transient",
		KindConfig:        "config",
		KindSchema:        "schema",
		KindInputTooLarge: "input_too_large",
		KindNotFound:      "not_found",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("lease_id", "0", ErrInvalidLeaseID)
	if !errors.Is(err, ErrInvalidLeaseID) {
		t.Error("sentinel not reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "lease_id") {
		t.Errorf("message missing field: %q", err.Error())
	}
}

func TestValidateLeaseDocument(t *testing.T) {
	if err := ValidateLeaseDocument(LeaseDocument{LeaseID: 1}); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}
	if err := ValidateLeaseDocument(LeaseDocument{LeaseID: 0}); !errors.Is(err, ErrInvalidLeaseID) {
		t.Errorf("expected ErrInvalidLeaseID, got %v", err)
	}
	if err := ValidateLeaseDocument(LeaseDocument{LeaseID: -5}); !errors.Is(err, ErrInvalidLeaseID) {
		t.Errorf("expected ErrInvalidLeaseID, got %v", err)
	}
}

func TestValidateQuery(t *testing.T) {
	if err := ValidateQuery("what is the deposit?", 10); err != nil {
		t.Errorf("valid query rejected: %v", err)
	}
	if err := ValidateQuery("", 10); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if err := ValidateQuery(" \t\n ", 10); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if err := ValidateQuery("deposit", 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}
