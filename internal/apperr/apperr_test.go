package apperr

import (
	"errors"
	"testing"
)

func TestErrorMessageWithoutCause(t *testing.T) {
	e := New(Configuration, "bad config")
	if e.Error() != "bad config" {
		t.Fatalf("got %q", e.Error())
	}
}

func TestErrorMessageWithCause(t *testing.T) {
	cause := errors.New("underlying")
	e := Wrap(TransientHALFault, "dispatch failed", cause)
	if e.Error() != "dispatch failed: underlying" {
		t.Fatalf("got %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Fatalf("expected errors.Is to see through Unwrap")
	}
}

func TestFatalKinds(t *testing.T) {
	if !New(Configuration, "x").Fatal() {
		t.Fatalf("Configuration should be fatal")
	}
	if !New(Invariant, "x").Fatal() {
		t.Fatalf("Invariant should be fatal")
	}
	if New(TransientHALFault, "x").Fatal() {
		t.Fatalf("TransientHALFault should not be fatal")
	}
}

func TestWithZoneAttachesAndReturnsSelf(t *testing.T) {
	e := New(MalformedHALBatch, "x").WithZone(3)
	if e.Zone != 3 {
		t.Fatalf("expected zone 3, got %d", e.Zone)
	}
}
