package registry

import (
	"testing"
	"time"
)

func TestSerialGeneration(t *testing.T) {
	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	prefix := serialPrefix("PRJ-4K", now)
	if prefix != "PRJ-4K-2026-" {
		t.Fatalf("prefix = %q", prefix)
	}

	n, err := nextSerialNumber(prefix, "")
	if err != nil || n != 1 {
		t.Fatalf("empty last serial: n=%d err=%v", n, err)
	}
	if got := formatSerial(prefix, n); got != "PRJ-4K-2026-001" {
		t.Fatalf("first serial = %q", got)
	}

	n, err = nextSerialNumber(prefix, "PRJ-4K-2026-041")
	if err != nil || n != 42 {
		t.Fatalf("increment: n=%d err=%v", n, err)
	}
}

func TestNextSerialNumberRejectsForeignPrefix(t *testing.T) {
	if _, err := nextSerialNumber("PRJ-4K-2026-", "MIC-SM58-2026-004"); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
	if _, err := nextSerialNumber("PRJ-4K-2026-", "PRJ-4K-2026-abc"); err == nil {
		t.Fatal("expected non-numeric counter error")
	}
}
