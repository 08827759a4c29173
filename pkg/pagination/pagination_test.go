package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ID:        uuid.New(),
	}
	parsed, err := ParseCursor(EncodeCursor(original))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected cursor")
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) || parsed.ID != original.ID {
		t.Fatalf("cursor mismatch: %+v != %+v", parsed, original)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	parsed, err := ParseCursor("  ")
	if err != nil || parsed != nil {
		t.Fatalf("expected nil cursor, got %v / %v", parsed, err)
	}
}

func TestParseCursorGarbage(t *testing.T) {
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected error for garbage cursor")
	}
}
