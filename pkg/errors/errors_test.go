package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCode(t *testing.T) {
	meta := MetadataFor(CodeInsufficientCapacity)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient capacity, got %d", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatal("capacity errors must expose requested/available details")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row not found")
	err := Wrap(CodeNotFound, cause, "unknown product")
	if err.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
	if err.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeStateConflict, "available cannot move to maintenance directly")
	wrapped := fmt.Errorf("changing status: %w", inner)
	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientCapacity, "not enough stock").
		WithDetails(map[string]any{"requested": 5, "available": 2})
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatal("expected map details")
	}
	if details["requested"] != 5 || details["available"] != 2 {
		t.Fatalf("unexpected details %v", details)
	}
}
