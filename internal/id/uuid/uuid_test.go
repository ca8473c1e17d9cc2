// Package uuid includes tests for the UUID generator wrapper.
package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
)

// TestGeneratorNewRunIDUnique ensures generated IDs are unique and round-trip as UUIDs.
func TestGeneratorNewRunIDUnique(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	id2, err := gen.NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	if _, err := goUUID.Parse(id1.String()); err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
}

// TestGeneratorNewRunIDIsVersion7 checks the raw form carries the v7 marker.
func TestGeneratorNewRunIDIsVersion7(t *testing.T) {
	t.Parallel()

	id, err := New().NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	if id.Version() != 7 {
		t.Fatalf("expected version 7, got %d", id.Version())
	}
}
