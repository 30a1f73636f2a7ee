package validate

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	if err := Email("a@x.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "bad email", "nodomain@", strings.Repeat("a", 320) + "@x.com"} {
		if err := Email(bad); err == nil {
			t.Fatalf("expected error for email %q", bad)
		}
	}
}

func TestDomain(t *testing.T) {
	for _, good := range []string{"docs.google.com", "sheets.google.com", "a-b.example.io"} {
		if err := Domain(good); err != nil {
			t.Fatalf("unexpected error for %q: %v", good, err)
		}
	}
	for _, bad := range []string{"", "https://docs.google.com", "docs.google.com/edit", "localhost", "UPPER.com "} {
		if err := Domain(bad); err == nil {
			t.Fatalf("expected error for domain %q", bad)
		}
	}
}

func TestHeartbeat(t *testing.T) {
	if err := Heartbeat("doc-1", "docs.google.com", "a@x.com", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Heartbeat("", "docs.google.com", "a@x.com", nil); err == nil {
		t.Fatalf("expected error for missing doc_identifier")
	}
	long := strings.Repeat("x", 513)
	if err := Heartbeat(long, "docs.google.com", "a@x.com", nil); err == nil {
		t.Fatalf("expected error for oversized doc_identifier")
	}
	title := strings.Repeat("t", 1025)
	if err := Heartbeat("doc-1", "docs.google.com", "a@x.com", &title); err == nil {
		t.Fatalf("expected error for oversized title")
	}
}

func TestUpsertSelector(t *testing.T) {
	pat := `/document/d/([a-zA-Z0-9_-]+)`
	if err := UpsertSelector("docs.google.com", ".docs-title-input", &pat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	broken := `([unclosed`
	if err := UpsertSelector("docs.google.com", ".docs-title-input", &broken); err == nil {
		t.Fatalf("expected error for non-compiling pattern")
	}
	if err := UpsertSelector("docs.google.com", "", nil); err == nil {
		t.Fatalf("expected error for missing titleSelector")
	}
}

func TestCreateProject(t *testing.T) {
	if err := CreateProject("Thesis", "#4f46e5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CreateProject("Thesis", ""); err != nil {
		t.Fatalf("color should be optional: %v", err)
	}
	if err := CreateProject("", "#fff"); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := CreateProject("Thesis", "blue"); err == nil {
		t.Fatalf("expected error for non-hex color")
	}
}

func TestDateRange(t *testing.T) {
	if err := DateRange("2026-08-01", "2026-08-31"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DateRange("", ""); err != nil {
		t.Fatalf("empty bounds are allowed: %v", err)
	}
	if err := DateRange("2026-08-31", "2026-08-01"); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if err := DateRange("08/01/2026", ""); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}
