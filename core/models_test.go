package core

import (
	"testing"
	"time"
)

func TestStoredName(t *testing.T) {
	name := StoredName("P001", "2024-01-15", 3, "scan.png")
	if name != "P001_2024-01-15_003.png" {
		t.Fatalf("Unexpected stored name: %s", name)
	}

	// No extension on the original name means none on the stored name.
	name = StoredName("P001", "2024-01-15", 12, "notes")
	if name != "P001_2024-01-15_012" {
		t.Fatalf("Unexpected stored name: %s", name)
	}
}

func TestIDFromContentDeterministic(t *testing.T) {
	a := IDFromContent("same payload")
	b := IDFromContent("same payload")
	c := IDFromContent("other payload")

	if a != b {
		t.Fatalf("Expected identical IDs for identical content, got %s and %s", a, b)
	}
	if a == c {
		t.Fatal("Expected different IDs for different content")
	}
	if len(a) != 16 {
		t.Fatalf("Expected 16 hex characters, got %d", len(a))
	}
}

func TestNewRecordIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewRecordID()
		if id == "" {
			t.Fatal("Expected non-empty ID")
		}
		if seen[id] {
			t.Fatalf("Duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestSubjectRecordsOrdering(t *testing.T) {
	now := time.Now().UTC()
	subject := NewSubject("P001", now)
	subject.DateGroups["2024-02-01"] = &DateGroup{
		Date:    "2024-02-01",
		Records: []*Record{{ID: "c", Date: "2024-02-01"}},
	}
	subject.DateGroups["2024-01-15"] = &DateGroup{
		Date:    "2024-01-15",
		Records: []*Record{{ID: "a", Date: "2024-01-15"}, {ID: "b", Date: "2024-01-15"}},
	}

	records := subject.Records()
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	// Groups ordered by date, insertion order within a group.
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if records[i].ID != id {
			t.Fatalf("Expected record %s at position %d, got %s", id, i, records[i].ID)
		}
	}
}
