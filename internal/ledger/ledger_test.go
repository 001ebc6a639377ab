package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/virtlight/virtlightd/internal/db"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestLedger_AppendAndGet(t *testing.T) {
	l := newTestLedger(t)

	err := l.Append(EventStateChanged, "Living Room", map[string]any{"is_on": true})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(EventCommandSent, "Living Room", map[string]any{"verb": "turn_on"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := l.GetByType(EventStateChanged, 10)
	if err != nil {
		t.Fatalf("GetByType failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Entries = %d, want 1", len(entries))
	}
	if entries[0].Group != "Living Room" {
		t.Errorf("Group = %q", entries[0].Group)
	}
	if entries[0].Payload["is_on"] != true {
		t.Errorf("Payload = %v", entries[0].Payload)
	}

	byGroup, err := l.GetByGroup("Living Room", 10)
	if err != nil {
		t.Fatalf("GetByGroup failed: %v", err)
	}
	if len(byGroup) != 2 {
		t.Errorf("Entries by group = %d, want 2", len(byGroup))
	}
}

func TestLedger_NilPayload(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Append(EventCommandFailed, "g", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := l.GetByType(EventCommandFailed, 1)
	if err != nil {
		t.Fatalf("GetByType failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Payload != nil {
		t.Errorf("Entries = %v", entries)
	}
}

func TestLedger_Retention(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Append(EventStateChanged, "g", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Nothing is older than a day yet.
	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Deleted = %d, want 0", deleted)
	}

	// A negative retention moves the cutoff into the future.
	deleted, err = l.DeleteOlderThan(-time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Deleted = %d, want 1", deleted)
	}
}
