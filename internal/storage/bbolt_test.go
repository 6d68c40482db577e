package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	kerrors "github.com/illarion/sous/internal/errors"
)

func openTest(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "remote.state")

	db, err := Open(dbPath, time.Second)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize("git@example.com:keys.git"); err != nil {
		db.Close()
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db, dbPath
}

func TestOpenAndInitialize(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}

	url, err := db.RemoteURL()
	if err != nil {
		t.Fatalf("Failed to read remote URL: %v", err)
	}
	if url != "git@example.com:keys.git" {
		t.Errorf("RemoteURL = %q", url)
	}

	// second Initialize keeps the original URL
	if err := db.Initialize("other"); err != nil {
		t.Fatalf("Re-initialize failed: %v", err)
	}
	if url, _ := db.RemoteURL(); url != "git@example.com:keys.git" {
		t.Errorf("RemoteURL changed to %q", url)
	}
}

func TestLockContention(t *testing.T) {
	db, dbPath := openTest(t)

	_, err := Open(dbPath, 50*time.Millisecond)
	if !errors.Is(err, kerrors.ErrLocked) {
		t.Fatalf("expected ErrLocked while held, got %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db2, err := Open(dbPath, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Open after release failed: %v", err)
	}
	db2.Close()
}

func TestSyncRecord(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	rec, err := db.GetSyncRecord()
	if err != nil {
		t.Fatalf("GetSyncRecord failed: %v", err)
	}
	if rec != nil {
		t.Fatal("fresh database should have no sync record")
	}

	before, _ := db.GetModified()
	want := SyncRecord{
		RemoteURL: "git@example.com:keys.git",
		Branch:    "master",
		Head:      "0123abcd",
		Artifact:  "com.example.app",
		SyncedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := db.PutSyncRecord(want); err != nil {
		t.Fatalf("PutSyncRecord failed: %v", err)
	}

	rec, err = db.GetSyncRecord()
	if err != nil {
		t.Fatalf("GetSyncRecord failed: %v", err)
	}
	if rec == nil || rec.Head != want.Head || rec.Branch != want.Branch || !rec.SyncedAt.Equal(want.SyncedAt) {
		t.Errorf("sync record mismatch: %+v", rec)
	}

	after, _ := db.GetModified()
	if after.Before(before) {
		t.Error("modified time should advance")
	}
}

func TestListing(t *testing.T) {
	db, _ := openTest(t)
	defer db.Close()

	empty, err := db.GetListing("android")
	if err != nil {
		t.Fatalf("GetListing failed: %v", err)
	}
	if len(empty.Files) != 0 {
		t.Fatal("unknown app dir should give an empty listing")
	}

	l := NewListing()
	l.AddFile(ArtifactEntry{Name: "b.jks.enc", Size: 10, Hash: "bb"})
	l.AddFile(ArtifactEntry{Name: "a.jks.enc", Size: -1, Hash: "aa"})
	l.AddFile(ArtifactEntry{Name: "b.jks.enc", Size: 11, Hash: "b2"})

	if err := db.PutListing("android", l); err != nil {
		t.Fatalf("PutListing failed: %v", err)
	}

	got, err := db.GetListing("android")
	if err != nil {
		t.Fatalf("GetListing failed: %v", err)
	}
	if len(got.Files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Files))
	}
	if got.Files[0].Name != "a.jks.enc" || got.Files[0].Size != 0 {
		t.Errorf("unexpected first entry %+v", got.Files[0])
	}
	if got.FindFile("b.jks.enc").Hash != "b2" {
		t.Error("AddFile should replace existing entries")
	}

	lines := got.Lines()
	if len(lines) != 2 || lines[0] != "a.jks.enc aa" || lines[1] != "b.jks.enc b2" {
		t.Errorf("Lines = %v", lines)
	}
}

func TestPersistenceAndCompact(t *testing.T) {
	db, dbPath := openTest(t)

	if err := db.PutSyncRecord(SyncRecord{Head: "cafe"}); err != nil {
		t.Fatalf("PutSyncRecord failed: %v", err)
	}
	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	rec, err := db.GetSyncRecord()
	if err != nil || rec == nil || rec.Head != "cafe" {
		t.Fatalf("record lost during compact: %+v, %v", rec, err)
	}
	db.Close()

	ro, err := OpenReadOnly(dbPath, time.Second)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	rec, err = ro.GetSyncRecord()
	if err != nil || rec == nil || rec.Head != "cafe" {
		t.Errorf("record not persisted: %+v, %v", rec, err)
	}
}

func TestOpenReadOnlyMissing(t *testing.T) {
	if _, err := OpenReadOnly(filepath.Join(t.TempDir(), "nope.state"), time.Second); err == nil {
		t.Error("expected error for missing database")
	}
}
