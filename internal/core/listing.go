package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/illarion/sous/internal/artifact"
	"github.com/illarion/sous/internal/locator"
	"github.com/illarion/sous/internal/storage"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeKind classifies how an encrypted artifact changed between syncs.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change is one artifact that differs from the recorded listing.
type Change struct {
	Kind ChangeKind
	Name string
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s", c.Kind, c.Name)
}

// scanListing records every encrypted artifact in dir. A missing
// directory yields an empty listing.
func scanListing(dir string) (*storage.Listing, error) {
	listing := storage.NewListing()
	listing.Recorded = time.Now().UTC()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return listing, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), locator.EncryptedSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		hash, err := artifact.FileHash(path)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", path, err)
		}
		listing.AddFile(storage.ArtifactEntry{Name: e.Name(), Size: info.Size(), Hash: hash})
	}
	return listing, nil
}

// diffListings compares two listings line by line and folds a removed and
// added line for the same name into a modification.
func diffListings(prev, cur *storage.Listing) []Change {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(joinLines(prev.Lines()), joinLines(cur.Lines()))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	removed := make(map[string]bool)
	var inserted []string
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			name, _, _ := strings.Cut(line, " ")
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				removed[name] = true
			case diffmatchpatch.DiffInsert:
				inserted = append(inserted, name)
			}
		}
	}

	var changes []Change
	for _, name := range inserted {
		if removed[name] {
			delete(removed, name)
			changes = append(changes, Change{Kind: ChangeModified, Name: name})
			continue
		}
		changes = append(changes, Change{Kind: ChangeAdded, Name: name})
	}
	for name := range removed {
		changes = append(changes, Change{Kind: ChangeRemoved, Name: name})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
