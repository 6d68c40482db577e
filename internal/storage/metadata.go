package storage

import (
	"sort"
	"time"
)

// SyncRecord describes the last successful fetch of a remote
type SyncRecord struct {
	RemoteURL     string    `json:"remoteUrl"`
	Branch        string    `json:"branch"`
	Head          string    `json:"head"`
	Artifact      string    `json:"artifact"`
	PlaintextPath string    `json:"plaintextPath"`
	EncryptedHash string    `json:"encryptedHash"` // sha256 of the .enc file
	SyncedAt      time.Time `json:"syncedAt"`
}

// Listing is the set of encrypted artifacts found in an app directory
type Listing struct {
	Recorded time.Time       `json:"recorded"`
	Files    []ArtifactEntry `json:"files"`
}

// ArtifactEntry represents one encrypted artifact in a listing
type ArtifactEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// NewListing creates an empty listing
func NewListing() *Listing {
	return &Listing{Files: make([]ArtifactEntry, 0)}
}

// AddFile adds or updates an entry, keeping entries sorted by name
func (l *Listing) AddFile(entry ArtifactEntry) {
	if entry.Size < 0 {
		entry.Size = 0
	}
	if f := l.FindFile(entry.Name); f != nil {
		*f = entry
		return
	}
	l.Files = append(l.Files, entry)
	sort.Slice(l.Files, func(i, j int) bool { return l.Files[i].Name < l.Files[j].Name })
}

// FindFile finds an entry by name
func (l *Listing) FindFile(name string) *ArtifactEntry {
	for i := range l.Files {
		if l.Files[i].Name == name {
			return &l.Files[i]
		}
	}
	return nil
}

// Lines renders one line per entry, "name hash", in name order.
func (l *Listing) Lines() []string {
	lines := make([]string, len(l.Files))
	for i, f := range l.Files {
		lines[i] = f.Name + " " + f.Hash
	}
	return lines
}
