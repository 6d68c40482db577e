package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/sous/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingOf(entries ...storage.ArtifactEntry) *storage.Listing {
	l := storage.NewListing()
	for _, e := range entries {
		l.AddFile(e)
	}
	return l
}

func TestDiffListings(t *testing.T) {
	prev := listingOf(
		storage.ArtifactEntry{Name: "a.jks.enc", Hash: "111"},
		storage.ArtifactEntry{Name: "b.jks.enc", Hash: "222"},
		storage.ArtifactEntry{Name: "c.jks.enc", Hash: "333"},
	)
	cur := listingOf(
		storage.ArtifactEntry{Name: "a.jks.enc", Hash: "111"},
		storage.ArtifactEntry{Name: "b.jks.enc", Hash: "999"},
		storage.ArtifactEntry{Name: "d.jks.enc", Hash: "444"},
	)

	assert.Equal(t, []Change{
		{Kind: ChangeModified, Name: "b.jks.enc"},
		{Kind: ChangeRemoved, Name: "c.jks.enc"},
		{Kind: ChangeAdded, Name: "d.jks.enc"},
	}, diffListings(prev, cur))
}

func TestDiffListings_Identical(t *testing.T) {
	l := listingOf(storage.ArtifactEntry{Name: "a.jks.enc", Hash: "111"})
	assert.Empty(t, diffListings(l, l))
	assert.Empty(t, diffListings(storage.NewListing(), storage.NewListing()))
}

func TestScanListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.jks.enc"), []byte("cipher"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.enc"), 0o755))

	l, err := scanListing(dir)
	require.NoError(t, err)
	require.Len(t, l.Files, 1)
	assert.Equal(t, "app.jks.enc", l.Files[0].Name)
	assert.Equal(t, int64(6), l.Files[0].Size)
	assert.Len(t, l.Files[0].Hash, 64)

	missing, err := scanListing(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.Empty(t, missing.Files)
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "added x.jks.enc", Change{Kind: ChangeAdded, Name: "x.jks.enc"}.String())
}
