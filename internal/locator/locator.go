package locator

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
)

const (
	KeySuffix       = ".hex"
	StateSuffix     = ".state"
	EncryptedSuffix = ".enc"
)

// Layout describes where artifacts live inside the repository.
type Layout struct {
	AppDir    string
	Extension string
}

// DefaultLayout is the Android keystore layout.
var DefaultLayout = Layout{AppDir: "android", Extension: "jks"}

// Paths is the full set of filesystem locations for one remote and artifact.
type Paths struct {
	RemoteID      string
	KeyPath       string
	StatePath     string
	RepoDir       string
	ArtifactDir   string
	EncryptedPath string
	PlaintextPath string
}

// RemoteID returns the identifier used for every cache entry of a remote.
// The URL is hashed verbatim so existing caches stay addressable.
func RemoteID(remoteURL string) string {
	sum := md5.Sum([]byte(remoteURL))
	return hex.EncodeToString(sum[:])
}

// Plan computes the cache paths for an artifact of a remote.
func Plan(cacheRoot, remoteURL, artifactName string, layout Layout) Paths {
	p := PlanRemote(cacheRoot, remoteURL, layout)
	file := ArtifactFile(artifactName, layout)
	p.PlaintextPath = filepath.Join(p.ArtifactDir, file)
	p.EncryptedPath = p.PlaintextPath + EncryptedSuffix
	return p
}

// PlanRemote computes the artifact independent part of the layout.
func PlanRemote(cacheRoot, remoteURL string, layout Layout) Paths {
	id := RemoteID(remoteURL)
	repoDir := filepath.Join(cacheRoot, id)
	return Paths{
		RemoteID:    id,
		KeyPath:     filepath.Join(cacheRoot, id+KeySuffix),
		StatePath:   filepath.Join(cacheRoot, id+StateSuffix),
		RepoDir:     repoDir,
		ArtifactDir: filepath.Join(repoDir, layout.AppDir),
	}
}

// ArtifactFile returns the plaintext file name of an artifact.
func ArtifactFile(artifactName string, layout Layout) string {
	if layout.Extension == "" {
		return artifactName
	}
	return artifactName + "." + layout.Extension
}
