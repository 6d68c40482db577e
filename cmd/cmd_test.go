package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/illarion/sous/internal/config"
	"github.com/illarion/sous/internal/crypto"
	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keys"
	"github.com/illarion/sous/internal/locator"
	"github.com/illarion/sous/internal/passphrase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

const (
	testPassphrase = "correct horse battery staple"
	testPackage    = "com.example.app"
)

func TestMain(m *testing.M) {
	gokeyring.MockInit()
	os.Exit(m.Run())
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git CLI not available, skipping test")
	}
}

// runSous executes the root command with args against an isolated cache
// and returns stdout.
func runSous(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetGlobalState()
	t.Cleanup(resetGlobalState)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	cache := filepath.Join(t.TempDir(), "cache")
	t.Setenv(config.EnvCacheDir, cache)
	t.Setenv(config.EnvGitURL, "")
	t.Setenv(config.EnvPackageName, "")
	t.Setenv(config.EnvBranch, "")
	t.Setenv(passphrase.EnvVar, testPassphrase)
	return cache
}

// createVaultRepo creates a repository publishing testPackage and returns
// its path, usable as a clone URL.
func createVaultRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := filepath.Join(t.TempDir(), "match")
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	key, err := keys.Derivation{Algorithm: keys.AlgSHA512}.Derive([]byte(testPassphrase), locator.RemoteID(dir))
	require.NoError(t, err)
	data, err := crypto.Seal([]byte(key), []byte("keystore"), 1000)
	require.NoError(t, err)

	rel := filepath.Join("android", testPackage+".jks.enc")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "android"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, rel), data, 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(filepath.ToSlash(rel))
	require.NoError(t, err)
	_, err = wt.Commit("add keystore", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestFetchPrintsPlaintextPath(t *testing.T) {
	cache := isolate(t)
	remote := createVaultRepo(t)

	out, err := runSous(t, "fetch", "--git-url", remote, "--package", testPackage)
	require.NoError(t, err)

	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(cache, locator.RemoteID(remote), "android", testPackage+".jks"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keystore", string(got))

	// The pass alias works with configuration from the environment.
	t.Setenv(passphrase.EnvVar, "")
	t.Setenv(config.EnvGitURL, remote)
	t.Setenv(config.EnvPackageName, testPackage)
	out, err = runSous(t, "pass")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))
}

func TestFetchRequiresTarget(t *testing.T) {
	isolate(t)

	_, err := runSous(t, "fetch", "--package", testPackage)
	assert.ErrorIs(t, err, kerrors.ErrInvalidInput)

	_, err = runSous(t, "fetch", "--git-url", "git@example.com:certs.git")
	assert.ErrorIs(t, err, kerrors.ErrInvalidInput)
}

func TestStatusAndForget(t *testing.T) {
	isolate(t)
	remote := createVaultRepo(t)

	_, err := runSous(t, "fetch", "-u", remote, "-p", testPackage)
	require.NoError(t, err)

	out, err := runSous(t, "status", "-u", remote, "-p", testPackage)
	require.NoError(t, err)
	assert.Contains(t, out, locator.RemoteID(remote))
	assert.Contains(t, out, testPackage+".jks.enc")
	assert.Contains(t, out, "(present)")

	_, err = runSous(t, "forget", "-u", remote)
	require.NoError(t, err)

	out, err = runSous(t, "status", "-u", remote)
	require.NoError(t, err)
	assert.Contains(t, out, "Key:        not derived")
}

func TestDiffNoChanges(t *testing.T) {
	isolate(t)
	remote := createVaultRepo(t)

	_, err := runSous(t, "fetch", "-u", remote, "-p", testPackage)
	require.NoError(t, err)

	out, err := runSous(t, "diff", "-u", remote)
	require.NoError(t, err)
	assert.Contains(t, out, "No changes since last fetch")
}

func TestKeyringCommands(t *testing.T) {
	isolate(t)
	remote := "git@example.com:certs.git"

	out, err := runSous(t, "keyring", "status", "-u", remote)
	require.NoError(t, err)
	assert.Contains(t, out, "not stored")

	_, err = runSous(t, "keyring", "save", "-u", remote)
	require.NoError(t, err)

	out, err = runSous(t, "keyring", "status", "-u", remote)
	require.NoError(t, err)
	assert.Contains(t, out, "stored in keyring")

	out, err = runSous(t, "keyring", "delete", "-u", remote)
	require.NoError(t, err)
	assert.Contains(t, out, "removed")
}

func TestKeyringSaveRejectsWrongPassphrase(t *testing.T) {
	cache := isolate(t)
	remote := "git@example.com:certs.git"
	id := locator.RemoteID(remote)

	key, err := keys.Derivation{Algorithm: keys.AlgSHA512}.Derive([]byte("another passphrase"), id)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(cache, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cache, id+locator.KeySuffix), []byte(key), 0o600))

	_, err = runSous(t, "keyring", "save", "-u", remote)
	require.ErrorIs(t, err, errPassphraseMismatch)
	assert.Contains(t, err.Error(), config.Default().KDF.Algorithm)
	assert.Contains(t, err.Error(), "sous forget")
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		out, err := runSous(t, "completion", shell)
		require.NoError(t, err, shell)
		assert.Contains(t, out, "sous", shell)
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		hint string
	}{
		{kerrors.ErrMissingPassphrase, passphrase.EnvVar},
		{fmt.Errorf("%w: key.hex", kerrors.ErrCorruptKey), "sous forget"},
		{fmt.Errorf("%w: x.jks.enc", kerrors.ErrArtifactNotFound), "sous seal"},
		{fmt.Errorf("%w: openssl", kerrors.ErrToolUnavailable), "backend"},
		{kerrors.ErrLocked, "lock_timeout"},
		{errors.New("plain failure"), ""},
	}

	for _, tt := range tests {
		_, hint := describeError(tt.err)
		if tt.hint == "" {
			assert.Empty(t, hint, tt.err.Error())
			continue
		}
		assert.Contains(t, hint, tt.hint, tt.err.Error())
	}

	msg, _ := describeError(context.Canceled)
	assert.Equal(t, "interrupted", msg)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 bytes", formatSize(512))
	assert.Equal(t, "2.0 KB", formatSize(2048))
	assert.Equal(t, "1.5 MB", formatSize(3*1024*1024/2))
}

func TestConfigInitAndShow(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "sous", "config.toml")

	resetGlobalState()
	t.Cleanup(resetGlobalState)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)

	rootCmd.SetArgs([]string{"--config", path, "config", "init", "-u", "git@example.com:certs.git", "-b", "main"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	require.FileExists(t, path)

	rootCmd.SetArgs([]string{"--config", path, "config", "init"})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))

	resetGlobalState()
	out.Reset()
	rootCmd.SetArgs([]string{"--config", path, "config", "show"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `remote_url = "git@example.com:certs.git"`)
	assert.Contains(t, out.String(), `branch = "main"`)
}
