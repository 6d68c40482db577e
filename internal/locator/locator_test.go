package locator

import (
	"path/filepath"
	"testing"
)

func TestRemoteID(t *testing.T) {
	got := RemoteID("git@example.com:team/keys.git")
	if len(got) != 32 {
		t.Fatalf("RemoteID length = %d, want 32", len(got))
	}
	if got != RemoteID("git@example.com:team/keys.git") {
		t.Error("RemoteID should be stable")
	}
	if got == RemoteID("git@example.com:team/keys.git/") {
		t.Error("different URLs should not share an identifier")
	}

	// Known vector: md5("") = d41d8cd98f00b204e9800998ecf8427e
	if RemoteID("") != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("RemoteID(\"\") = %s", RemoteID(""))
	}
}

func TestPlan(t *testing.T) {
	root := filepath.Join("home", "user", ".sous")
	url := "https://example.com/keys.git"
	id := RemoteID(url)

	p := Plan(root, url, "com.example.app", DefaultLayout)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"key", p.KeyPath, filepath.Join(root, id+".hex")},
		{"state", p.StatePath, filepath.Join(root, id+".state")},
		{"repo", p.RepoDir, filepath.Join(root, id)},
		{"artifact dir", p.ArtifactDir, filepath.Join(root, id, "android")},
		{"encrypted", p.EncryptedPath, filepath.Join(root, id, "android", "com.example.app.jks.enc")},
		{"plaintext", p.PlaintextPath, filepath.Join(root, id, "android", "com.example.app.jks")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s path = %q, want %q", tt.name, tt.got, tt.want)
		}
	}

	if again := Plan(root, url, "com.example.app", DefaultLayout); again != p {
		t.Error("Plan should be deterministic")
	}
}

func TestPlanCustomLayout(t *testing.T) {
	p := Plan("/cache", "u", "release", Layout{AppDir: "ios", Extension: "p12"})
	if filepath.Base(p.EncryptedPath) != "release.p12.enc" {
		t.Errorf("unexpected encrypted file %s", p.EncryptedPath)
	}
	if filepath.Base(filepath.Dir(p.PlaintextPath)) != "ios" {
		t.Errorf("unexpected artifact dir %s", p.ArtifactDir)
	}

	bare := Plan("/cache", "u", "release", Layout{AppDir: "keys"})
	if filepath.Base(bare.PlaintextPath) != "release" {
		t.Errorf("empty extension should keep the bare name, got %s", bare.PlaintextPath)
	}
}
