package runtime

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()

	base := []Option{
		WithRuntimeDir(t.TempDir()),
		WithPlatform("linux", "amd64"),
	}

	m, err := NewManager(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	return m
}

func fakeInstall(t *testing.T, m *Manager) {
	t.Helper()

	platform, err := PlatformFor("linux", "amd64")
	if err != nil {
		t.Fatal(err)
	}

	binDir := filepath.Join(m.runtimeDir, platform.FolderName, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"node", "npx"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPlatformFor(t *testing.T) {
	tests := []struct {
		goos    string
		goarch  string
		wantURL string
		wantErr bool
	}{
		{"darwin", "arm64", "node-v22.13.1-darwin-arm64.tar.gz", false},
		{"darwin", "amd64", "node-v22.13.1-darwin-x64.tar.gz", false},
		{"linux", "amd64", "node-v22.13.1-linux-x64.tar.gz", false},
		{"linux", "arm64", "node-v22.13.1-linux-arm64.tar.gz", false},
		{"windows", "amd64", "node-v22.13.1-win-x64.zip", false},
		{"plan9", "386", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			p, err := PlatformFor(tt.goos, tt.goarch)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unsupported platform")
				}

				return
			}

			if err != nil {
				t.Fatalf("PlatformFor() error = %v", err)
			}

			if !strings.HasSuffix(p.URL, tt.wantURL) {
				t.Errorf("URL = %q, want suffix %q", p.URL, tt.wantURL)
			}
		})
	}
}

func TestStatus_ProgressClamped(t *testing.T) {
	if got := Downloading(-5).Progress; got != 0 {
		t.Errorf("Downloading(-5).Progress = %v, want 0", got)
	}

	if got := Downloading(150).Progress; got != 100 {
		t.Errorf("Downloading(150).Progress = %v, want 100", got)
	}
}

func TestManager_Status_NotInstalled(t *testing.T) {
	m := newTestManager(t)

	if m.IsInstalled() {
		t.Fatal("IsInstalled() = true for empty runtime dir")
	}

	if got := m.Status().Phase; got != PhaseChecking {
		t.Errorf("Status().Phase = %q, want %q", got, PhaseChecking)
	}
}

func TestManager_Status_Installed(t *testing.T) {
	m := newTestManager(t)
	fakeInstall(t, m)

	if !m.IsInstalled() {
		t.Fatal("IsInstalled() = false after placing binaries")
	}

	status := m.Status()
	if status.Phase != PhaseInstalled {
		t.Fatalf("Status().Phase = %q, want %q", status.Phase, PhaseInstalled)
	}

	if status.Version != NodeVersion {
		t.Errorf("Status().Version = %q, want %q", status.Version, NodeVersion)
	}

	if m.NodePath() == "" || m.NpxPath() == "" {
		t.Error("NodePath/NpxPath should be set when installed")
	}
}

func TestManager_Install_AlreadyInstalled(t *testing.T) {
	m := newTestManager(t)
	fakeInstall(t, m)

	if err := m.Install(context.Background()); err != nil {
		t.Fatalf("Install() on installed runtime error = %v", err)
	}
}

func TestManager_Install_UnsupportedPlatform(t *testing.T) {
	m := newTestManager(t, WithPlatform("plan9", "386"))

	if err := m.Install(context.Background()); err == nil {
		t.Fatal("Install() should fail for unsupported platform")
	}

	if got := m.Status().Phase; got != PhaseError {
		t.Errorf("Status().Phase = %q, want %q", got, PhaseError)
	}
}

func TestManager_Download_ReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("n"), 256*1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "262144")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var progress []float64

	m := newTestManager(t, WithStatusFunc(func(s Status) {
		if s.Phase == PhaseDownloading {
			progress = append(progress, s.Progress)
		}
	}))

	path, err := m.download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("download() error = %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(data) != len(payload) {
		t.Errorf("downloaded %d bytes, want %d", len(data), len(payload))
	}

	if len(progress) == 0 {
		t.Fatal("expected progress callbacks")
	}

	if last := progress[len(progress)-1]; last != 100 {
		t.Errorf("final progress = %v, want 100", last)
	}
}

func TestManager_Download_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	m := newTestManager(t)

	if _, err := m.download(context.Background(), srv.URL); err == nil {
		t.Fatal("download() should fail on non-200 response")
	}
}

func makeTarGz(t *testing.T, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if strings.HasSuffix(name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}

		if hdr.Typeflag != tar.TypeDir {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestExtractTarGz(t *testing.T) {
	archive := makeTarGz(t, map[string]string{
		"node-v22.13.1-linux-x64/":         "",
		"node-v22.13.1-linux-x64/bin/node": "binary",
		"node-v22.13.1-linux-x64/README":   "docs",
	})

	dest := t.TempDir()
	if err := extractTarGz(archive, dest); err != nil {
		t.Fatalf("extractTarGz() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "node-v22.13.1-linux-x64", "bin", "node"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}

	if string(data) != "binary" {
		t.Errorf("extracted content = %q, want %q", data, "binary")
	}
}

func TestExtractTarGz_RejectsTraversal(t *testing.T) {
	archive := makeTarGz(t, map[string]string{
		"../evil": "payload",
	})

	if err := extractTarGz(archive, t.TempDir()); err == nil {
		t.Fatal("extractTarGz() should reject path traversal entries")
	}
}

func TestExtractZip(t *testing.T) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	f, err := zw.Create("node-v22.13.1-win-x64/node.exe")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("exe")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	if err := extractZip(archive, dest); err != nil {
		t.Fatalf("extractZip() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "node-v22.13.1-win-x64", "node.exe")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestSecurePath(t *testing.T) {
	dest := filepath.Join(string(filepath.Separator), "tmp", "dest")

	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{"plain file", "a/b.txt", false},
		{"dot segments resolved inside", "a/../b.txt", false},
		{"parent escape", "../evil", true},
		{"absolute path", "/etc/passwd", true},
		{"deep escape", "a/../../evil", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := securePath(dest, tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("securePath(%q) error = %v, wantErr %v", tt.entry, err, tt.wantErr)
			}
		})
	}
}
