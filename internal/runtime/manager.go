// Package runtime downloads and manages the bundled Node.js runtime the
// gateway runs on, so users never need a system Node.js install.
//
// Builds are fetched from official nodejs.org release archives on first
// use and unpacked under the Claw state directory.
package runtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/observability"
	"github.com/simplestclaw/claw/internal/paths"
)

const manifestName = "manifest.yaml"

// Manifest records what was installed and when.
type Manifest struct {
	Version     string    `yaml:"version"`
	Platform    string    `yaml:"platform"`
	NodePath    string    `yaml:"nodePath"`
	NpxPath     string    `yaml:"npxPath"`
	InstalledAt time.Time `yaml:"installedAt"`
}

// StatusFunc receives runtime status snapshots during installation.
type StatusFunc func(Status)

// Manager installs and inspects the bundled Node.js runtime.
type Manager struct {
	mu       sync.Mutex
	current  Status
	onStatus StatusFunc

	runtimeDir string
	httpClient *http.Client
	goos       string
	goarch     string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRuntimeDir overrides the runtime install directory.
func WithRuntimeDir(dir string) Option {
	return func(m *Manager) { m.runtimeDir = dir }
}

// WithHTTPClient overrides the download HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithPlatform overrides the detected OS/arch pair.
func WithPlatform(goos, goarch string) Option {
	return func(m *Manager) {
		m.goos = goos
		m.goarch = goarch
	}
}

// WithStatusFunc registers a callback invoked on every status change.
func WithStatusFunc(fn StatusFunc) Option {
	return func(m *Manager) { m.onStatus = fn }
}

// NewManager creates a runtime Manager.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		current:    Checking(),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		goos:       goruntime.GOOS,
		goarch:     goruntime.GOARCH,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.runtimeDir == "" {
		dir, err := paths.RuntimeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve runtime directory: %w", err)
		}

		m.runtimeDir = dir
	}

	return m, nil
}

// Status returns the current runtime status. When idle, it reflects
// whether a verified install exists on disk.
func (m *Manager) Status() Status {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current.Phase == PhaseDownloading {
		return current
	}

	nodePath, npxPath, ok := m.installedPaths()
	if ok {
		return Installed(m.installedVersion(), nodePath, npxPath)
	}

	if current.Phase == PhaseError {
		return current
	}

	return Checking()
}

// IsInstalled reports whether a verified runtime exists on disk.
func (m *Manager) IsInstalled() bool {
	_, _, ok := m.installedPaths()
	return ok
}

// NodePath returns the installed node binary path, or empty if missing.
func (m *Manager) NodePath() string {
	nodePath, _, ok := m.installedPaths()
	if !ok {
		return ""
	}

	return nodePath
}

// NpxPath returns the installed npx binary path, or empty if missing.
func (m *Manager) NpxPath() string {
	_, npxPath, ok := m.installedPaths()
	if !ok {
		return ""
	}

	return npxPath
}

// Install downloads, extracts, and verifies the Node.js runtime.
// It is a no-op when a verified install already exists.
func (m *Manager) Install(ctx context.Context) error {
	if m.IsInstalled() {
		return nil
	}

	platform, err := PlatformFor(m.goos, m.goarch)
	if err != nil {
		m.setStatus(Errored(err.Error()))
		return err
	}

	if mkErr := os.MkdirAll(m.runtimeDir, 0o755); mkErr != nil {
		wrapped := clierrors.RuntimeInstallFailed(fmt.Errorf("create runtime directory: %w", mkErr))
		m.setStatus(Errored(wrapped.Error()))

		return wrapped
	}

	m.setStatus(Downloading(0))

	if err := m.downloadAndExtract(ctx, platform); err != nil {
		m.setStatus(Errored(err.Error()))
		return err
	}

	nodePath, npxPath, ok := m.installedPaths()
	if !ok {
		err := clierrors.RuntimeInstallFailed(fmt.Errorf("installation verification failed"))
		m.setStatus(Errored(err.Error()))

		return err
	}

	if err := m.writeManifest(nodePath, npxPath); err != nil {
		return err
	}

	m.setStatus(Installed(NodeVersion, nodePath, npxPath))

	return nil
}

func (m *Manager) downloadAndExtract(ctx context.Context, platform Platform) error {
	logger := observability.FromContext(ctx)
	logger.Info("downloading node runtime", "url", platform.URL, "version", NodeVersion)

	archivePath, err := m.download(ctx, platform.URL)
	if err != nil {
		return clierrors.RuntimeInstallFailed(err)
	}

	defer os.Remove(archivePath)

	m.setStatus(Downloading(100))
	logger.Info("download complete, extracting", "archive", archivePath)

	switch platform.Archive {
	case "zip":
		err = extractZip(archivePath, m.runtimeDir)
	default:
		err = extractTarGz(archivePath, m.runtimeDir)
	}

	if err != nil {
		return clierrors.RuntimeInstallFailed(err)
	}

	if m.goos != "windows" {
		if err := markExecutable(filepath.Join(m.runtimeDir, platform.FolderName, "bin")); err != nil {
			return clierrors.RuntimeInstallFailed(err)
		}
	}

	logger.Info("node runtime installed", "version", NodeVersion)

	return nil
}

// download streams the archive to a temp file, reporting progress as a
// percentage when the server provides a Content-Length.
func (m *Manager) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download runtime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download runtime: unexpected status %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp(m.runtimeDir, "download.*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp download file: %w", err)
	}

	total := resp.ContentLength

	var downloaded int64

	buf := make([]byte, 64*1024)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmpFile.Write(buf[:n]); writeErr != nil {
				_ = tmpFile.Close()
				_ = os.Remove(tmpFile.Name())

				return "", fmt.Errorf("write download: %w", writeErr)
			}

			downloaded += int64(n)
			if total > 0 {
				m.setStatus(Downloading(float64(downloaded) / float64(total) * 100))
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())

			return "", fmt.Errorf("read download: %w", readErr)
		}
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("close download file: %w", err)
	}

	return tmpFile.Name(), nil
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.current = s
	onStatus := m.onStatus
	m.mu.Unlock()

	if onStatus != nil {
		onStatus(s)
	}
}

func (m *Manager) installedPaths() (nodePath, npxPath string, ok bool) {
	platform, err := PlatformFor(m.goos, m.goarch)
	if err != nil {
		return "", "", false
	}

	nodePath = platform.nodeBinary(m.runtimeDir, m.goos)
	npxPath = platform.npxBinary(m.runtimeDir, m.goos)

	if !fileExists(nodePath) || !fileExists(npxPath) {
		return "", "", false
	}

	return nodePath, npxPath, true
}

// installedVersion reads the manifest version, falling back to the
// bundled version when the manifest is missing.
func (m *Manager) installedVersion() string {
	data, err := os.ReadFile(filepath.Join(m.runtimeDir, manifestName)) //nolint:gosec // G304: controlled state directory
	if err != nil {
		return NodeVersion
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil || manifest.Version == "" {
		return NodeVersion
	}

	return manifest.Version
}

func (m *Manager) writeManifest(nodePath, npxPath string) error {
	manifest := Manifest{
		Version:     NodeVersion,
		Platform:    m.goos + "/" + m.goarch,
		NodePath:    nodePath,
		NpxPath:     npxPath,
		InstalledAt: time.Now().UTC(),
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("marshal runtime manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.runtimeDir, manifestName), data, 0o644); err != nil { //nolint:gosec // G306: manifest is not sensitive
		return fmt.Errorf("write runtime manifest: %w", err)
	}

	return nil
}

func markExecutable(binDir string) error {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return fmt.Errorf("read runtime bin directory: %w", err)
	}

	for _, entry := range entries {
		if err := os.Chmod(filepath.Join(binDir, entry.Name()), 0o755); err != nil { //nolint:gosec // G302: runtime binaries must be executable
			return fmt.Errorf("mark %s executable: %w", entry.Name(), err)
		}
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
