package runtime

import (
	"fmt"
	"path/filepath"

	clierrors "github.com/simplestclaw/claw/internal/errors"
)

// NodeVersion is the Node.js version bundled by the runtime manager.
const NodeVersion = "22.13.1"

const distBaseURL = "https://nodejs.org/dist"

// Platform describes a downloadable Node.js build.
type Platform struct {
	URL        string
	FolderName string
	Archive    string // "tar.gz" or "zip"
}

var platforms = map[string]Platform{
	"darwin/arm64": {
		URL:        fmt.Sprintf("%s/v%s/node-v%s-darwin-arm64.tar.gz", distBaseURL, NodeVersion, NodeVersion),
		FolderName: fmt.Sprintf("node-v%s-darwin-arm64", NodeVersion),
		Archive:    "tar.gz",
	},
	"darwin/amd64": {
		URL:        fmt.Sprintf("%s/v%s/node-v%s-darwin-x64.tar.gz", distBaseURL, NodeVersion, NodeVersion),
		FolderName: fmt.Sprintf("node-v%s-darwin-x64", NodeVersion),
		Archive:    "tar.gz",
	},
	"linux/amd64": {
		URL:        fmt.Sprintf("%s/v%s/node-v%s-linux-x64.tar.gz", distBaseURL, NodeVersion, NodeVersion),
		FolderName: fmt.Sprintf("node-v%s-linux-x64", NodeVersion),
		Archive:    "tar.gz",
	},
	"linux/arm64": {
		URL:        fmt.Sprintf("%s/v%s/node-v%s-linux-arm64.tar.gz", distBaseURL, NodeVersion, NodeVersion),
		FolderName: fmt.Sprintf("node-v%s-linux-arm64", NodeVersion),
		Archive:    "tar.gz",
	},
	"windows/amd64": {
		URL:        fmt.Sprintf("%s/v%s/node-v%s-win-x64.zip", distBaseURL, NodeVersion, NodeVersion),
		FolderName: fmt.Sprintf("node-v%s-win-x64", NodeVersion),
		Archive:    "zip",
	},
}

// PlatformFor returns the Node.js build for the given OS/arch pair.
func PlatformFor(goos, goarch string) (Platform, error) {
	p, ok := platforms[goos+"/"+goarch]
	if !ok {
		return Platform{}, clierrors.UnsupportedPlatform(goos, goarch)
	}

	return p, nil
}

// nodeBinary returns the node binary path inside an extracted build.
func (p Platform) nodeBinary(runtimeDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(runtimeDir, p.FolderName, "node.exe")
	}

	return filepath.Join(runtimeDir, p.FolderName, "bin", "node")
}

// npxBinary returns the npx binary path inside an extracted build.
func (p Platform) npxBinary(runtimeDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(runtimeDir, p.FolderName, "npx.cmd")
	}

	return filepath.Join(runtimeDir, p.FolderName, "bin", "npx")
}
