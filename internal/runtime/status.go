package runtime

// Phase describes where the runtime manager is in its lifecycle.
type Phase string

// Runtime lifecycle phases.
const (
	PhaseChecking    Phase = "checking"
	PhaseDownloading Phase = "downloading"
	PhaseInstalled   Phase = "installed"
	PhaseError       Phase = "error"
)

// Status is a snapshot of the managed Node.js runtime.
type Status struct {
	Phase    Phase   `json:"phase"`
	Progress float64 `json:"progress"`
	Version  string  `json:"version,omitempty"`
	NodePath string  `json:"nodePath,omitempty"`
	NpxPath  string  `json:"npxPath,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Checking returns a status for an in-flight installation check.
func Checking() Status {
	return Status{Phase: PhaseChecking}
}

// Downloading returns a status for an in-flight download.
// Progress is clamped to [0, 100].
func Downloading(progress float64) Status {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	return Status{Phase: PhaseDownloading, Progress: progress}
}

// Installed returns a status for a verified installation.
func Installed(version, nodePath, npxPath string) Status {
	return Status{
		Phase:    PhaseInstalled,
		Progress: 100,
		Version:  version,
		NodePath: nodePath,
		NpxPath:  npxPath,
	}
}

// Errored returns a failure status.
func Errored(message string) Status {
	return Status{Phase: PhaseError, Error: message}
}
