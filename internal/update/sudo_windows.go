//go:build windows

package update

import "fmt"

// NeedsElevation always returns false on Windows; claw does not attempt
// UAC elevation, and per-user installs are writable anyway.
func NeedsElevation(binaryPath string) bool {
	return false
}

// ReExecWithSudo is not supported on Windows.
func ReExecWithSudo() error {
	return fmt.Errorf("automatic elevation is not supported on Windows; run 'claw update' from an elevated prompt")
}
