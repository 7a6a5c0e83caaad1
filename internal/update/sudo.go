//go:build !windows

package update

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// NeedsElevation reports whether replacing the claw binary requires
// elevated permissions. Package-manager installs commonly land in
// /usr/local/bin, where the invoking user has no write access.
func NeedsElevation(binaryPath string) bool {
	return unix.Access(filepath.Dir(binaryPath), unix.W_OK) != nil
}

// ReExecWithSudo replaces the current process with `sudo claw <args...>`
// so the update can swap the binary in place. It only returns on failure.
func ReExecWithSudo() error {
	sudoPath, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("sudo not found in PATH; re-run 'claw update' with elevated permissions")
	}

	claw, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find claw binary: %w", err)
	}

	fmt.Fprintf(os.Stderr, "claw needs write access to %s. Requesting sudo...\n", filepath.Dir(claw))

	argv := append([]string{"sudo", claw}, os.Args[1:]...)

	if err := syscall.Exec(sudoPath, argv, os.Environ()); err != nil { //nolint:gosec // G204: intentional sudo re-exec
		return fmt.Errorf("exec sudo process: %w", err)
	}

	return nil
}
