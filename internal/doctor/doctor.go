// Package doctor provides diagnostic checks for Claw CLI health.
//
// This package implements a check framework that validates:
//   - Node.js runtime installation
//   - Authentication status and credential source
//   - Gateway port availability or liveness
//   - CLI version against latest release
package doctor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/simplestclaw/claw/internal/auth"
	"github.com/simplestclaw/claw/internal/buildinfo"
	"github.com/simplestclaw/claw/internal/config"
	"github.com/simplestclaw/claw/internal/runtime"
	"github.com/simplestclaw/claw/internal/update"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string
	Status  Status
	Message string
	Detail  string // Optional additional detail
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a new diagnostic runner.
func New() *Runner {
	r := &Runner{}

	// Register default checks
	r.AddCheck("Node Runtime", checkRuntime)
	r.AddCheck("Authentication", checkAuthentication)
	r.AddCheck("Gateway Port", checkGatewayPort)
	r.AddCheck("CLI Version", checkCLIVersion)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

// checkRuntime verifies the bundled Node.js runtime is installed.
func checkRuntime(ctx context.Context) Result {
	manager, err := runtime.NewManager()
	if err != nil {
		return Result{
			Status:  StatusFail,
			Message: "Could not resolve runtime directory",
			Detail:  err.Error(),
		}
	}

	status := manager.Status()

	switch status.Phase {
	case runtime.PhaseInstalled:
		return Result{
			Status:  StatusPass,
			Message: fmt.Sprintf("node %s at %s", status.Version, status.NodePath),
		}
	case runtime.PhaseDownloading:
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("Download in progress (%.0f%%)", status.Progress),
		}
	case runtime.PhaseError:
		return Result{
			Status:  StatusFail,
			Message: "Runtime install failed",
			Detail:  status.Error,
		}
	default:
		return Result{
			Status:  StatusFail,
			Message: "Not installed",
			Detail:  "Run 'claw runtime install' to download the bundled Node.js runtime",
		}
	}
}

// checkAuthentication validates stored credentials exist.
func checkAuthentication(ctx context.Context) Result {
	source, apiKey := auth.GetCredentials()

	if apiKey == "" {
		return Result{
			Status:  StatusFail,
			Message: "Not authenticated",
			Detail:  "Run 'claw auth login' or set ANTHROPIC_API_KEY",
		}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (via %s)", auth.Redact(apiKey), source),
	}
}

// checkGatewayPort reports whether the gateway port is serving or free.
func checkGatewayPort(ctx context.Context) Result {
	cfg := config.Load()
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.GatewayPort())

	dialer := net.Dialer{Timeout: time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err == nil {
		_ = conn.Close()

		return Result{
			Status:  StatusPass,
			Message: fmt.Sprintf("Gateway responding on %s", addr),
		}
	}

	return Result{
		Status:  StatusWarn,
		Message: fmt.Sprintf("Nothing listening on %s", addr),
		Detail:  "Run 'claw gateway start' to launch the gateway",
	}
}

// checkCLIVersion checks the CLI version against the latest release.
func checkCLIVersion(ctx context.Context) Result {
	current := buildinfo.Version

	if current == "dev" {
		return Result{
			Status:  StatusWarn,
			Message: "Development build (version check skipped)",
		}
	}

	if update.IsDisabled() {
		return Result{
			Status:  StatusPass,
			Message: fmt.Sprintf("v%s (update checks disabled)", current),
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	updater, err := update.NewUpdater()
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (could not check for updates)", current),
			Detail:  err.Error(),
		}
	}

	info, err := updater.CheckLatest(checkCtx, current)
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (could not check for updates)", current),
			Detail:  err.Error(),
		}
	}

	if info.UpdateAvailable {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (v%s available)", current, info.LatestVersion),
			Detail:  "Run 'claw update' to update",
		}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("v%s (latest)", current),
	}
}

// RenderResults formats diagnostic results to the given output writer.
func RenderResults(results []Result, printFn, successFn, warningFn, failureFn, mutedFn func(format string, args ...any)) {
	maxNameLen := 0
	for _, r := range results {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	for _, r := range results {
		symbol := r.Status.Symbol()
		padding := maxNameLen - len(r.Name) + 4

		switch r.Status {
		case StatusPass:
			successFn("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		case StatusWarn:
			warningFn("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		case StatusFail:
			failureFn("%-*s%s", len(r.Name)+padding, r.Name, r.Message)
		default:
			printFn("%s %-*s%s\n", symbol, len(r.Name)+padding, r.Name, r.Message)
		}

		if r.Detail != "" {
			mutedFn("    %s", r.Detail)
		}
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

const (
	checkMark   = "✓" // ✓
	xMark       = "✗" // ✗
	warningMark = "⚠" // ⚠
)
