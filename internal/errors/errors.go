// Package errors provides structured CLI error types for Claw.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes for CLI errors.
const (
	ExitSuccess = 0  // Successful execution
	ExitGeneral = 1  // General error
	ExitAuth    = 2  // Credential error
	ExitNetwork = 3  // Network/download error
	ExitConfig  = 4  // Configuration error
	ExitRuntime = 5  // Runtime install error
	ExitGateway = 6  // Gateway process error
	ExitUsage   = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// NotAuthenticated returns an error indicating a missing API key.
func NotAuthenticated() *CLIError {
	return &CLIError{
		Message: "No API key configured",
		Hint:    "Run 'claw auth login' or set ANTHROPIC_API_KEY",
		Code:    ExitAuth,
	}
}

// APIKeyEmpty returns an error when the API key is empty.
func APIKeyEmpty() *CLIError {
	return &CLIError{
		Message: "API key cannot be empty",
		Hint:    "Enter a valid API key or set ANTHROPIC_API_KEY environment variable",
		Code:    ExitAuth,
	}
}

// CannotPrompt returns an error when interactive prompts are unavailable.
func CannotPrompt(envVar string) *CLIError {
	return &CLIError{
		Message: "Cannot prompt in non-interactive mode",
		Hint:    fmt.Sprintf("Set %s environment variable instead", envVar),
		Code:    ExitUsage,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your Claw config directory or run 'claw doctor'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// UnsupportedPlatform returns an error when no runtime build exists for the host.
func UnsupportedPlatform(goos, goarch string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unsupported platform: %s/%s", goos, goarch),
		Hint:    "Install Node.js 22 manually and make sure 'node' and 'npx' are in PATH",
		Code:    ExitRuntime,
	}
}

// RuntimeNotInstalled returns an error when the bundled runtime is missing.
func RuntimeNotInstalled() *CLIError {
	return &CLIError{
		Message: "Node.js runtime not installed",
		Hint:    "Run 'claw runtime install' to download it",
		Code:    ExitRuntime,
	}
}

// RuntimeInstallFailed returns an error for a failed runtime download or extraction.
func RuntimeInstallFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Runtime installation failed",
		Hint:    "Check your network connection and retry, or run 'claw doctor'",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// GatewayStartFailed returns an error when the gateway child process cannot start.
func GatewayStartFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Failed to start the gateway",
		Hint:    "Run 'claw doctor' to check the runtime and configuration",
		Cause:   cause,
		Code:    ExitGateway,
	}
}

// GatewayNotRunning returns an error when no supervised gateway is found.
func GatewayNotRunning() *CLIError {
	return &CLIError{
		Message: "Gateway is not running",
		Hint:    "Start it with 'claw gateway start' or 'claw serve'",
		Code:    ExitGateway,
	}
}

// PortInUse returns an error when a listen address is already bound.
func PortInUse(addr string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Address already in use: %s", addr),
		Hint:    "Stop the other process or pick a different port with --listen",
		Cause:   cause,
		Code:    ExitConfig,
	}
}
