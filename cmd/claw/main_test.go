package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/output"
	"github.com/simplestclaw/claw/internal/terminal"
)

func newTestWriter() (*output.Writer, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer

	term := &terminal.Info{IsTTY: false}

	return output.NewWriter(&stdout, &stderr, term), &stdout, &stderr
}

func TestHandleError_CLIError(t *testing.T) {
	out, _, stderr := newTestWriter()

	err := &clierrors.CLIError{
		Message: "Gateway is not running",
		Hint:    "Start it with 'claw gateway start'",
		Code:    clierrors.ExitGateway,
	}

	code := handleError(out, err)

	if code != clierrors.ExitGateway {
		t.Errorf("exit code = %d, want %d", code, clierrors.ExitGateway)
	}

	if !strings.Contains(stderr.String(), "Gateway is not running") {
		t.Errorf("stderr = %q, want the error message", stderr.String())
	}
}

func TestHandleError_UnknownCommand(t *testing.T) {
	out, stdout, _ := newTestWriter()

	err := errors.New(`unknown command "gatway" for "claw"`)

	code := handleError(out, err)

	if code != clierrors.ExitUsage {
		t.Errorf("exit code = %d, want %d (ExitUsage)", code, clierrors.ExitUsage)
	}

	if !strings.Contains(stdout.String(), "claw --help") {
		t.Errorf("stdout = %q, want a --help hint", stdout.String())
	}
}

func TestHandleError_GenericError(t *testing.T) {
	out, _, _ := newTestWriter()

	code := handleError(out, errors.New("something broke"))

	if code != clierrors.ExitGeneral {
		t.Errorf("exit code = %d, want %d (ExitGeneral)", code, clierrors.ExitGeneral)
	}
}

func TestPickBoolFlagOrEnv(t *testing.T) {
	tests := []struct {
		name     string
		flag     bool
		envValue string
		want     bool
	}{
		{"flag set", true, "", true},
		{"env true", false, "true", true},
		{"env 1", false, "1", true},
		{"env yes", false, "yes", true},
		{"env false", false, "false", false},
		{"unset", false, "", false},
		{"env garbage", false, "maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLAW_TEST_BOOL", tt.envValue)

			if got := pickBoolFlagOrEnv(tt.flag, "CLAW_TEST_BOOL"); got != tt.want {
				t.Errorf("pickBoolFlagOrEnv(%v, %q) = %v, want %v", tt.flag, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestPickFlagOrEnv(t *testing.T) {
	t.Setenv("CLAW_TEST_VALUE", "from-env")

	if got := pickFlagOrEnv("from-flag", "CLAW_TEST_VALUE", "fallback"); got != "from-flag" {
		t.Errorf("flag should win, got %q", got)
	}

	if got := pickFlagOrEnv("", "CLAW_TEST_VALUE", "fallback"); got != "from-env" {
		t.Errorf("env should win over fallback, got %q", got)
	}

	t.Setenv("CLAW_TEST_VALUE", "")

	if got := pickFlagOrEnv("  ", "CLAW_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("fallback expected, got %q", got)
	}
}

func TestIsInteractiveCommand(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"claw gateway start", true},
		{"claw serve", true},
		{"claw dashboard", true},
		{"claw gateway status", false},
		{"claw doctor", false},
		{"claw servello", false},
	}

	for _, tt := range tests {
		if got := isInteractiveCommand(tt.path); got != tt.want {
			t.Errorf("isInteractiveCommand(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestShouldBackgroundCheck(t *testing.T) {
	cmd := &cobra.Command{Use: "gateway"}

	if shouldBackgroundCheck(cmd, "dev", false, false) {
		t.Error("dev builds should not background-check")
	}

	if shouldBackgroundCheck(cmd, "1.0.0", true, false) {
		t.Error("quiet mode should not background-check")
	}

	if shouldBackgroundCheck(cmd, "1.0.0", false, true) {
		t.Error("json mode should not background-check")
	}

	for name := range skipUpdateCommands {
		skipCmd := &cobra.Command{Use: name}
		if shouldBackgroundCheck(skipCmd, "1.0.0", false, false) {
			t.Errorf("command %q should skip background checks", name)
		}
	}

	if !shouldBackgroundCheck(cmd, "1.0.0", false, false) {
		t.Error("release build of a regular command should background-check")
	}
}

func TestShouldBackgroundCheck_Disabled(t *testing.T) {
	t.Setenv("CLAW_UPDATE_DISABLED", "1")

	cmd := &cobra.Command{Use: "gateway"}

	if shouldBackgroundCheck(cmd, "1.0.0", false, false) {
		t.Error("CLAW_UPDATE_DISABLED should suppress background checks")
	}
}

func TestNoArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "status"}

	if err := noArgs(cmd, nil); err != nil {
		t.Errorf("noArgs with no args = %v, want nil", err)
	}

	err := noArgs(cmd, []string{"extra"})
	if err == nil {
		t.Fatal("expected error for extra args")
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %T", err)
	}

	if cliErr.Code != clierrors.ExitUsage {
		t.Errorf("exit code = %d, want %d", cliErr.Code, clierrors.ExitUsage)
	}
}
