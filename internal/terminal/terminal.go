// Package terminal captures what the attached terminal can do.
//
// claw decides per invocation whether to render colors, spinners, and the
// gateway watch UI; all of those key off the capabilities detected here at
// startup. Redirected output (pipes, process managers, CI) gets plain text.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// Info holds terminal capability information for one claw invocation.
type Info struct {
	IsTTY     bool
	NoColor   bool
	Width     int
	Height    int
	ForceFlag bool // --no-color
}

// Detect probes stdout and the environment.
func Detect() *Info {
	info := &Info{Width: 80, Height: 24}

	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		info.IsTTY = true

		if w, h, err := term.GetSize(fd); err == nil {
			info.Width, info.Height = w, h
		}
	}

	info.NoColor = noColorRequested()

	return info
}

// noColorRequested honors NO_COLOR (https://no-color.org/) and treats
// TERM=dumb as a terminal without escape-sequence support.
func noColorRequested() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}

	return os.Getenv("TERM") == "dumb"
}

// ColorEnabled returns true if colored output should be used.
func (t *Info) ColorEnabled() bool {
	if t.ForceFlag {
		return false
	}

	return t.IsTTY && !t.NoColor
}

// InteractiveEnabled returns true if interactive prompts are allowed.
func (t *Info) InteractiveEnabled() bool {
	return t.IsTTY
}

// SpinnersEnabled returns true if spinner animations should be used.
// The gateway watch UI applies the same gate.
func (t *Info) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor
}
