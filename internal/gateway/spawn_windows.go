//go:build windows

package gateway

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// spawnProcess starts the gateway with combined stdout/stderr pipes.
func spawnProcess(ctx context.Context, opts *Options, env []string) (procHandle, error) {
	cmd := exec.CommandContext(ctx, opts.NodePath, opts.Args...) //nolint:gosec // G204: node path comes from the managed runtime
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe gateway stdout: %w", err)
	}

	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start gateway process: %w", err)
	}

	proc := &osProcess{
		cmd:      cmd,
		out:      stdout,
		waitDone: make(chan struct{}),
	}

	go proc.reap()

	return proc, nil
}

type osProcess struct {
	cmd *exec.Cmd
	out io.ReadCloser

	waitOnce sync.Once
	waitErr  error
	waitDone chan struct{}
}

func (p *osProcess) reap() {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		close(p.waitDone)
	})
}

func (p *osProcess) Output() io.Reader {
	return p.out
}

func (p *osProcess) Wait() error {
	<-p.waitDone
	return p.waitErr
}

// Stop kills the process after the deadline; Windows has no SIGTERM.
func (p *osProcess) Stop(deadline time.Duration) {
	if p.cmd.Process == nil {
		return
	}

	_ = p.cmd.Process.Kill()

	select {
	case <-p.waitDone:
	case <-time.After(deadline):
	}
}
