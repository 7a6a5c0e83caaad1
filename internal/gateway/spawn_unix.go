//go:build unix

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// spawnProcess starts the gateway under a PTY so it emits its full
// startup banner (some CLIs suppress it on plain pipes).
func spawnProcess(ctx context.Context, opts *Options, env []string) (procHandle, error) {
	cmd := exec.CommandContext(ctx, opts.NodePath, opts.Args...) //nolint:gosec // G204: node path comes from the managed runtime
	cmd.Env = env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("start gateway process: %w", err)
	}

	proc := &osProcess{
		cmd:      cmd,
		ptmx:     ptmx,
		waitDone: make(chan struct{}),
	}

	if cmd.Process != nil && cmd.Process.Pid > 0 {
		if pgid, pgErr := syscall.Getpgid(cmd.Process.Pid); pgErr == nil {
			proc.pgid = pgid
		}
	}

	go proc.reap()

	return proc, nil
}

type osProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File
	pgid int

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
	return p.ptmx
}

func (p *osProcess) Wait() error {
	<-p.waitDone
	return p.waitErr
}

// Stop sends SIGTERM to the process group, escalating to SIGKILL after
// the deadline.
func (p *osProcess) Stop(deadline time.Duration) {
	_ = p.ptmx.Close()

	if p.cmd.Process == nil {
		return
	}

	sendSignal(p.cmd.Process.Pid, p.pgid, syscall.SIGTERM)

	select {
	case <-p.waitDone:
		return
	case <-time.After(deadline):
		sendSignal(p.cmd.Process.Pid, p.pgid, syscall.SIGKILL)

		select {
		case <-p.waitDone:
		case <-time.After(deadline):
		}
	}
}

func sendSignal(pid, pgid int, sig syscall.Signal) {
	if pgid > 0 {
		if err := syscall.Kill(-pgid, sig); err == nil || errors.Is(err, syscall.ESRCH) {
			return
		}
	}

	if pid <= 0 {
		return
	}

	_ = syscall.Kill(pid, sig)
}
