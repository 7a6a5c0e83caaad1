// Package gateway supervises the OpenClaw gateway child process.
//
// The supervisor spawns the gateway on the bundled Node.js runtime,
// watches its output for the readiness banner, and respawns it after a
// fixed delay when it dies. There is no backoff: the gateway is a local
// process and the only recovery is to start it again.
package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/simplestclaw/claw/internal/ansi"
	"github.com/simplestclaw/claw/internal/auth"
	clierrors "github.com/simplestclaw/claw/internal/errors"
	"github.com/simplestclaw/claw/internal/observability"
)

const (
	// DefaultPort is the local port the gateway binds to.
	DefaultPort = 18789
	// DefaultReadyMarker is the stdout substring that signals readiness.
	DefaultReadyMarker = "listening on"
	// DefaultRestartDelay is the fixed delay between respawns.
	DefaultRestartDelay = 5 * time.Second
	// DefaultStopDeadline bounds graceful shutdown before a hard kill.
	DefaultStopDeadline = 5 * time.Second
)

// Options configures a Supervisor.
type Options struct {
	// NodePath is the node binary used to run the gateway.
	NodePath string
	// Args are passed to node (the gateway entrypoint and its flags).
	Args []string
	// Port the gateway binds to. Defaults to DefaultPort.
	Port int
	// Token authenticates clients against the gateway. Generated when empty.
	Token string
	// ReadyMarker is the stdout substring that signals readiness.
	ReadyMarker string
	// RestartDelay is the fixed delay between respawns.
	RestartDelay time.Duration
	// StopDeadline bounds graceful shutdown before a hard kill.
	StopDeadline time.Duration
	// ExtraEnv entries are appended to the child environment (KEY=VALUE).
	ExtraEnv []string
	// OnOutput receives each output line from the gateway, ANSI-stripped.
	OnOutput func(line string)
}

// procHandle abstracts a spawned gateway process.
type procHandle interface {
	Output() io.Reader
	Wait() error
	Stop(deadline time.Duration)
}

type spawnFunc func(ctx context.Context, opts *Options, env []string) (procHandle, error)

// sleepFunc sleeps for d unless cancel fires first; returns false on cancel.
type sleepFunc func(d time.Duration, cancel <-chan struct{}) bool

// StatusFunc receives status snapshots as the gateway changes state.
type StatusFunc func(Status)

// Supervisor owns the gateway child process lifecycle.
type Supervisor struct {
	opts Options

	mu      sync.Mutex
	current Status
	proc    procHandle
	gen     uint64
	started bool

	onStatus StatusFunc
	spawn    spawnFunc
	sleep    sleepFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
}

// New creates a Supervisor. The token is generated when not provided.
func New(opts Options, onStatus StatusFunc) *Supervisor {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}

	if opts.Token == "" {
		opts.Token = uuid.NewString()
	}

	if opts.ReadyMarker == "" {
		opts.ReadyMarker = DefaultReadyMarker
	}

	// Matching is case-insensitive over lowercased output lines.
	opts.ReadyMarker = strings.ToLower(opts.ReadyMarker)

	if opts.RestartDelay == 0 {
		opts.RestartDelay = DefaultRestartDelay
	}

	if opts.StopDeadline == 0 {
		opts.StopDeadline = DefaultStopDeadline
	}

	return &Supervisor{
		opts:     opts,
		current:  Stopped(),
		onStatus: onStatus,
		spawn:    spawnProcess,
		sleep:    interruptibleSleep,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Token returns the gateway auth token.
func (s *Supervisor) Token() string {
	return s.opts.Token
}

// Port returns the gateway port.
func (s *Supervisor) Port() int {
	return s.opts.Port
}

// Status returns the current gateway status.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Start launches the supervision loop. It returns immediately; readiness
// is reported through the status callback.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return clierrors.GatewayStartFailed(fmt.Errorf("already running"))
	}

	s.started = true
	s.mu.Unlock()

	go s.run(ctx)

	return nil
}

// Stop terminates the gateway and the supervision loop.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return clierrors.GatewayNotRunning()
	}

	proc := s.proc
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })

	if proc != nil {
		proc.Stop(s.opts.StopDeadline)
	}

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the supervision loop exits.
func (s *Supervisor) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.doneCh)

	logger := observability.FromContext(ctx)

	for {
		if s.stopping() {
			s.setStatus(Stopped())
			return
		}

		s.setStatus(Starting())

		env := buildEnv(&s.opts)

		proc, err := s.spawn(ctx, &s.opts, env)
		if err != nil {
			logger.Error("gateway spawn failed", "error", err)
			s.setStatus(Errored(err.Error()))
		} else {
			s.mu.Lock()
			s.proc = proc
			s.gen++
			gen := s.gen
			s.mu.Unlock()

			// Stop may have raced the spawn; make sure the child dies.
			if s.stopping() {
				proc.Stop(s.opts.StopDeadline)
			}

			go s.scanOutput(proc.Output(), gen)

			waitErr := proc.Wait()

			s.mu.Lock()
			s.proc = nil
			s.mu.Unlock()

			if s.stopping() {
				s.setStatus(Stopped())
				return
			}

			if waitErr != nil {
				logger.Warn("gateway exited", "error", waitErr)
				s.setStatus(Errored(fmt.Sprintf("gateway exited: %v", waitErr)))
			} else {
				logger.Warn("gateway exited unexpectedly")
				s.setStatus(Errored("gateway exited unexpectedly"))
			}
		}

		// Fixed respawn delay; deliberately no backoff.
		if !s.sleep(s.opts.RestartDelay, s.stopCh) {
			s.setStatus(Stopped())
			return
		}

		if ctx.Err() != nil {
			s.setStatus(Stopped())
			return
		}
	}
}

// scanOutput watches gateway output for the readiness marker. gen ties the
// scanner to the spawn that produced it.
func (s *Supervisor) scanOutput(r io.Reader, gen uint64) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := ansi.Strip(scanner.Text())

		if s.opts.OnOutput != nil {
			s.opts.OnOutput(line)
		}

		if strings.Contains(strings.ToLower(line), s.opts.ReadyMarker) {
			s.markReady(gen)
		}
	}
}

// markReady publishes Running for the live spawn. Buffered output can drain
// after the child has exited; a stale generation or a reaped process must
// not resurrect the status.
func (s *Supervisor) markReady(gen uint64) {
	s.mu.Lock()
	stale := gen != s.gen || s.proc == nil || s.current.State == StateRunning
	s.mu.Unlock()

	if !stale {
		s.setStatus(Running(s.opts.Port, s.opts.Token))
	}
}

func (s *Supervisor) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Supervisor) setStatus(status Status) {
	s.mu.Lock()
	s.current = status
	onStatus := s.onStatus
	s.mu.Unlock()

	if onStatus != nil {
		onStatus(status)
	}
}

// buildEnv assembles the child environment: the parent environment, the
// gateway token and port, and the stored provider API key when the
// environment doesn't already carry one.
func buildEnv(opts *Options) []string {
	env := os.Environ()

	env = append(env,
		"OPENCLAW_GATEWAY_TOKEN="+opts.Token,
		fmt.Sprintf("OPENCLAW_GATEWAY_PORT=%d", opts.Port),
	)

	if os.Getenv(auth.EnvVarName) == "" {
		if _, key := auth.GetCredentials(); key != "" {
			env = append(env, auth.EnvVarName+"="+key)
		}
	}

	return append(env, opts.ExtraEnv...)
}

func interruptibleSleep(d time.Duration, cancel <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-cancel:
		return false
	}
}
