package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeProc struct {
	out io.Reader

	once sync.Once
	err  error
	done chan struct{}
}

func newFakeProc(output string) *fakeProc {
	return &fakeProc{
		out:  strings.NewReader(output),
		done: make(chan struct{}),
	}
}

func (p *fakeProc) Output() io.Reader { return p.out }

func (p *fakeProc) Wait() error {
	<-p.done
	return p.err
}

func (p *fakeProc) Stop(time.Duration) {
	p.once.Do(func() { close(p.done) })
}

func (p *fakeProc) exit(err error) {
	p.err = err
	p.once.Do(func() { close(p.done) })
}

func collectStatuses() (StatusFunc, chan Status) {
	ch := make(chan Status, 32)
	return func(s Status) { ch <- s }, ch
}

func waitForState(t *testing.T, ch chan Status, want State) Status {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		select {
		case s := <-ch:
			if s.State == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Options{}, nil)

	if s.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", s.Port(), DefaultPort)
	}

	if s.Token() == "" {
		t.Error("Token() should be generated when not provided")
	}

	if got := s.Status().State; got != StateStopped {
		t.Errorf("initial state = %q, want %q", got, StateStopped)
	}
}

func TestNew_KeepsProvidedToken(t *testing.T) {
	s := New(Options{Token: "fixed-token"}, nil)

	if s.Token() != "fixed-token" {
		t.Errorf("Token() = %q, want %q", s.Token(), "fixed-token")
	}
}

func TestRunning_URL(t *testing.T) {
	status := Running(18789, "tok")

	if status.URL != "ws://127.0.0.1:18789" {
		t.Errorf("URL = %q, want ws://127.0.0.1:18789", status.URL)
	}

	if status.Port != 18789 || status.Token != "tok" {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestSupervisor_ReadyMarker(t *testing.T) {
	onStatus, statuses := collectStatuses()

	s := New(Options{Port: 18789, Token: "tok"}, onStatus)

	proc := newFakeProc("booting gateway\n\x1b[32mopenclaw\x1b[0m listening on ws://127.0.0.1:18789\n")
	s.spawn = func(context.Context, *Options, []string) (procHandle, error) {
		return proc, nil
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForState(t, statuses, StateStarting)

	running := waitForState(t, statuses, StateRunning)
	if running.URL != "ws://127.0.0.1:18789" {
		t.Errorf("running URL = %q", running.URL)
	}
	if running.Token != "tok" {
		t.Errorf("running token = %q, want tok", running.Token)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	waitForState(t, statuses, StateStopped)
}

func TestSupervisor_RespawnsAfterFixedDelay(t *testing.T) {
	onStatus, statuses := collectStatuses()

	var (
		mu     sync.Mutex
		spawns int
		delays []time.Duration
	)

	second := newFakeProc("listening on ws://127.0.0.1:18789\n")

	s := New(Options{Token: "tok", RestartDelay: 5 * time.Second}, onStatus)
	s.spawn = func(context.Context, *Options, []string) (procHandle, error) {
		mu.Lock()
		defer mu.Unlock()

		spawns++
		if spawns == 1 {
			dead := newFakeProc("")
			dead.exit(fmt.Errorf("exit status 1"))

			return dead, nil
		}

		return second, nil
	}
	s.sleep = func(d time.Duration, cancel <-chan struct{}) bool {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()

		return true
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForState(t, statuses, StateError)
	waitForState(t, statuses, StateRunning)

	mu.Lock()
	gotSpawns := spawns
	gotDelays := append([]time.Duration(nil), delays...)
	mu.Unlock()

	if gotSpawns != 2 {
		t.Errorf("spawns = %d, want 2", gotSpawns)
	}

	if len(gotDelays) != 1 || gotDelays[0] != 5*time.Second {
		t.Errorf("delays = %v, want one 5s delay", gotDelays)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

// gatedReader withholds its data until gate is closed, modelling output
// that is still buffered when the child exits.
type gatedReader struct {
	gate <-chan struct{}
	data io.Reader
}

func (r *gatedReader) Read(p []byte) (int, error) {
	<-r.gate
	return r.data.Read(p)
}

func TestSupervisor_CaseInsensitiveReadyMarker(t *testing.T) {
	onStatus, statuses := collectStatuses()

	s := New(Options{Token: "tok", ReadyMarker: "Gateway READY"}, onStatus)

	proc := newFakeProc("Gateway Ready on port 18789\n")
	s.spawn = func(context.Context, *Options, []string) (procHandle, error) {
		return proc, nil
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForState(t, statuses, StateRunning)

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSupervisor_LateOutputAfterExitStaysErrored(t *testing.T) {
	onStatus, statuses := collectStatuses()

	gate := make(chan struct{})
	sleeping := make(chan struct{})

	// The child is already dead, but its ready banner is still buffered
	// and only becomes readable once the gate opens.
	proc := &fakeProc{
		out:  &gatedReader{gate: gate, data: strings.NewReader("listening on ws://127.0.0.1:18789\n")},
		done: make(chan struct{}),
	}
	proc.exit(fmt.Errorf("exit status 1"))

	s := New(Options{Token: "tok"}, onStatus)
	s.spawn = func(context.Context, *Options, []string) (procHandle, error) {
		return proc, nil
	}

	var once sync.Once
	s.sleep = func(d time.Duration, cancel <-chan struct{}) bool {
		once.Do(func() { close(sleeping) })
		<-cancel
		return false
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitForState(t, statuses, StateError)
	<-sleeping

	// Release the banner now that the exit has been published.
	close(gate)

	deadline := time.After(300 * time.Millisecond)

drain:
	for {
		select {
		case st := <-statuses:
			if st.State == StateRunning {
				t.Fatal("dead gateway reported as running")
			}
		case <-deadline:
			break drain
		}
	}

	if got := s.Status().State; got == StateRunning {
		t.Fatalf("status = %q after child exit", got)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	waitForState(t, statuses, StateStopped)
}

func TestSupervisor_SpawnError(t *testing.T) {
	onStatus, statuses := collectStatuses()

	s := New(Options{Token: "tok"}, onStatus)
	s.spawn = func(context.Context, *Options, []string) (procHandle, error) {
		return nil, fmt.Errorf("node binary missing")
	}
	s.sleep = func(time.Duration, <-chan struct{}) bool {
		return false // cancelled
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	errStatus := waitForState(t, statuses, StateError)
	if !strings.Contains(errStatus.Error, "node binary missing") {
		t.Errorf("error status = %q", errStatus.Error)
	}

	waitForState(t, statuses, StateStopped)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("supervision loop did not exit")
	}
}

func TestSupervisor_StopWithoutStart(t *testing.T) {
	s := New(Options{}, nil)

	if err := s.Stop(context.Background()); err == nil {
		t.Fatal("Stop() before Start() should fail")
	}
}

func TestSupervisor_DoubleStart(t *testing.T) {
	s := New(Options{Token: "tok"}, nil)

	proc := newFakeProc("listening on\n")
	s.spawn = func(context.Context, *Options, []string) (procHandle, error) {
		return proc, nil
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second Start() should fail")
	}

	_ = s.Stop(context.Background())
}

func TestBuildEnv(t *testing.T) {
	opts := &Options{Port: 18789, Token: "tok", ExtraEnv: []string{"EXTRA=1"}}

	env := buildEnv(opts)

	var hasToken, hasPort, hasExtra bool

	for _, kv := range env {
		switch kv {
		case "OPENCLAW_GATEWAY_TOKEN=tok":
			hasToken = true
		case "OPENCLAW_GATEWAY_PORT=18789":
			hasPort = true
		case "EXTRA=1":
			hasExtra = true
		}
	}

	if !hasToken || !hasPort || !hasExtra {
		t.Errorf("env missing entries: token=%v port=%v extra=%v", hasToken, hasPort, hasExtra)
	}
}
