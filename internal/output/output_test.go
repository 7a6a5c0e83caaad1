package output

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/simplestclaw/claw/internal/terminal"
)

func newTestWriter() (*Writer, *bytes.Buffer, *bytes.Buffer) {
	var out, errBuf bytes.Buffer

	term := &terminal.Info{IsTTY: false, NoColor: true}

	return NewWriter(&out, &errBuf, term), &out, &errBuf
}

func TestPrint_RespectsQuiet(t *testing.T) {
	w, out, _ := newTestWriter()
	w.Quiet = true

	w.Print("hello %s", "world")
	w.Println("line")

	if out.Len() != 0 {
		t.Errorf("quiet mode should suppress stdout, got %q", out.String())
	}
}

func TestFailure_AlwaysWrites(t *testing.T) {
	w, _, errBuf := newTestWriter()
	w.Quiet = true

	w.Failure("broke: %s", "badly")

	if !strings.Contains(errBuf.String(), "broke: badly") {
		t.Errorf("Failure should write to stderr even in quiet mode, got %q", errBuf.String())
	}
}

func TestStatusPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		emit   func(w *Writer)
		prefix string
	}{
		{"success", func(w *Writer) { w.Success("ok") }, CheckMark},
		{"warning", func(w *Writer) { w.Warning("careful") }, WarningMark},
		{"info", func(w *Writer) { w.Info("note") }, InfoMark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out, _ := newTestWriter()
			tt.emit(w)

			if !strings.HasPrefix(out.String(), tt.prefix) {
				t.Errorf("output %q should start with %q", out.String(), tt.prefix)
			}
		})
	}
}

func TestPrintJSON(t *testing.T) {
	w, out, _ := newTestWriter()

	if err := w.PrintJSON(map[string]int{"port": 18789}); err != nil {
		t.Fatalf("PrintJSON() error = %v", err)
	}

	if !strings.Contains(out.String(), `"port": 18789`) {
		t.Errorf("unexpected JSON output: %q", out.String())
	}
}

func TestFromContext_RoundTrip(t *testing.T) {
	w, _, _ := newTestWriter()
	ctx := w.WithContext(context.Background())

	if got := FromContext(ctx); got != w {
		t.Errorf("FromContext should return the stored writer")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if got := FromContext(context.Background()); got == nil {
		t.Errorf("FromContext should fall back to a default writer")
	}
}

func TestSpinner_DisabledFallback(t *testing.T) {
	w, out, _ := newTestWriter()

	spin := w.Spinner("Downloading runtime")
	spin.Start()
	spin.StopWithSuccess("Runtime installed")

	got := out.String()
	if !strings.Contains(got, "Downloading runtime...") {
		t.Errorf("disabled spinner should print plain text, got %q", got)
	}

	if !strings.Contains(got, "Runtime installed") {
		t.Errorf("expected success message, got %q", got)
	}
}
