package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLoggerLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name    string
		logger  Logger
		want    []string
		notWant []string
	}{
		{"quiet", Logger{}, []string{"[warn] w", "[error] e"}, []string{"[info]", "[debug]"}},
		{"verbose", Logger{Verbose: true}, []string{"[info] i", "[warn] w"}, []string{"[debug]"}},
		{"debug", Logger{Debug: true}, []string{"[info] i", "[debug] d", "[error] e"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := tt.logger
			l.Out = &buf

			l.Infof("i")
			l.Debugf("d")
			l.Warnf("w")
			l.Errorf("e")

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected %q in output, got: %q", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("did not expect %q in output, got: %q", nw, out)
				}
			}
		})
	}
}

func TestErrorfAndReturn(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	l := Logger{Out: &buf}

	err := l.ErrorfAndReturn("failed to load %s: %w", "config", errBoom)
	if !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
	if !strings.Contains(buf.String(), "[error] failed to load config: boom") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

var errBoom = errors.New("boom")
