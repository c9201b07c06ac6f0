package fdup

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevels(t *testing.T) {
	testCases := []struct {
		verbose int
		shown   []string
		hidden  []string
	}{
		{VerboseQuiet, []string{"warn"}, []string{"info", "debug", "trace"}},
		{VerboseBasic, []string{"warn", "info"}, []string{"debug", "trace"}},
		{VerboseDetailed, []string{"warn", "info", "debug"}, []string{"trace"}},
		{VerboseTrace, []string{"warn", "info", "debug", "trace"}, nil},
	}

	for _, tc := range testCases {
		var buf bytes.Buffer
		log := NewLogger(&buf, tc.verbose)
		log.Warn().Msg("warn-message")
		log.Info().Msg("info-message")
		log.Debug().Msg("debug-message")
		log.Trace().Msg("trace-message")

		out := buf.String()
		for _, name := range tc.shown {
			if !strings.Contains(out, name+"-message") {
				t.Errorf("verbose %d: expected %s message in output %q", tc.verbose, name, out)
			}
		}
		for _, name := range tc.hidden {
			if strings.Contains(out, name+"-message") {
				t.Errorf("verbose %d: unexpected %s message in output %q", tc.verbose, name, out)
			}
		}
	}
}

func TestNewLoggerKeepsGlobalLevel(t *testing.T) {
	before := zerolog.GlobalLevel()
	for verbose := VerboseQuiet; verbose <= VerboseTrace; verbose++ {
		NewLogger(io.Discard, verbose)
	}
	if after := zerolog.GlobalLevel(); after != before {
		t.Errorf("global level changed from %v to %v", before, after)
	}
}

func TestParseDebugFlags(t *testing.T) {
	flags := ParseDebugFlags("hash, Walk,link:false,register:on")

	expected := map[string]bool{"hash": true, "walk": true, "link": false, "register": true}
	if len(flags) != len(expected) {
		t.Fatalf("Expected %d flags, got %v", len(expected), flags)
	}
	for name, value := range expected {
		if flags[name] != value {
			t.Errorf("Flag %s = %v, expected %v", name, flags[name], value)
		}
	}

	if len(ParseDebugFlags("")) != 0 {
		t.Error("Expected no flags for empty string")
	}
}
