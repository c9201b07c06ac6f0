package fdup

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Verbose levels: 0=warnings only, 1=progress, 2=detailed, 3=trace
const (
	VerboseQuiet = iota
	VerboseBasic
	VerboseDetailed
	VerboseTrace
)

// NewLogger returns the console logger used for progress and warnings.
// Warnings are always shown; higher verbose levels add info, debug and trace.
func NewLogger(w io.Writer, verbose int) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbose >= VerboseTrace:
		level = zerolog.TraceLevel
	case verbose == VerboseDetailed:
		level = zerolog.DebugLevel
	case verbose == VerboseBasic:
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return zerolog.New(console).Level(level)
}

// ParseDebugFlags parses a comma-separated debug flag string.
// Supports both simple flags ("hash,walk") and key:value format ("hash:true,walk:false")
func ParseDebugFlags(flagsStr string) map[string]bool {
	flags := make(map[string]bool)
	if flagsStr == "" {
		return flags
	}

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		name := strings.ToLower(parts[0])
		value := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				value = false
			}
		}

		flags[name] = value
	}
	return flags
}
