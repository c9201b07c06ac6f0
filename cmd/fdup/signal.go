package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// setupSignalHandler returns a channel that is closed on SIGINT or SIGTERM.
// The walker and executor stop at their next checkpoint, so a duplicate is
// never left half replaced.
func setupSignalHandler(log zerolog.Logger) <-chan struct{} {
	shutdown := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("finishing current file, then stopping")
		close(shutdown)
		signal.Stop(sigChan)
	}()

	return shutdown
}
