package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	fdup "github.com/mattkeenan/fdup/pkg"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one fdup invocation and returns its exit status
func run(args []string, stdout *os.File, stderr io.Writer) int {
	cli, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "fdup: %v\n", err)
		usage(stderr)
		return exitUsage
	}
	if cli.help {
		usage(stderr)
		return exitUsage
	}
	if len(cli.roots) == 0 {
		fmt.Fprintf(stderr, "fdup: missing directory operand\n")
		usage(stderr)
		return exitUsage
	}

	opts, configPath, err := resolveOptions(cli)
	if err != nil {
		fmt.Fprintf(stderr, "fdup: %v\n", err)
		return exitStatus(err)
	}
	opts.Logger = fdup.NewLogger(stderr, opts.Verbose)
	log := opts.Logger
	if configPath != "" {
		log.Debug().Str("path", configPath).Msg("loaded configuration")
	}
	shutdown := setupSignalHandler(log)

	log.Info().Msg("Scanning file system...")
	reg := fdup.NewRegistry(opts)
	for _, err := range fdup.NewWalker(opts, reg).Walk(shutdown, cli.roots) {
		switch {
		case errors.Is(err, fdup.ErrInterrupted):
			log.Error().Err(err).Msg("")
			return exitFailure
		case errors.Is(err, fdup.ErrResourceExhausted):
			log.Warn().Err(err).Msg("stopped collecting files, continuing with those found so far")
		default:
			log.Error().Err(err).Msg("")
		}
	}

	log.Info().Int("files", reg.Count()).Msg("Looking for duplicates...")
	if err := reg.Finalize(); err != nil {
		log.Error().Err(err).Msg("cannot group files")
		return exitFailure
	}

	stats := reg.Stats()
	log.Debug().
		Int("partitions", stats.Partitions).
		Int("hashed", stats.Hashed).
		Int("unreadable", stats.Unreadable).
		Msg("finalized")

	if opts.Mode == fdup.ModeList {
		if err := fdup.PrintGroups(stdout, reg.Iterator()); err != nil {
			log.Error().Err(err).Msg("")
			return exitFailure
		}
		log.Info().Msgf("%d groups, %d duplicates, %s reclaimable",
			stats.Groups, stats.Duplicates, humanize.IBytes(uint64(stats.Reclaimable)))
		return exitOK
	}

	exec, err := fdup.NewExecutor(opts)
	if err != nil {
		log.Error().Err(err).Msg("")
		return exitFailure
	}
	linked, err := exec.Apply(shutdown, reg.Iterator())
	log.Info().Msgf("%s %d duplicates in %d groups, %s reclaimed",
		opts.Mode, linked.Links, linked.Groups, humanize.IBytes(uint64(linked.Reclaimed)))
	if err != nil {
		log.Error().Err(err).Msg("")
		return exitFailure
	}
	return exitOK
}

// resolveOptions layers the config file, -o overrides and command line
// flags. It also returns the path of the config file that was read.
func resolveOptions(cli *cliOptions) (*fdup.Options, string, error) {
	cfg, err := fdup.LoadConfig(cli.config)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.ApplyOverrides(cli.overrides); err != nil {
		return nil, "", err
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, "", err
	}
	cli.apply(opts)
	if err := opts.Resolve(); err != nil {
		return nil, "", err
	}
	return opts, cfg.Path(), nil
}

func exitStatus(err error) int {
	if fdup.IsUsageError(err) {
		return exitUsage
	}
	return exitFailure
}
