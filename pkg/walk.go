package fdup

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// FDBudget returns how many descriptors the walker may hold open: the
// RLIMIT_NOFILE soft limit minus margin.
func FDBudget(margin int) (int, error) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 0, fmt.Errorf("failed to get RLIMIT_NOFILE: %w", err)
	}

	current := limit.Cur
	if current > math.MaxInt32 {
		current = math.MaxInt32
	}
	return int(current) - margin, nil
}

// Walker feeds the regular files below a set of roots into a Registry.
// It never follows symbolic links and visits directory entries in name order.
type Walker struct {
	opts    *Options
	reg     *Registry
	log     zerolog.Logger
	budget  int    // descriptors the walker may hold open
	open    int    // descriptors currently held open
	rootDev uint64 // device of the root being walked
}

// NewWalker creates a walker registering into reg
func NewWalker(opts *Options, reg *Registry) *Walker {
	return &Walker{
		opts: opts,
		reg:  reg,
		log:  opts.Logger.With().Str("component", "walk").Logger(),
	}
}

// Walk visits every root in order. An error on one root is collected and the
// walk continues with the next root. ErrResourceExhausted and ErrInterrupted
// stop the walk; either is the last error returned. Files registered before
// it stay registered.
func (w *Walker) Walk(shutdown <-chan struct{}, roots []string) []error {
	budget, err := FDBudget(w.opts.FDMargin)
	if err != nil {
		return []error{err}
	}
	if budget < 1 {
		return []error{fmt.Errorf("descriptor budget %d: %w", budget, ErrResourceExhausted)}
	}
	w.budget = budget
	w.log.Debug().Int("budget", budget).Msg("descriptor budget")

	var errs []error
	for _, root := range roots {
		if err := w.walkRoot(shutdown, root); err != nil {
			errs = append(errs, fmt.Errorf("error processing argument %s: %w", root, err))
			if errors.Is(err, ErrResourceExhausted) || errors.Is(err, ErrInterrupted) {
				break
			}
		}
	}
	return errs
}

// walkFrame is one directory on the walk stack. Its names were read up
// front, so no descriptor stays open while its children are visited.
type walkFrame struct {
	dir   string
	names []string
	next  int
}

// walkRoot walks one root depth-first in pre-order, entries sorted by name
func (w *Walker) walkRoot(shutdown <-chan struct{}, root string) error {
	rootPath, err := absPath(root)
	if err != nil {
		return err
	}

	var st unix.Stat_t
	if err := unix.Lstat(rootPath, &st); err != nil {
		return &os.PathError{Op: "lstat", Path: rootPath, Err: err}
	}
	w.rootDev = uint64(st.Dev)

	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return w.register(rootPath, &st)
	}

	names, err := w.readDir(rootPath)
	if err != nil {
		return err
	}
	stack := []*walkFrame{{dir: rootPath, names: names}}

	for len(stack) > 0 {
		select {
		case <-shutdown:
			return ErrInterrupted
		default:
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.names) {
			stack = stack[:len(stack)-1]
			continue
		}
		path := filepath.Join(top.dir, top.names[top.next])
		top.next++

		var entry unix.Stat_t
		if err := unix.Lstat(path, &entry); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("cannot stat")
			continue
		}
		if w.opts.XDev && uint64(entry.Dev) != w.rootDev {
			continue
		}

		switch entry.Mode & unix.S_IFMT {
		case unix.S_IFDIR:
			names, err := w.readDir(path)
			if err != nil {
				if errors.Is(err, ErrResourceExhausted) {
					return err
				}
				w.log.Warn().Err(err).Str("path", path).Msg("cannot read directory")
				continue
			}
			stack = append(stack, &walkFrame{dir: path, names: names})
		case unix.S_IFREG:
			if err := w.register(path, &entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// readDir returns the sorted entry names of dir, holding one descriptor
// only while reading.
func (w *Walker) readDir(dir string) ([]string, error) {
	if w.open >= w.budget {
		return nil, fmt.Errorf("open %s: %d descriptors in use: %w", dir, w.open, ErrResourceExhausted)
	}

	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	w.open++
	defer func() {
		f.Close()
		w.open--
	}()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (w *Walker) register(path string, st *unix.Stat_t) error {
	before := w.reg.Count()
	if err := w.reg.Register(path, st); err != nil {
		return err
	}

	if count := w.reg.Count(); count != before {
		if w.opts.debugEnabled("walk") {
			w.log.Trace().Str("path", path).Msg("candidate")
		}
		if count%progressInterval == 0 {
			w.log.Debug().Msgf("%9d files", count)
		}
	}
	return nil
}
