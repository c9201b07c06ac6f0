package fdup

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// LinkStats counts the work done by Apply
type LinkStats struct {
	Groups    int   // groups visited
	Links     int   // duplicates replaced
	Skipped   int   // duplicates already sharing the keeper's inode or path
	Reclaimed int64 // bytes no longer stored twice
}

// Executor replaces duplicates with links to their keeper
type Executor struct {
	opts   *Options
	linker linker
	pid    int
	log    zerolog.Logger
}

// NewExecutor returns an executor for opts.Mode. ModeList has no executor.
func NewExecutor(opts *Options) (*Executor, error) {
	l := newLinker(opts.Mode)
	if l == nil {
		return nil, ErrListMode
	}
	return &Executor{
		opts:   opts,
		linker: l,
		pid:    os.Getpid(),
		log:    opts.Logger.With().Str("component", "executor").Logger(),
	}, nil
}

// Apply drains the iterator, replacing every duplicate with a link to its
// group's keeper. The first failure stops the run and is returned as a
// *LinkError; replacements already made are kept. Closing shutdown stops
// the run between two replacements with ErrInterrupted.
func (e *Executor) Apply(shutdown <-chan struct{}, it *GroupIterator) (LinkStats, error) {
	var stats LinkStats

	for {
		keeper, ok := it.nextGroupRecord()
		if !ok {
			break
		}
		stats.Groups++

		for {
			dup, ok := it.nextFileRecord()
			if !ok {
				break
			}

			// A path reached through overlapping roots is its own keeper;
			// replacing it would destroy the only copy.
			if dup.Path == keeper.Path {
				stats.Skipped++
				e.log.Warn().Str("path", dup.Path).Msg("file listed twice, not replacing it with itself")
				continue
			}

			// Renaming one link of an inode onto another is a no-op that
			// would leave the staged entry behind.
			if e.opts.Mode == ModeHardlink && dup.sameInode(keeper) {
				stats.Skipped++
				e.log.Debug().Str("keeper", keeper.Path).Str("path", dup.Path).Msg("already linked")
				continue
			}

			select {
			case <-shutdown:
				return stats, ErrInterrupted
			default:
			}

			if err := e.replace(keeper, dup); err != nil {
				return stats, err
			}
			stats.Links++
			stats.Reclaimed += dup.Size
			e.log.Info().Msgf("Made %9d links for %9d groups", stats.Links, stats.Groups)
		}
	}

	return stats, nil
}

// replace stages a link next to dup and renames it over dup. The rename is
// the commit point: dup is untouched until it succeeds.
func (e *Executor) replace(keeper, dup *FileRecord) error {
	tmp := TempLinkPath(dup.Path, e.pid)

	if err := e.linker.create(keeper, tmp); err != nil {
		return &LinkError{Op: e.linker.name(), Keeper: keeper.Path, Path: dup.Path, Tmp: tmp, Err: err}
	}

	if e.opts.Preserve && e.opts.Mode != ModeHardlink {
		if err := e.preserve(keeper, dup, tmp); err != nil {
			e.discard(tmp)
			return err
		}
	}

	if err := unix.Rename(tmp, dup.Path); err != nil {
		e.discard(tmp)
		return &LinkError{Op: "rename", Keeper: keeper.Path, Path: dup.Path, Tmp: tmp, Err: err}
	}

	if e.opts.debugEnabled("link") {
		e.log.Trace().Str("keeper", keeper.Path).Str("path", dup.Path).Str("mode", e.opts.Mode.String()).Msg("replaced")
	}
	return nil
}

// preserve copies the duplicate's current attributes onto tmp. A failed
// attribute is a warning unless Strict is set.
func (e *Executor) preserve(keeper, dup *FileRecord, tmp string) error {
	var st unix.Stat_t
	if err := unix.Lstat(dup.Path, &st); err != nil {
		return &LinkError{Op: "stat", Keeper: keeper.Path, Path: dup.Path, Tmp: tmp, Err: err}
	}

	for _, ae := range e.linker.preserve(&st, tmp) {
		if e.opts.Strict {
			return &LinkError{Op: "preserve", Keeper: keeper.Path, Path: dup.Path, Tmp: tmp, Err: ae.err}
		}
		e.log.Warn().Err(ae.err).Str("path", dup.Path).Msgf("cannot set %s of %s, %s of %s will be clobbered",
			ae.attr, tmp, ae.attr, dup.Path)
	}
	return nil
}

// discard removes a staged entry after a failure. The duplicate itself is
// never removed.
func (e *Executor) discard(tmp string) {
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.log.Warn().Err(err).Str("path", tmp).Msg("cannot remove temporary link")
	}
}
