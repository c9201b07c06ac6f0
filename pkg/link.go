package fdup

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// LinkMode selects what happens to duplicates
type LinkMode int

const (
	ModeList     LinkMode = iota // print groups, change nothing
	ModeHardlink                 // replace duplicates with hard links
	ModeSymlink                  // replace duplicates with symbolic links
	ModeReflink                  // replace duplicates with copy-on-write clones
)

// String returns the mode's config file name
func (m LinkMode) String() string {
	switch m {
	case ModeList:
		return "list"
	case ModeHardlink:
		return "hardlink"
	case ModeSymlink:
		return "symlink"
	case ModeReflink:
		return "reflink"
	default:
		return fmt.Sprintf("LinkMode(%d)", int(m))
	}
}

// ParseMode parses a mode name or its single-letter CLI form (L, H, S, B)
func ParseMode(name string) (LinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "list", "l", "":
		return ModeList, nil
	case "hardlink", "hard", "h":
		return ModeHardlink, nil
	case "symlink", "soft", "s":
		return ModeSymlink, nil
	case "reflink", "clone", "b":
		return ModeReflink, nil
	default:
		return ModeList, usageErrorf("unsupported link mode: %s (supported: list, hardlink, symlink, reflink)", name)
	}
}

// attrError is one attribute that could not be copied onto a replacement
type attrError struct {
	attr string
	err  error
}

// linker is implemented by each replacement strategy. create stages the
// link at tmp; preserve copies the duplicate's attributes onto it.
type linker interface {
	name() string
	create(keeper *FileRecord, tmp string) error
	preserve(dup *unix.Stat_t, tmp string) []attrError
}

// newLinker returns the linker for a mode, or nil for ModeList
func newLinker(mode LinkMode) linker {
	switch mode {
	case ModeHardlink:
		return hardLinker{}
	case ModeSymlink:
		return symLinker{}
	case ModeReflink:
		return reflinker{}
	default:
		return nil
	}
}

// hardLinker adds a directory entry for the keeper's inode. The entry shares
// all inode metadata with the keeper, so there is nothing to preserve.
type hardLinker struct{}

func (hardLinker) name() string { return "link" }

func (hardLinker) create(keeper *FileRecord, tmp string) error {
	return unix.Link(keeper.Path, tmp)
}

func (hardLinker) preserve(*unix.Stat_t, string) []attrError {
	return nil
}

// symLinker points a symbolic link at the keeper's path. Only timestamps
// are copied; mode and ownership of a symlink are not meaningful.
type symLinker struct{}

func (symLinker) name() string { return "symlink" }

func (symLinker) create(keeper *FileRecord, tmp string) error {
	return unix.Symlink(keeper.Path, tmp)
}

func (symLinker) preserve(dup *unix.Stat_t, tmp string) []attrError {
	var errs []attrError
	if err := setTimes(dup, tmp); err != nil {
		errs = append(errs, attrError{attr: "times", err: err})
	}
	return errs
}

// reflinker creates a new inode sharing the keeper's data extents (FICLONE)
type reflinker struct{}

func (reflinker) name() string { return "clone" }

func (reflinker) create(keeper *FileRecord, tmp string) error {
	src, err := os.Open(keeper.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, os.FileMode(keeper.Mode&0o777))
	if err != nil {
		return err
	}

	if err := unix.IoctlFileClone(int(dst.Fd()), int(src.Fd())); err != nil {
		dst.Close()
		os.Remove(tmp)
		return err
	}
	return dst.Close()
}

// Times go first since changing mode or owner may take away the right to set them
func (reflinker) preserve(dup *unix.Stat_t, tmp string) []attrError {
	var errs []attrError
	if err := setTimes(dup, tmp); err != nil {
		errs = append(errs, attrError{attr: "times", err: err})
	}
	if err := unix.Fchmodat(unix.AT_FDCWD, tmp, dup.Mode&0o7777, 0); err != nil {
		errs = append(errs, attrError{attr: "permissions", err: err})
	}
	if err := unix.Lchown(tmp, int(dup.Uid), int(dup.Gid)); err != nil {
		errs = append(errs, attrError{attr: "ownership", err: err})
	}
	return errs
}

// setTimes copies access and modification times without following symlinks
func setTimes(src *unix.Stat_t, path string) error {
	times := []unix.Timespec{src.Atim, src.Mtim}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, times, unix.AT_SYMLINK_NOFOLLOW)
}
