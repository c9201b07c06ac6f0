package fdup

import (
	"io"

	"github.com/rs/zerolog"
)

// Options is the resolved configuration of one run. It is built once, by
// Config.Options and the CLI, and passed by pointer to the Registry, Walker
// and Executor. Nothing modifies it after Resolve.
type Options struct {
	Mode  LinkMode
	Match MatchFlags

	MinSize    int64
	MaxSize    int64
	HasMaxSize bool

	Preserve bool // copy the duplicate's attributes onto its replacement
	Strict   bool // abort instead of warning when an attribute cannot be copied
	Verify   bool // confirm digest matches with a byte-for-byte comparison

	Hash           *HashAlgorithm
	HashBufferSize int

	XDev     bool // do not cross filesystem boundaries while walking
	FDMargin int  // descriptors kept spare below RLIMIT_NOFILE
	MaxFiles int  // registry capacity, 0 for unlimited

	Verbose int
	Debug   map[string]bool
	Logger  zerolog.Logger
}

// DefaultOptions returns options for listing duplicates with the default
// hash and no size window.
func DefaultOptions() *Options {
	algorithm, _ := GetHashAlgorithm(DefaultHashAlgorithm)
	return &Options{
		Mode:           ModeList,
		Hash:           algorithm,
		HashBufferSize: DefaultHashBuffer,
		FDMargin:       DefaultFDMargin,
		Debug:          map[string]bool{},
		Logger:         zerolog.New(io.Discard),
	}
}

// Resolve validates the options and applies the rules that tie fields
// together. Hard links cannot cross devices and must not merge files that
// are already linked elsewhere, so ModeHardlink forces MatchDev and MatchLink.
func (o *Options) Resolve() error {
	if o.Mode == ModeHardlink {
		o.Match |= MatchDev | MatchLink
	}
	if o.Strict {
		o.Preserve = true
	}

	if o.MinSize < 0 {
		return usageErrorf("lower size bound must not be negative: %d", o.MinSize)
	}
	if o.HasMaxSize && o.MaxSize < o.MinSize {
		return usageErrorf("upper size bound %d is below lower bound %d", o.MaxSize, o.MinSize)
	}

	if o.Hash == nil {
		algorithm, err := GetHashAlgorithm(DefaultHashAlgorithm)
		if err != nil {
			return err
		}
		o.Hash = algorithm
	}
	if o.HashBufferSize <= 0 {
		return usageErrorf("hash buffer size must be positive, got: %d", o.HashBufferSize)
	}
	if o.FDMargin < 0 {
		return usageErrorf("descriptor margin must not be negative, got: %d", o.FDMargin)
	}
	if o.MaxFiles < 0 {
		return usageErrorf("maximum file count must not be negative, got: %d", o.MaxFiles)
	}
	if err := ValidateVerboseLevel(o.Verbose); err != nil {
		return err
	}
	if o.Debug == nil {
		o.Debug = map[string]bool{}
	}

	return nil
}

// InSizeWindow reports whether size lies inside the inclusive window
func (o *Options) InSizeWindow(size int64) bool {
	if size < o.MinSize {
		return false
	}
	return !o.HasMaxSize || size <= o.MaxSize
}

func (o *Options) debugEnabled(flag string) bool {
	return o.Debug[flag]
}
