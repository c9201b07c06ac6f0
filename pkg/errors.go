package fdup

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceExhausted is returned by Register when the registry is full
	// and by the walker when no file descriptors are left to open a directory.
	// Records registered before it was returned remain valid.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrRegistryFinalized is returned when a registry is modified or
	// finalized after Finalize has already run.
	ErrRegistryFinalized = errors.New("registry already finalized")

	// ErrListMode is returned by NewExecutor for ModeList, which never
	// touches the filesystem.
	ErrListMode = errors.New("list mode does not create links")

	// ErrInterrupted is returned when the shutdown channel closes. Work
	// completed before it stays in place.
	ErrInterrupted = errors.New("interrupted by shutdown")
)

// UsageError reports malformed flags, arguments or configuration values.
// The CLI maps it to exit status 2.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err is, or wraps, a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// LinkError records a failed step while replacing a duplicate with a link.
// Op is one of the link operation names ("link", "symlink", "clone"),
// "stat", "preserve" or "rename".
type LinkError struct {
	Op     string
	Keeper string
	Path   string
	Tmp    string
	Err    error
}

func (e *LinkError) Error() string {
	switch e.Op {
	case "rename":
		return fmt.Sprintf("cannot rename %s to %s: %v", e.Tmp, e.Path, e.Err)
	case "stat":
		return fmt.Sprintf("cannot stat %s: %v", e.Path, e.Err)
	case "preserve":
		return fmt.Sprintf("cannot preserve attributes of %s on %s: %v", e.Path, e.Tmp, e.Err)
	default:
		return fmt.Sprintf("cannot %s %s to %s: %v", e.Op, e.Keeper, e.Tmp, e.Err)
	}
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
