package fdup

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sizeShift maps a binary magnitude suffix to its power of two
var sizeShift = map[byte]uint{
	'K': 10,
	'M': 20,
	'G': 30,
	'T': 40,
	'P': 50,
	'E': 60,
}

// ParseSize parses a byte count with an optional binary magnitude suffix
// (e.g. "512", "4K", "2M", "1E"). Suffixes are K=2^10 through E=2^60.
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, usageErrorf("empty size string")
	}

	numPart := sizeStr
	var shift uint
	if last := sizeStr[len(sizeStr)-1]; last < '0' || last > '9' {
		s, ok := sizeShift[last]
		if !ok {
			return 0, usageErrorf("unexpected character %c in size %s", last, sizeStr)
		}
		shift = s
		numPart = sizeStr[:len(sizeStr)-1]
	}

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, usageErrorf("invalid size %s", sizeStr)
	}
	if n < 0 {
		return 0, usageErrorf("size must not be negative: %s", sizeStr)
	}
	if n > math.MaxInt64>>shift {
		return 0, usageErrorf("size too large: %s", sizeStr)
	}

	return n << shift, nil
}

// ParseSizeWindow parses a size window of the form "n", "n,", "n,m" or ",m".
// Both bounds are inclusive; hasMax is false when no upper bound was given.
func ParseSizeWindow(window string) (minSize, maxSize int64, hasMax bool, err error) {
	window = strings.TrimSpace(window)
	if window == "" {
		return 0, 0, false, usageErrorf("empty size window")
	}

	lower, upper, hasComma := strings.Cut(window, ",")
	if lower != "" {
		if minSize, err = ParseSize(lower); err != nil {
			return 0, 0, false, err
		}
	}

	if !hasComma || upper == "" {
		return minSize, 0, false, nil
	}

	if maxSize, err = ParseSize(upper); err != nil {
		return 0, 0, false, err
	}
	if maxSize < minSize {
		return 0, 0, false, usageErrorf("upper size bound %d is below lower bound %d", maxSize, minSize)
	}

	return minSize, maxSize, true, nil
}

// FormatSizeWindow renders a window in the form ParseSizeWindow accepts
func FormatSizeWindow(minSize, maxSize int64, hasMax bool) string {
	if !hasMax {
		return strconv.FormatInt(minSize, 10)
	}
	return fmt.Sprintf("%d,%d", minSize, maxSize)
}

// TempLinkPath returns the staging path a replacement for dupPath is created
// under before it is renamed into place.
func TempLinkPath(dupPath string, pid int) string {
	return filepath.Join(filepath.Dir(dupPath), fmt.Sprintf(TempLinkFormat, pid))
}

// absPath makes a path absolute and clean without resolving symlinks
func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, path), nil
}
