package fdup

import (
	"fmt"
	"os"
	"syscall"

	"github.com/google/vectorio"
)

// PrintGroups writes every group to out, one path per line with the keeper
// first, and a blank line between groups. Each group is written with a
// single writev so a group is never split by a short buffered write.
func PrintGroups(out *os.File, it *GroupIterator) error {
	var lines [][]byte
	first := true
	for {
		keeper, ok := it.NextGroup()
		if !ok {
			break
		}

		lines = lines[:0]
		if !first {
			lines = append(lines, []byte("\n"))
		}
		first = false

		lines = append(lines, []byte(keeper+"\n"))
		for {
			dup, ok := it.NextFile()
			if !ok {
				break
			}
			lines = append(lines, []byte(dup+"\n"))
		}

		if err := writeLines(out, lines); err != nil {
			return err
		}
	}
	return nil
}

// maxIovecs is IOV_MAX on Linux (UIO_MAXIOV)
const maxIovecs = 1024

// writeLines writes lines with writev, chunked to respect IOV_MAX
func writeLines(out *os.File, lines [][]byte) error {
	iovecs := make([]syscall.Iovec, 0, len(lines))
	total := 0
	for _, line := range lines {
		iovec := syscall.Iovec{Base: &line[0]}
		iovec.SetLen(len(line))
		iovecs = append(iovecs, iovec)
		total += len(line)
	}

	written := 0
	for offset := 0; offset < len(iovecs); offset += maxIovecs {
		end := offset + maxIovecs
		if end > len(iovecs) {
			end = len(iovecs)
		}

		nw, err := vectorio.WritevRaw(uintptr(out.Fd()), iovecs[offset:end])
		if err != nil {
			return fmt.Errorf("failed to write duplicate group: %w", err)
		}
		written += nw
	}

	if written != total {
		return fmt.Errorf("duplicate group write incomplete: wrote %d bytes, expected %d", written, total)
	}
	return nil
}
