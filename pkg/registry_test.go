package fdup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// testOptions returns resolved list-mode options
func testOptions(t *testing.T) *Options {
	t.Helper()
	opts := DefaultOptions()
	require.NoError(t, opts.Resolve())
	return opts
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func lstat(t *testing.T, path string) *unix.Stat_t {
	t.Helper()
	var st unix.Stat_t
	require.NoError(t, unix.Lstat(path, &st))
	return &st
}

// registerFiles registers paths in order and finalizes the registry
func registerFiles(t *testing.T, opts *Options, paths ...string) *Registry {
	t.Helper()
	reg := NewRegistry(opts)
	for _, path := range paths {
		require.NoError(t, reg.Register(path, lstat(t, path)))
	}
	require.NoError(t, reg.Finalize())
	return reg
}

func groupPaths(groups []*Group) [][]string {
	var out [][]string
	for _, g := range groups {
		var paths []string
		for _, f := range g.Files() {
			paths = append(paths, f.Path)
		}
		out = append(out, paths)
	}
	return out
}

func TestRegistry_SingleGroup(t *testing.T) {
	dir := t.TempDir()
	x := string(make([]byte, 100))
	y := x[:99] + "Y"

	a := writeFile(t, filepath.Join(dir, "a"), x)
	b := writeFile(t, filepath.Join(dir, "b"), x)
	c := writeFile(t, filepath.Join(dir, "c"), y)

	reg := registerFiles(t, testOptions(t), a, b, c)

	assert.Equal(t, [][]string{{a, b}}, groupPaths(reg.Groups()))

	g := reg.Groups()[0]
	assert.Equal(t, a, g.Keeper().Path)
	assert.Len(t, g.Duplicates(), 1)
	assert.Equal(t, int64(100), g.Reclaimable())
	assert.Len(t, g.Digest(), HashSizeSHA256)
	assert.Equal(t, g.DigestString(), g.Keeper().DigestString())

	stats := reg.Stats()
	assert.Equal(t, 3, stats.Registered)
	assert.Equal(t, 1, stats.Partitions)
	assert.Equal(t, 3, stats.Hashed)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, int64(100), stats.Reclaimable)
}

func TestRegistry_UniqueSizesAreNotHashed(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "one")
	b := writeFile(t, filepath.Join(dir, "b"), "three")

	reg := registerFiles(t, testOptions(t), a, b)

	assert.Empty(t, reg.Groups())
	assert.Equal(t, 0, reg.Stats().Hashed)
	assert.Nil(t, reg.records[0].Digest())
}

func TestRegistry_SizeWindow(t *testing.T) {
	opts := testOptions(t)
	opts.MinSize, opts.MaxSize, opts.HasMaxSize = 10, 20, true

	reg := NewRegistry(opts)
	for _, size := range []int64{5, 9, 10, 15, 20, 21, 25} {
		st := &unix.Stat_t{Mode: unix.S_IFREG | 0o644, Size: size}
		require.NoError(t, reg.Register(fmt.Sprintf("/f%d", size), st))
	}
	assert.Equal(t, 3, reg.Count())

	for i, want := range []int64{10, 15, 20} {
		assert.Equal(t, want, reg.records[i].Size)
	}
}

func TestRegistry_IgnoresNonRegular(t *testing.T) {
	reg := NewRegistry(testOptions(t))

	for _, mode := range []uint32{unix.S_IFDIR, unix.S_IFLNK, unix.S_IFIFO, unix.S_IFSOCK, unix.S_IFCHR} {
		require.NoError(t, reg.Register("/x", &unix.Stat_t{Mode: mode | 0o644, Size: 10}))
	}
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_SamePathRegisteredOnce(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	b := writeFile(t, filepath.Join(dir, "b"), "content")

	opts := testOptions(t)
	opts.MaxFiles = 2

	reg := NewRegistry(opts)
	require.NoError(t, reg.Register(a, lstat(t, a)))
	require.NoError(t, reg.Register(filepath.Join(dir, ".", "a"), lstat(t, a)))
	require.NoError(t, reg.Register(a, lstat(t, a)), "a repeated path does not count against the limit")
	require.NoError(t, reg.Register(b, lstat(t, b)))
	require.NoError(t, reg.Finalize())

	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, [][]string{{a, b}}, groupPaths(reg.Groups()))
}

func TestRegistry_ResourceExhausted(t *testing.T) {
	opts := testOptions(t)
	opts.MaxFiles = 2

	reg := NewRegistry(opts)
	st := &unix.Stat_t{Mode: unix.S_IFREG | 0o644, Size: 1}
	require.NoError(t, reg.Register("/a", st))
	require.NoError(t, reg.Register("/b", st))

	err := reg.Register("/c", st)
	require.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, 2, reg.Count())
}

func TestRegistry_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "same")

	reg := NewRegistry(testOptions(t))

	keeper, ok := reg.Iterator().NextGroup()
	assert.False(t, ok, "iterator before Finalize must be empty")
	assert.Empty(t, keeper)

	require.NoError(t, reg.Register(a, lstat(t, a)))
	require.NoError(t, reg.Finalize())

	assert.ErrorIs(t, reg.Finalize(), ErrRegistryFinalized)
	assert.ErrorIs(t, reg.Register(a, lstat(t, a)), ErrRegistryFinalized)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_KeeperOrder(t *testing.T) {
	dir := t.TempDir()

	// The larger files are registered first, so their group comes first
	// even though partitions are visited in size order.
	big1 := writeFile(t, filepath.Join(dir, "big1"), "bigger content")
	small1 := writeFile(t, filepath.Join(dir, "small1"), "tiny")
	other1 := writeFile(t, filepath.Join(dir, "other1"), "TINY")
	big2 := writeFile(t, filepath.Join(dir, "sub", "big2"), "bigger content")
	small2 := writeFile(t, filepath.Join(dir, "small2"), "tiny")
	other2 := writeFile(t, filepath.Join(dir, "other2"), "TINY")
	small3 := writeFile(t, filepath.Join(dir, "small3"), "tiny")

	reg := registerFiles(t, testOptions(t), big1, small1, other1, big2, small2, other2, small3)

	assert.Equal(t, [][]string{
		{big1, big2},
		{small1, small2, small3},
		{other1, other2},
	}, groupPaths(reg.Groups()))
	assert.Equal(t, 3, reg.Stats().Groups)
	assert.Equal(t, 4, reg.Stats().Duplicates)
}

func TestRegistry_UnreadableFileExcluded(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	b := writeFile(t, filepath.Join(dir, "b"), "content")
	c := writeFile(t, filepath.Join(dir, "c"), "content")

	reg := NewRegistry(testOptions(t))
	for _, path := range []string{a, b, c} {
		require.NoError(t, reg.Register(path, lstat(t, path)))
	}
	require.NoError(t, os.Remove(b))
	require.NoError(t, reg.Finalize())

	assert.Equal(t, [][]string{{a, c}}, groupPaths(reg.Groups()))
	assert.Equal(t, 1, reg.Stats().Unreadable)
}

func TestRegistry_UnreadableKeeperCandidate(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	b := writeFile(t, filepath.Join(dir, "b"), "content")
	c := writeFile(t, filepath.Join(dir, "c"), "content")
	d := writeFile(t, filepath.Join(dir, "d"), "CONTENT")

	var buf bytes.Buffer
	opts := testOptions(t)
	opts.Logger = NewLogger(&buf, VerboseQuiet)

	reg := NewRegistry(opts)
	members := []*FileRecord{
		newFileRecord(a, lstat(t, a), 0),
		newFileRecord(b, lstat(t, b), 1),
		newFileRecord(c, lstat(t, c), 2),
		newFileRecord(d, lstat(t, d), 3),
	}
	require.NoError(t, os.Remove(a))

	// The first member vanished; the rest still pair up
	sets := reg.confirm(members)
	require.Len(t, sets, 1)
	assert.Equal(t, []*FileRecord{members[1], members[2]}, sets[0])
	assert.Equal(t, 1, reg.Stats().Unreadable)
	assert.Contains(t, buf.String(), a)
}

func TestRegistry_MatchMTime(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	b := writeFile(t, filepath.Join(dir, "b"), "content")

	old := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, os.Chtimes(b, old, old))

	reg := registerFiles(t, testOptions(t), a, b)
	assert.Len(t, reg.Groups(), 1)

	opts := testOptions(t)
	opts.Match = MatchMTime
	reg = registerFiles(t, opts, a, b)
	assert.Empty(t, reg.Groups())
	assert.Equal(t, 2, reg.Stats().Partitions)
}

func TestRegistry_HardlinksShareDigest(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	a2 := filepath.Join(dir, "a2")
	require.NoError(t, os.Link(a, a2))
	b := writeFile(t, filepath.Join(dir, "b"), "content")

	reg := registerFiles(t, testOptions(t), a, a2, b)

	assert.Equal(t, [][]string{{a, a2, b}}, groupPaths(reg.Groups()))
	assert.Equal(t, 2, reg.Stats().Hashed)
}

func TestRegistry_HardlinkModeForcesDeviceAndLinkCount(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	a2 := filepath.Join(dir, "a2")
	require.NoError(t, os.Link(a, a2))
	b := writeFile(t, filepath.Join(dir, "b"), "content")
	c := writeFile(t, filepath.Join(dir, "c"), "content")

	opts := DefaultOptions()
	opts.Mode = ModeHardlink
	require.NoError(t, opts.Resolve())
	assert.Equal(t, MatchDev|MatchLink, opts.Match)

	// a and a2 have two links each, b and c one; they never meet
	reg := registerFiles(t, opts, a, b, a2, c)
	assert.Equal(t, [][]string{{a, a2}, {b, c}}, groupPaths(reg.Groups()))
}

func TestRegistry_Verify(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	b := writeFile(t, filepath.Join(dir, "b"), "content")
	c := writeFile(t, filepath.Join(dir, "c"), "content")

	opts := testOptions(t)
	opts.Verify = true
	opts.HashBufferSize = 3

	reg := registerFiles(t, opts, a, b, c)
	assert.Equal(t, [][]string{{a, b, c}}, groupPaths(reg.Groups()))
}

func TestRegistry_Confirm(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "content")
	b := writeFile(t, filepath.Join(dir, "b"), "CONTENT")
	c := writeFile(t, filepath.Join(dir, "c"), "content")
	d := writeFile(t, filepath.Join(dir, "d"), "CONTENT")

	reg := NewRegistry(testOptions(t))
	members := []*FileRecord{
		newFileRecord(a, lstat(t, a), 0),
		newFileRecord(b, lstat(t, b), 1),
		newFileRecord(c, lstat(t, c), 2),
		newFileRecord(d, lstat(t, d), 3),
	}

	// Pretend all four collided on one digest
	sets := reg.confirm(members)
	require.Len(t, sets, 2)
	assert.Equal(t, []*FileRecord{members[0], members[2]}, sets[0])
	assert.Equal(t, []*FileRecord{members[1], members[3]}, sets[1])
}
