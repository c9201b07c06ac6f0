package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fdup "github.com/mattkeenan/fdup/pkg"
)

func TestParseArgs_ModeLastWins(t *testing.T) {
	cases := []struct {
		args []string
		want fdup.LinkMode
	}{
		{[]string{"/d"}, fdup.ModeList},
		{[]string{"-H", "/d"}, fdup.ModeHardlink},
		{[]string{"-H", "-S", "/d"}, fdup.ModeSymlink},
		{[]string{"-SB", "/d"}, fdup.ModeReflink},
		{[]string{"-B", "-L", "/d"}, fdup.ModeList},
		{[]string{"--symlink", "-xH", "/d"}, fdup.ModeHardlink},
	}

	for _, tc := range cases {
		cli, err := parseArgs(tc.args)
		require.NoError(t, err, tc.args)
		assert.Equal(t, tc.want, cli.mode, tc.args)
		assert.Equal(t, []string{"/d"}, cli.roots, tc.args)
	}
}

func TestParseArgs_Flags(t *testing.T) {
	cli, err := parseArgs([]string{"-xpc", "-vvv", "-b", "mu", "-s", "1K,2M",
		"--hash", "blake3", "-o", "buffer:1M", "--set", "max_files:10", "/a", "/b"})
	require.NoError(t, err)

	assert.True(t, cli.xdev)
	assert.True(t, cli.preserve)
	assert.True(t, cli.verify)
	assert.False(t, cli.strict)
	assert.Equal(t, 3, cli.verbose)
	assert.Equal(t, "mu", cli.match)
	assert.Equal(t, "1K,2M", cli.window)
	assert.Equal(t, "blake3", cli.hash)
	assert.Equal(t, []string{"buffer:1M", "max_files:10"}, cli.overrides)
	assert.Equal(t, []string{"/a", "/b"}, cli.roots)
	assert.False(t, cli.modeChanged())
}

func TestParseArgs_Errors(t *testing.T) {
	for _, args := range [][]string{{"-z"}, {"-b"}, {"--hash"}, {"--nope"},
		{"-b", "xyz", "/d"}, {"-s", "20,10", "/d"}, {"-s", "1Q", "/d"}, {"--hash", "md5", "/d"}} {
		_, err := parseArgs(args)
		require.Error(t, err, args)
		assert.True(t, fdup.IsUsageError(err), args)
	}
}

func TestApply_OnlyChangedFlags(t *testing.T) {
	opts := fdup.DefaultOptions()
	opts.Mode = fdup.ModeSymlink
	opts.Match = fdup.MatchUID
	opts.XDev = true
	opts.Verbose = 1

	cli, err := parseArgs([]string{"/d"})
	require.NoError(t, err)
	cli.apply(opts)

	assert.Equal(t, fdup.ModeSymlink, opts.Mode)
	assert.Equal(t, fdup.MatchUID, opts.Match)
	assert.True(t, opts.XDev)
	assert.Equal(t, 1, opts.Verbose)
}

func TestApply(t *testing.T) {
	opts := fdup.DefaultOptions()
	opts.XDev = true

	cli, err := parseArgs([]string{"-L", "-b", "dg", "-s", "10,20", "-P", "--xdev=false",
		"-vvvvv", "--hash", "sha512", "/d"})
	require.NoError(t, err)
	cli.apply(opts)
	require.NoError(t, opts.Resolve())

	assert.Equal(t, fdup.ModeList, opts.Mode)
	assert.Equal(t, fdup.MatchDev|fdup.MatchGID, opts.Match)
	assert.Equal(t, int64(10), opts.MinSize)
	assert.Equal(t, int64(20), opts.MaxSize)
	assert.True(t, opts.HasMaxSize)
	assert.True(t, opts.Strict)
	assert.True(t, opts.Preserve)
	assert.False(t, opts.XDev)
	assert.Equal(t, fdup.VerboseTrace, opts.Verbose)
	assert.Equal(t, "sha512", opts.Hash.Name)
}
