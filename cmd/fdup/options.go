package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	fdup "github.com/mattkeenan/fdup/pkg"
)

// cliOptions holds the parsed command line. Only flags the user actually
// gave override the configuration file.
type cliOptions struct {
	flags *pflag.FlagSet

	mode      fdup.LinkMode
	match     string
	window    string
	xdev      bool
	preserve  bool
	strict    bool
	verify    bool
	verbose   int
	hash      string
	config    string
	overrides []string
	help      bool

	roots []string

	// parsed from match, window and hash
	matchFlags fdup.MatchFlags
	minSize    int64
	maxSize    int64
	hasMaxSize bool
	algorithm  *fdup.HashAlgorithm
}

// modeFlag is one of -L, -H, -S, -B. All four write the same target, so the
// last one on the command line wins.
type modeFlag struct {
	target *fdup.LinkMode
	mode   fdup.LinkMode
}

func (f *modeFlag) String() string {
	return strconv.FormatBool(f.target != nil && *f.target == f.mode)
}

func (f *modeFlag) Set(value string) error {
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if enabled {
		*f.target = f.mode
	}
	return nil
}

func (f *modeFlag) Type() string {
	return "bool"
}

var modeFlagNames = []string{"list", "hardlink", "symlink", "reflink"}

// parseArgs parses args without touching the filesystem. Errors are usage
// errors.
func parseArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{mode: fdup.ModeList}

	fs := pflag.NewFlagSet("fdup", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SortFlags = false

	modes := []struct {
		name, short string
		mode        fdup.LinkMode
		usage       string
	}{
		{"list", "L", fdup.ModeList, "list duplicate groups (default)"},
		{"hardlink", "H", fdup.ModeHardlink, "replace duplicates with hard links (implies -b dl)"},
		{"symlink", "S", fdup.ModeSymlink, "replace duplicates with symbolic links"},
		{"reflink", "B", fdup.ModeReflink, "replace duplicates with copy-on-write clones"},
	}
	for _, m := range modes {
		fs.VarPF(&modeFlag{target: &opts.mode, mode: m.mode}, m.name, m.short, m.usage).NoOptDefVal = "true"
	}

	fs.StringVarP(&opts.match, "match", "b", "", "metadata that must also be equal, letters from `cdglmpu`")
	fs.StringVarP(&opts.window, "size", "s", "", "only consider files of `n[,m]` bytes, suffixes K M G T P E")
	fs.BoolVarP(&opts.xdev, "xdev", "x", false, "do not cross filesystem boundaries")
	fs.BoolVarP(&opts.preserve, "preserve", "p", false, "copy the duplicate's times, mode and owner onto its replacement")
	fs.BoolVarP(&opts.strict, "strict", "P", false, "like -p, but stop if an attribute cannot be copied")
	fs.BoolVarP(&opts.verify, "verify", "c", false, "confirm matches with a byte-for-byte comparison")
	fs.CountVarP(&opts.verbose, "verbose", "v", "report progress (repeat for more detail)")
	fs.StringVar(&opts.hash, "hash", "", "content hash: sha1, sha256, sha512, blake3")
	fs.StringVar(&opts.config, "config", "", "read defaults from `file`")
	fs.StringArrayVarP(&opts.overrides, "set", "o", nil, "override a config value, `key:value`")
	fs.BoolVarP(&opts.help, "help", "h", false, "show this help")

	opts.flags = fs
	if err := fs.Parse(args); err != nil {
		return nil, &fdup.UsageError{Msg: err.Error()}
	}
	opts.roots = fs.Args()

	if err := opts.parseValues(); err != nil {
		return nil, err
	}
	return opts, nil
}

// parseValues checks the flags that take a value, so a bad one is reported
// before any file is read
func (c *cliOptions) parseValues() error {
	var err error
	if c.flags.Changed("match") {
		if c.matchFlags, err = fdup.ParseMatchFlags(c.match); err != nil {
			return err
		}
	}
	if c.flags.Changed("size") {
		if c.minSize, c.maxSize, c.hasMaxSize, err = fdup.ParseSizeWindow(c.window); err != nil {
			return err
		}
	}
	if c.flags.Changed("hash") {
		if c.algorithm, err = fdup.GetHashAlgorithm(c.hash); err != nil {
			return err
		}
	}
	return nil
}

// modeChanged reports whether any of the mode flags was given
func (c *cliOptions) modeChanged() bool {
	for _, name := range modeFlagNames {
		if c.flags.Changed(name) {
			return true
		}
	}
	return false
}

// apply copies the flags that were given onto opts
func (c *cliOptions) apply(opts *fdup.Options) {
	if c.modeChanged() {
		opts.Mode = c.mode
	}
	if c.flags.Changed("match") {
		opts.Match = c.matchFlags
	}
	if c.flags.Changed("size") {
		opts.MinSize, opts.MaxSize, opts.HasMaxSize = c.minSize, c.maxSize, c.hasMaxSize
	}
	if c.flags.Changed("hash") {
		opts.Hash = c.algorithm
	}

	if c.flags.Changed("xdev") {
		opts.XDev = c.xdev
	}
	if c.flags.Changed("preserve") {
		opts.Preserve = c.preserve
	}
	if c.flags.Changed("strict") {
		opts.Strict = c.strict
	}
	if c.flags.Changed("verify") {
		opts.Verify = c.verify
	}
	if c.flags.Changed("verbose") {
		opts.Verbose = min(c.verbose, fdup.VerboseTrace)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: fdup [-B | -H | -L | -S] [-hx] [-pPc] [-v]... [-b cdglmpu] [-s n[,m]] directory...\n\n")

	fmt.Fprintf(w, "Modes:\n")
	fmt.Fprintf(w, "  -L, --list          list duplicate groups (default)\n")
	fmt.Fprintf(w, "  -H, --hardlink      replace duplicates with hard links (implies -b dl)\n")
	fmt.Fprintf(w, "  -S, --symlink       replace duplicates with symbolic links\n")
	fmt.Fprintf(w, "  -B, --reflink       replace duplicates with copy-on-write clones\n\n")

	fmt.Fprintf(w, "Options:\n")
	fmt.Fprintf(w, "  -b LETTERS          metadata that must also be equal:\n")
	fmt.Fprintf(w, "                        c ctime, d device, g group, l link count,\n")
	fmt.Fprintf(w, "                        m mtime, p permissions, u owner\n")
	fmt.Fprintf(w, "  -s n[,m]            only files of at least n and at most m bytes,\n")
	fmt.Fprintf(w, "                        suffixes K M G T P E\n")
	fmt.Fprintf(w, "  -x, --xdev          do not cross filesystem boundaries\n")
	fmt.Fprintf(w, "  -p, --preserve      copy times, mode and owner of the duplicate\n")
	fmt.Fprintf(w, "  -P, --strict        like -p, but stop when an attribute cannot be copied\n")
	fmt.Fprintf(w, "  -c, --verify        confirm matches byte for byte\n")
	fmt.Fprintf(w, "  -v, --verbose       report progress (repeat for more detail)\n")
	fmt.Fprintf(w, "      --hash NAME     sha1, sha256 (default), sha512, blake3\n")
	fmt.Fprintf(w, "      --config FILE   read defaults from FILE instead of $XDG_CONFIG_HOME/fdup/config\n")
	fmt.Fprintf(w, "  -o, --set KEY:VAL   override a config value (e.g. -o buffer:1M)\n")
	fmt.Fprintf(w, "  -h, --help          show this help\n")
}
