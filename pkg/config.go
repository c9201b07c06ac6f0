package fdup

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-ini/ini"
)

// Config represents the fdup configuration file. It is only ever read; the
// tool keeps no state between runs.
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
	Buffer  string // Read chunk size while hashing (default: "64K")
	Verify  bool   // Confirm digest matches byte-for-byte
}

// MatchConfig represents the metadata fields two candidates must share
type MatchConfig struct {
	Flags string // Letters from "cdglmpu"
}

// SizeConfig represents the inclusive size window
type SizeConfig struct {
	Min string // Lower bound, suffix allowed (default: "0")
	Max string // Upper bound, empty for none
}

// LinkConfig represents what to do with duplicates
type LinkConfig struct {
	Mode     string // list, hardlink, symlink, reflink
	Preserve bool
	Strict   bool
}

// WalkConfig represents traversal configuration
type WalkConfig struct {
	XDev     bool
	FDMargin int
	MaxFiles int
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash    *HashConfig
	Match   *MatchConfig
	Size    *SizeConfig
	Link    *LinkConfig
	Walk    *WalkConfig
	Verbose *VerboseConfig
}

// LoadConfig loads the configuration file at configPath. With an empty path
// the XDG config directories are searched for fdup/config; if none exists an
// empty configuration is returned and every getter falls back to defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		found, err := xdg.SearchConfigFile(DefaultConfigFile)
		if err != nil {
			return &Config{ini: ini.Empty()}, nil
		}
		configPath = found
	}

	if _, err := os.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, usageErrorf("config file %s does not exist", configPath)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, usageErrorf("failed to load config file %s: %v", configPath, err)
	}

	return &Config{
		configPath: configPath,
		ini:        iniFile,
	}, nil
}

// Path returns the file the configuration was loaded from, or "" for defaults
func (c *Config) Path() string {
	return c.configPath
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: DefaultHashAlgorithm, // fallback default
		Buffer:  "64K",                // fallback default
		Verify:  false,                // fallback default
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			hashConfig.Default = section.Key("default").String()
		}
		if section.HasKey("buffer") {
			if buffer := section.Key("buffer").String(); buffer != "" {
				hashConfig.Buffer = buffer
			}
		}
		if section.HasKey("verify") {
			if verify, err := section.Key("verify").Bool(); err == nil {
				hashConfig.Verify = verify
			}
		}
	}

	return hashConfig
}

// GetMatchConfig returns the metadata match configuration
func (c *Config) GetMatchConfig() *MatchConfig {
	matchConfig := &MatchConfig{}

	if c.ini.HasSection("match") {
		section := c.ini.Section("match")
		if section.HasKey("flags") {
			matchConfig.Flags = section.Key("flags").String()
		}
	}

	return matchConfig
}

// GetSizeConfig returns the size window configuration
func (c *Config) GetSizeConfig() *SizeConfig {
	sizeConfig := &SizeConfig{
		Min: "0", // fallback default
	}

	if c.ini.HasSection("size") {
		section := c.ini.Section("size")
		if section.HasKey("min") {
			if minSize := section.Key("min").String(); minSize != "" {
				sizeConfig.Min = minSize
			}
		}
		if section.HasKey("max") {
			sizeConfig.Max = section.Key("max").String()
		}
	}

	return sizeConfig
}

// GetLinkConfig returns the link configuration
func (c *Config) GetLinkConfig() *LinkConfig {
	linkConfig := &LinkConfig{
		Mode: ModeList.String(), // fallback default
	}

	if c.ini.HasSection("link") {
		section := c.ini.Section("link")
		if section.HasKey("mode") {
			linkConfig.Mode = section.Key("mode").String()
		}
		if section.HasKey("preserve") {
			if preserve, err := section.Key("preserve").Bool(); err == nil {
				linkConfig.Preserve = preserve
			}
		}
		if section.HasKey("strict") {
			if strict, err := section.Key("strict").Bool(); err == nil {
				linkConfig.Strict = strict
			}
		}
	}

	return linkConfig
}

// GetWalkConfig returns the traversal configuration
func (c *Config) GetWalkConfig() *WalkConfig {
	walkConfig := &WalkConfig{
		FDMargin: DefaultFDMargin, // fallback default
	}

	if c.ini.HasSection("walk") {
		section := c.ini.Section("walk")
		if section.HasKey("xdev") {
			if xdev, err := section.Key("xdev").Bool(); err == nil {
				walkConfig.XDev = xdev
			}
		}
		if section.HasKey("fd_margin") {
			if margin, err := section.Key("fd_margin").Int(); err == nil {
				walkConfig.FDMargin = margin
			}
		}
		if section.HasKey("max_files") {
			if maxFiles, err := section.Key("max_files").Int(); err == nil {
				walkConfig.MaxFiles = maxFiles
			}
		}
	}

	return walkConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:    c.GetHashConfig(),
		Match:   c.GetMatchConfig(),
		Size:    c.GetSizeConfig(),
		Link:    c.GetLinkConfig(),
		Walk:    c.GetWalkConfig(),
		Verbose: c.GetVerboseConfig(),
	}
}

// overrideKeys maps override keys to their section and key in the file
var overrideKeys = map[string][2]string{
	"hash":      {"filehash", "default"},
	"buffer":    {"filehash", "buffer"},
	"verify":    {"filehash", "verify"},
	"flags":     {"match", "flags"},
	"min":       {"size", "min"},
	"max":       {"size", "max"},
	"mode":      {"link", "mode"},
	"preserve":  {"link", "preserve"},
	"strict":    {"link", "strict"},
	"xdev":      {"walk", "xdev"},
	"fd_margin": {"walk", "fd_margin"},
	"max_files": {"walk", "max_files"},
	"level":     {"verbose", "level"},
	"debug":     {"verbose", "debug"},
}

// ApplyOverrides applies command-line overrides to the in-memory configuration
// Accepts strings like "hash:blake3", "mode:symlink", "max:1G", "level:2"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return usageErrorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return usageErrorf("unsupported override key '%s' (supported: %s)", key, supportedOverrideKeys())
		}
		c.ini.Section(target[0]).Key(target[1]).SetValue(value)
	}

	return nil
}

func supportedOverrideKeys() string {
	keys := []string{"hash", "buffer", "verify", "flags", "min", "max", "mode",
		"preserve", "strict", "xdev", "fd_margin", "max_files", "level", "debug"}
	return strings.Join(keys, ", ")
}

// Options resolves the configuration into run options. The CLI applies its
// own flags on top of the result before calling Resolve.
func (c *Config) Options() (*Options, error) {
	all := c.GetAllConfig()
	opts := DefaultOptions()

	algorithm, err := GetHashAlgorithm(all.Hash.Default)
	if err != nil {
		return nil, err
	}
	opts.Hash = algorithm

	bufferSize, err := ParseSize(all.Hash.Buffer)
	if err != nil {
		return nil, fmt.Errorf("filehash.buffer: %w", err)
	}
	if bufferSize <= 0 || bufferSize > 1<<30 {
		return nil, usageErrorf("filehash.buffer must be between 1 and 1G, got: %s", all.Hash.Buffer)
	}
	opts.HashBufferSize = int(bufferSize)
	opts.Verify = all.Hash.Verify

	if opts.Match, err = ParseMatchFlags(all.Match.Flags); err != nil {
		return nil, fmt.Errorf("match.flags: %w", err)
	}

	if opts.MinSize, err = ParseSize(all.Size.Min); err != nil {
		return nil, fmt.Errorf("size.min: %w", err)
	}
	if all.Size.Max != "" {
		if opts.MaxSize, err = ParseSize(all.Size.Max); err != nil {
			return nil, fmt.Errorf("size.max: %w", err)
		}
		opts.HasMaxSize = true
	}

	if opts.Mode, err = ParseMode(all.Link.Mode); err != nil {
		return nil, fmt.Errorf("link.mode: %w", err)
	}
	opts.Preserve = all.Link.Preserve
	opts.Strict = all.Link.Strict

	opts.XDev = all.Walk.XDev
	opts.FDMargin = all.Walk.FDMargin
	opts.MaxFiles = all.Walk.MaxFiles

	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return nil, err
	}
	opts.Verbose = all.Verbose.Level
	opts.Debug = ParseDebugFlags(all.Verbose.Debug)

	return opts, nil
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < VerboseQuiet || level > VerboseTrace {
		return usageErrorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}
