package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Feature int

const (
	FeatComments Feature = iota
	FeatDebugInfo
	FeatOptimize
	FeatBuiltinNameCache
	FeatDropUnused
)

type Warning int

const (
	WarnRedundantConversion Warning = iota
	WarnUnreachableLoop
	WarnInfiniteLoop
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	// CompileLevel gates FeatDropUnused: bodies of functions nobody calls are
	// only omitted at level 1 and above.
	CompileLevel int
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatComments:         {"comments", true, "Emit COMMENT pseudo-instructions describing the generated code."},
		FeatDebugInfo:        {"debug-info", true, "Emit SET_DEBUG_TAG pseudo-instructions naming call arguments."},
		FeatOptimize:         {"optimize", true, "Run the peephole pass that removes no-op jumps."},
		FeatBuiltinNameCache: {"builtin-name-cache", false, "Load builtin names from preallocated global slots instead of pushing fresh strings."},
		FeatDropUnused:       {"drop-unused", true, "Skip bodies of functions whose usage count is zero."},
	}

	warnings := map[Warning]Info{
		WarnRedundantConversion: {"redundant-conversion", true, "Hint about conversions to the type a value already has."},
		WarnUnreachableLoop:     {"unreachable-loop", true, "Hint about loops whose condition is always false."},
		WarnInfiniteLoop:        {"infinite-loop", true, "Warn about loops whose condition is always true and that never break."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// DropUnused reports whether bodies with a zero usage count are skipped.
func (c *Config) DropUnused() bool {
	return c.IsFeatureEnabled(FeatDropUnused) && c.CompileLevel >= 1
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	case strings.HasPrefix(trimmed, "O"):
		level := 0
		if _, err := fmt.Sscanf(trimmed, "O%d", &level); err != nil {
			return fmt.Errorf("invalid compile level '%s'", flag)
		}
		c.CompileLevel = level
		return nil
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// ProcessDirectiveFlags applies a space separated list of -W/-F/-O flags.
// -Wall and -Wno-all are applied first so individual flags can override them.
func (c *Config) ProcessDirectiveFlags(flagStr string) error {
	fields := strings.Fields(flagStr)
	for _, flag := range fields {
		if flag == "-Wall" || flag == "-Wno-all" {
			if err := c.applyFlag(flag); err != nil {
				return err
			}
		}
	}
	for _, flag := range fields {
		if flag == "-Wall" || flag == "-Wno-all" {
			continue
		}
		if err := c.applyFlag(flag); err != nil {
			return err
		}
	}
	return nil
}

// fileConfig is the on-disk shape read by Load.
type fileConfig struct {
	Features     map[string]bool `yaml:"features"`
	Warnings     map[string]bool `yaml:"warnings"`
	CompileLevel *int            `yaml:"compile-level"`
	Flags        string          `yaml:"flags"`
}

// Load reads a YAML configuration on top of the defaults.
func Load(r io.Reader) (*Config, error) {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding config")
	}

	cfg := NewConfig()
	for _, name := range sortedKeys(fc.Features) {
		ft, ok := cfg.FeatureMap[name]
		if !ok {
			return nil, errors.Errorf("config: unknown feature '%s'", name)
		}
		cfg.SetFeature(ft, fc.Features[name])
	}
	for _, name := range sortedKeys(fc.Warnings) {
		wt, ok := cfg.WarningMap[name]
		if !ok {
			return nil, errors.Errorf("config: unknown warning '%s'", name)
		}
		cfg.SetWarning(wt, fc.Warnings[name])
	}
	if fc.CompileLevel != nil {
		cfg.CompileLevel = *fc.CompileLevel
	}
	if err := cfg.ProcessDirectiveFlags(fc.Flags); err != nil {
		return nil, errors.Wrap(err, "config: flags")
	}
	return cfg, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
