// rules.go defines where a scanner looks for installed content.

package inventory

import (
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	cerrors "github.com/ezmode-games/ctd/pkg/errors"
)

// Rule describes one location of installed content relative to the scan root.
//
// A rule matches files either by extension or, when Marker is set, by exact
// file name. Marker matches are named after the directory containing the
// marker, so one entry is produced per content directory.
type Rule struct {
	// Name labels the rule in logs.
	Name string `yaml:"name"`
	// Prefix is prepended to entry names, separated by a space.
	Prefix string `yaml:"prefix,omitempty"`
	// Dir is the directory to walk, relative to the scan root.
	Dir string `yaml:"dir"`
	// Extensions lists matching file extensions, with or without the dot.
	Extensions []string `yaml:"extensions,omitempty"`
	// Marker is a file name identifying a content directory.
	Marker string `yaml:"marker,omitempty"`
	// MaxDepth limits how deep below Dir files are matched. Zero is unlimited.
	MaxDepth int `yaml:"maxDepth,omitempty"`
	// VersionKey is the top-level JSON key holding the version in a marker file.
	VersionKey string `yaml:"versionKey,omitempty"`
	// GroupByDir emits one entry per parent directory, hashing the first
	// matching file in walk order.
	GroupByDir bool `yaml:"groupByDir,omitempty"`
	// Exclude skips files whose name contains any of these substrings.
	Exclude []string `yaml:"exclude,omitempty"`
}

// matches reports whether a file name is selected by the rule.
func (r Rule) matches(name string) bool {
	if lo.SomeBy(r.Exclude, func(s string) bool { return s != "" && strings.Contains(name, s) }) {
		return false
	}
	if r.Marker != "" {
		return name == r.Marker
	}
	ext := strings.TrimPrefix(extOf(name), ".")
	return ext != "" && lo.SomeBy(r.Extensions, func(e string) bool {
		return strings.EqualFold(strings.TrimPrefix(e, "."), ext)
	})
}

func (r Rule) entryName(base string) string {
	if r.Prefix == "" {
		return base
	}
	return r.Prefix + " " + base
}

func (r Rule) validate() error {
	if r.Dir == "" {
		return cerrors.NewWithContext(cerrors.ErrCodeConfig, "inventory rule has no dir",
			map[string]any{"rule": r.Name})
	}
	if r.Marker == "" && len(r.Extensions) == 0 {
		return cerrors.NewWithContext(cerrors.ErrCodeConfig, "inventory rule needs extensions or a marker",
			map[string]any{"rule": r.Name})
	}
	return nil
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads rules from a YAML file with a top-level "rules" list.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeIO, "failed to read inventory rules", err,
			map[string]any{"path": path})
	}
	return ParseRules(data)
}

// ParseRules decodes and validates YAML rules.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConfig, "failed to parse inventory rules", err)
	}
	for _, r := range f.Rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}

// DefaultRules describes a typical layout with archive mods, script-extender
// plugins and marker-based mod directories.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "archive", Dir: "archive/pc/mod", Extensions: []string{"archive"}, MaxDepth: 1},
		{Name: "redmod", Prefix: "[REDmod]", Dir: "mods", Marker: "info.json", MaxDepth: 2, VersionKey: "version"},
		{Name: "red4ext", Prefix: "[RED4ext]", Dir: "red4ext/plugins", Extensions: []string{"dll"}, MaxDepth: 2, Exclude: []string{"ctd"}},
		{Name: "cet", Prefix: "[CET]", Dir: "bin/x64/plugins/cyber_engine_tweaks/mods", Marker: "init.lua", MaxDepth: 2},
		{Name: "redscript", Prefix: "[Redscript]", Dir: "r6/scripts", Extensions: []string{"reds"}, GroupByDir: true},
		{Name: "tweakxl", Prefix: "[TweakXL]", Dir: "r6/tweaks", Extensions: []string{"yaml", "yml"}, GroupByDir: true},
	}
}
