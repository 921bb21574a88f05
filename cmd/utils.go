package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// EnumValue is a cobra pflag.Value restricted to a fixed set of strings
// with per-choice help text (teacher: cmd/utils.go's EnumValue).
type EnumValue struct {
	value      string
	allowed    map[string]string
	defaultVal string
}

func NewEnumValue(defaultVal string, allowed map[string]string) EnumValue {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue{value: defaultVal, allowed: allowed, defaultVal: defaultVal}
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }

func (e *EnumValue) Set(v string) error {
	if _, ok := e.allowed[v]; ok {
		e.value = v
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
}

func (e *EnumValue) AllowedKeys() []string {
	keys := make([]string, 0, len(e.allowed))
	for k := range e.allowed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *EnumValue) CompletionFunc() func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		items := make([]string, 0, len(e.allowed))
		for _, k := range e.AllowedKeys() {
			if help := e.allowed[k]; help != "" {
				items = append(items, fmt.Sprintf("%s\t%s", k, help))
			} else {
				items = append(items, k)
			}
		}
		return items, cobra.ShellCompDirectiveDefault
	}
}

// buildTypeHelp names the build types internal/planner's builtinBuildTypeDflags
// table recognizes; kept in sync with that table by hand since it's a small,
// rarely-changed set of toolchain-standard names.
var buildTypeHelp = map[string]string{
	"plain":            "No extra flags",
	"debug":            "Debug symbols, no optimization (default)",
	"release":          "Optimized, assertions and bounds checks disabled",
	"release-debug":    "Optimized with debug symbols retained",
	"release-nobounds": "Optimized with array bounds checking disabled",
	"unittest":         "Compiles in unittest blocks",
	"unittest-cov":     "unittest plus coverage instrumentation",
	"profile":          "Profiling instrumentation",
	"docs":             "Generate documentation only",
}

// BuildTypeValue is an EnumValue pre-populated with the build types
// internal/planner understands.
type BuildTypeValue = EnumValue

func NewBuildTypeValue(defaultVal string) BuildTypeValue {
	return NewEnumValue(defaultVal, buildTypeHelp)
}
