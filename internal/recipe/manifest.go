// Package recipe is the thin, explicitly external frontend that turns a
// TOML manifest tree on disk into the model.Project/model.Package graph the
// build orchestration core consumes. Nothing under internal/model,
// internal/planner, internal/executor, internal/watch, or internal/watchloop
// imports this package; only cmd/ wires the two sides together (spec §1).
package recipe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

// ConfigEnv is the expr-lang evaluation environment for {{ expr }}
// manifest interpolations and conditional-section keys (teacher:
// config.go's ConfigEnv).
type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Config     string            `expr:"config"`
	Environ    map[string]string `expr:"environ"`
}

// NewConfigEnv builds the default evaluation environment for the host
// platform and selected build configuration.
func NewConfigEnv(configuration string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}
	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Config:     configuration,
		Environ:    environ,
	}
}

// DependencySection is one entry of the manifest's [dependencies] table.
type DependencySection struct {
	Path     string `toml:"path"`
	Git      string `toml:"git"`
	Version  string `toml:"version"`
	Optional bool   `toml:"optional"`
}

// TargetSection mirrors model.BuildSettings field-for-field so a parsed
// section can be folded directly into one, plus the few manifest-only
// knobs (target type name, configuration gating) that don't belong in
// BuildSettings itself.
type TargetSection struct {
	Type       string `toml:"type"`
	TargetPath string `toml:"targetPath"`
	TargetName string `toml:"targetName"`

	SourceFiles         []string `toml:"sourceFiles"`
	ExcludedSourceFiles []string `toml:"excludedSourceFiles"`
	ImportFiles         []string `toml:"importFiles"`
	StringImportFiles   []string `toml:"stringImportFiles"`
	Versions            []string `toml:"versions"`
	DebugVersions       []string `toml:"debugVersions"`
	Dflags              []string `toml:"dflags"`
	Lflags              []string `toml:"lflags"`
	Libs                []string `toml:"libs"`
	ImportPaths         []string `toml:"importPaths"`
	StringImportPaths   []string `toml:"stringImportPaths"`
	CopyFiles           []string `toml:"copyFiles"`

	PreBuildCommands     []string `toml:"preBuildCommands"`
	PostBuildCommands    []string `toml:"postBuildCommands"`
	PreGenerateCommands  []string `toml:"preGenerateCommands"`
	PostGenerateCommands []string `toml:"postGenerateCommands"`

	MainSourceFile   string `toml:"mainSourceFile"`
	WorkingDirectory string `toml:"workingDirectory"`
}

// PackageSection is the manifest's [package] table.
type PackageSection struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Description string   `toml:"description"`
	Authors     []string `toml:"authors"`
}

// Manifest is one parsed Project.toml, before its dependency graph has
// been fetched or its globs expanded.
type Manifest struct {
	Package        PackageSection                `toml:"package"`
	Dependencies   map[string]DependencySection  `toml:"dependencies"`
	Target         TargetSection                 `toml:"target"`
	Configurations map[string]TargetSection      `toml:"configurations"`
}

// ConfigurationNames returns the manifest's declared configuration names.
func (m *Manifest) ConfigurationNames() []string {
	names := make([]string, 0, len(m.Configurations))
	for name := range m.Configurations {
		names = append(names, name)
	}
	return names
}

var exprTagRe = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString resolves every {{ expr }} interpolation in s against env
// (teacher: config.go's evaluateString).
func evaluateString(s string, env ConfigEnv) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	var out strings.Builder
	last := 0
	for _, loc := range exprTagRe.FindAllStringSubmatchIndex(s, -1) {
		out.WriteString(s[last:loc[0]])
		expression := strings.TrimSpace(s[loc[2]:loc[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("compiling expression %q: %w", expression, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("running expression %q: %w", expression, err)
		}
		fmt.Fprintf(&out, "%v", result)
		last = loc[1]
	}
	out.WriteString(s[last:])
	return out.String(), nil
}

// processExpressions walks parsed TOML data interpolating {{ expr }}
// strings in place (teacher: config.go's processExpressions).
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			resolved, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = resolved
		}
		return v, nil
	case []any:
		for i, item := range v {
			resolved, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = resolved
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func mustMarshal(v any) []byte {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func unmarshalSection(raw map[string]any, name string, dst any) error {
	data, ok := raw[name]
	if !ok {
		return nil
	}
	if err := toml.Unmarshal(mustMarshal(data), dst); err != nil {
		return fmt.Errorf("parsing [%s] section: %w", name, err)
	}
	return nil
}

// unmarshalConditionalTable parses a table whose keys are either plain
// field names or expr-lang boolean conditions gating a nested override
// table, merging matching conditional tables onto dst in map-iteration
// order (teacher: config.go's unmarshalConditionalSection, generalized to
// map[string]T destinations alongside single-struct ones).
func unmarshalConditionalTable[T any](raw map[string]any, name string, env ConfigEnv, apply func(T) error) error {
	data, ok := raw[name]
	if !ok {
		return nil
	}
	table, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("[%s] must be a table", name)
	}

	base := make(map[string]any)
	conditional := make(map[string]map[string]any)
	for key, val := range table {
		sub, isTable := val.(map[string]any)
		if !isTable {
			base[key] = val
			continue
		}
		if _, err := expr.Compile(key, expr.Env(env)); err == nil {
			conditional[key] = sub
			continue
		}
		base[key] = val
	}

	if len(base) > 0 {
		var section T
		if err := toml.Unmarshal(mustMarshal(base), &section); err != nil {
			return fmt.Errorf("parsing [%s] section: %w", name, err)
		}
		if err := apply(section); err != nil {
			return err
		}
	}

	for expression, sub := range conditional {
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return fmt.Errorf("compiling condition [%s.%q]: %w", name, expression, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("evaluating condition [%s.%q]: %w", name, expression, err)
		}
		matched, _ := result.(bool)
		if !matched {
			continue
		}
		var section T
		if err := toml.Unmarshal(mustMarshal(sub), &section); err != nil {
			return fmt.Errorf("parsing conditional [%s.%q]: %w", name, expression, err)
		}
		if err := apply(section); err != nil {
			return err
		}
	}
	return nil
}

// mergeTargetSection folds src's non-zero fields into dst, appending
// slices rather than replacing them (conditional sections add to the base,
// they don't override it).
func mergeTargetSection(dst *TargetSection, src TargetSection) {
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.TargetPath != "" {
		dst.TargetPath = src.TargetPath
	}
	if src.TargetName != "" {
		dst.TargetName = src.TargetName
	}
	if src.MainSourceFile != "" {
		dst.MainSourceFile = src.MainSourceFile
	}
	if src.WorkingDirectory != "" {
		dst.WorkingDirectory = src.WorkingDirectory
	}
	dst.SourceFiles = append(dst.SourceFiles, src.SourceFiles...)
	dst.ExcludedSourceFiles = append(dst.ExcludedSourceFiles, src.ExcludedSourceFiles...)
	dst.ImportFiles = append(dst.ImportFiles, src.ImportFiles...)
	dst.StringImportFiles = append(dst.StringImportFiles, src.StringImportFiles...)
	dst.Versions = append(dst.Versions, src.Versions...)
	dst.DebugVersions = append(dst.DebugVersions, src.DebugVersions...)
	dst.Dflags = append(dst.Dflags, src.Dflags...)
	dst.Lflags = append(dst.Lflags, src.Lflags...)
	dst.Libs = append(dst.Libs, src.Libs...)
	dst.ImportPaths = append(dst.ImportPaths, src.ImportPaths...)
	dst.StringImportPaths = append(dst.StringImportPaths, src.StringImportPaths...)
	dst.CopyFiles = append(dst.CopyFiles, src.CopyFiles...)
	dst.PreBuildCommands = append(dst.PreBuildCommands, src.PreBuildCommands...)
	dst.PostBuildCommands = append(dst.PostBuildCommands, src.PostBuildCommands...)
	dst.PreGenerateCommands = append(dst.PreGenerateCommands, src.PreGenerateCommands...)
	dst.PostGenerateCommands = append(dst.PostGenerateCommands, src.PostGenerateCommands...)
}

// ParseManifest parses r into a Manifest, resolving {{ expr }}
// interpolations and conditional [target."expr"] / [dependencies."expr"]
// tables against env.
func ParseManifest(r io.Reader, env ConfigEnv) (*Manifest, error) {
	var raw map[string]any
	if err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	resolved, err := processExpressions(raw, env)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest expressions: %w", err)
	}
	raw = resolved.(map[string]any)

	m := &Manifest{Dependencies: map[string]DependencySection{}, Configurations: map[string]TargetSection{}}
	if err := unmarshalSection(raw, "package", &m.Package); err != nil {
		return nil, err
	}

	if err := unmarshalConditionalTable(raw, "dependencies", env, func(deps map[string]DependencySection) error {
		for name, dep := range deps {
			m.Dependencies[name] = dep
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := unmarshalConditionalTable(raw, "target", env, func(section TargetSection) error {
		mergeTargetSection(&m.Target, section)
		return nil
	}); err != nil {
		return nil, err
	}

	if cfgs, ok := raw["configurations"].(map[string]any); ok {
		for name, data := range cfgs {
			var section TargetSection
			if err := toml.Unmarshal(mustMarshal(data), &section); err != nil {
				return nil, fmt.Errorf("parsing [configurations.%s]: %w", name, err)
			}
			m.Configurations[name] = section
		}
	}

	return m, nil
}

// ParseManifestFile opens path and parses it as a manifest.
func ParseManifestFile(path string, env ConfigEnv) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseManifest(bufio.NewReader(f), env)
}

// mergedTarget returns the effective TargetSection for configuration,
// folding the named [configurations.<name>] override (if any) onto the
// base [target] section.
func (m *Manifest) mergedTarget(configuration string) TargetSection {
	merged := m.Target
	if configuration == "" {
		return merged
	}
	if override, ok := m.Configurations[configuration]; ok {
		mergeTargetSection(&merged, override)
	}
	return merged
}
