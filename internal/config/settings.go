package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the top-level vexc.yaml configuration: compiler-wide knobs
// that are not part of the language itself.
type Settings struct {
	// OptionalPasses names zero or more post-link passes. The compiler ships
	// no optimisation passes of its own beyond label-to-offset lowering and
	// runs none of these: compiler.Compile rejects a non-empty list with a
	// config_error.
	OptionalPasses []string `yaml:"optionalPasses,omitempty"`

	// EmitDisassembly controls whether the driver writes the textual
	// bytecode dump alongside the executable.
	EmitDisassembly bool `yaml:"emitDisassembly"`

	// PreludeAliasOverrides lets a build rename a std primitive alias
	// (for example to avoid a collision with a project's own vocabulary)
	// without forking the prelude package.
	PreludeAliasOverrides map[string]string `yaml:"preludeAliasOverrides,omitempty"`
}

// Default returns the settings used when no vexc.yaml is present.
func Default() Settings {
	return Settings{EmitDisassembly: true}
}

// Load reads and parses a vexc.yaml file at path.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading %s: %w", path, err)
	}
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}
