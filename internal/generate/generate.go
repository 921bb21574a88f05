// Package generate dispatches a named sub-generator backend over a planned
// target map (spec §6). Only the "build" backend — compile the plan with
// internal/executor — is implemented; everything else is explicitly out of
// this core's scope.
package generate

import (
	"errors"
	"fmt"

	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/executor"
	"github.com/nativebuild/nbs/internal/model"
)

// ErrGeneratorOutOfScope is returned by New for any backend name besides
// "build": IDE project-file generators are out of scope for this core
// (spec §1, §7 Non-goals).
var ErrGeneratorOutOfScope = errors.New("generate: backend is out of scope for this core")

// Generator runs a planned build against one output backend.
type Generator interface {
	Generate(targets map[string]*model.TargetInfo, root *model.Package, gs model.GeneratorSettings) error
}

// buildGenerator wraps internal/executor as the "build" backend.
type buildGenerator struct {
	driver compiler.Driver
}

func (g *buildGenerator) Generate(targets map[string]*model.TargetInfo, root *model.Package, gs model.GeneratorSettings) error {
	return executor.New(g.driver).Build(targets, root, gs)
}

// unsupportedGenerator rejects every Generate call with ErrGeneratorOutOfScope,
// naming the backend that was requested.
type unsupportedGenerator struct {
	name string
}

func (g *unsupportedGenerator) Generate(map[string]*model.TargetInfo, *model.Package, model.GeneratorSettings) error {
	return fmt.Errorf("%w: %q", ErrGeneratorOutOfScope, g.name)
}

// New resolves name to a Generator. "build" is the only implemented
// backend; "visuald", "sublimetext", and "cmake" are recognized but return
// ErrGeneratorOutOfScope, matching spec §6's "these exist as dispatch
// entries only" framing.
func New(name string, driver compiler.Driver) (Generator, error) {
	switch name {
	case "build":
		if driver == nil {
			return nil, errors.New("generate: \"build\" backend requires a compiler.Driver")
		}
		return &buildGenerator{driver: driver}, nil
	case "visuald", "sublimetext", "cmake":
		return &unsupportedGenerator{name: name}, nil
	default:
		return nil, fmt.Errorf("generate: unknown backend %q", name)
	}
}
