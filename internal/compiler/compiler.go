// Package compiler wires the pipeline together: resolve, typecheck, lower,
// generate, link. Each stage aborts the whole compilation on its first
// error; there is no continue-past-errors mode, unlike an editor-facing
// pipeline that keeps every pass alive for diagnostics.
package compiler

import (
	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/bytecode"
	"github.com/vexlang/vexc/internal/config"
	"github.com/vexlang/vexc/internal/diag"
	"github.com/vexlang/vexc/internal/link"
	"github.com/vexlang/vexc/internal/lower"
	"github.com/vexlang/vexc/internal/prelude"
	"github.com/vexlang/vexc/internal/resolver"
	"github.com/vexlang/vexc/internal/typecheck"
)

// Result is a finished compilation.
type Result struct {
	Executable *link.Executable
	Disasm     string
}

// Compile runs the full pipeline over root (the module's top-level BLOCK,
// as delivered by the parser collaborator) using arena a, under settings
// (the parsed vexc.yaml, or config.Default() when none was found).
func Compile(a *ast.Arena, root ast.NodeID, settings config.Settings) (*Result, *diag.Error) {
	if len(settings.OptionalPasses) > 0 {
		return nil, diag.Config("optionalPasses is not executed by this compiler; got %v, want an empty list", settings.OptionalPasses)
	}

	std := prelude.Install(a, settings.PreludeAliasOverrides)

	if err := resolver.ResolveIn(a, root, std.Name, std.Type); err != nil {
		return nil, err
	}
	if err := typecheck.Check(a, root, prelude.AliasKinds(settings.PreludeAliasOverrides)); err != nil {
		return nil, err
	}
	program, err := lower.Lower(a, root)
	if err != nil {
		return nil, err
	}
	bc, err := bytecode.Generate(a, program)
	if err != nil {
		return nil, err
	}
	exe, err := link.Link(bc)
	if err != nil {
		return nil, err
	}
	return &Result{Executable: exe, Disasm: disassembleExecutable(exe)}, nil
}

func disassembleExecutable(exe *link.Executable) string {
	return bytecode.Disassemble(&bytecode.Program{Chunks: exe.Chunks})
}
