// Command vexc drives the compiler pipeline over a pre-parsed extended AST.
// Lexing and parsing are external collaborators (see internal/astjson); this
// binary picks up their JSON output, resolves/typechecks/lowers/generates/
// links it, and writes the linked bytecode's disassembly.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/vexlang/vexc/internal/astjson"
	"github.com/vexlang/vexc/internal/compiler"
	"github.com/vexlang/vexc/internal/config"
	"github.com/vexlang/vexc/internal/diag"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <ast.json>\n", os.Args[0])
		os.Exit(1)
	}

	settings, settingsErr := loadSettings("vexc.yaml")
	if settingsErr != nil {
		diag.NewPrinter(os.Stderr).Print(settingsErr)
		os.Exit(1)
	}

	if err := run(os.Args[1], settings); err != nil {
		diag.NewPrinter(os.Stderr).Print(err)
		os.Exit(1)
	}
}

// loadSettings reads vexc.yaml if present. A missing file is the ordinary
// no-config case and falls back to config.Default() silently; a file that
// exists but fails to parse is reported rather than dropped, since that
// failure means every setting the user wrote — wired or not — was ignored.
func loadSettings(path string) (config.Settings, *diag.Error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Settings{}, diag.Config("%s", err)
}

func run(path string, settings config.Settings) *diag.Error {
	f, openErr := os.Open(path)
	if openErr != nil {
		return diag.Resolution("cannot open %s: %s", path, openErr)
	}
	defer f.Close()

	a, root, decodeErr := astjson.Decode(f)
	if decodeErr != nil {
		return diag.Resolution("%s", decodeErr)
	}

	result, err := compiler.Compile(a, root, settings)
	if err != nil {
		return err
	}

	size := 0
	for _, chunk := range result.Executable.Chunks {
		size += len(chunk.Code)
	}
	fmt.Fprintf(os.Stderr, "linked %d chunks, %s of bytecode\n", len(result.Executable.Chunks), humanize.Bytes(uint64(size)))

	if settings.EmitDisassembly {
		fmt.Print(result.Disasm)
	}
	return nil
}
