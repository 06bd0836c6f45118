package config

const SourceFileExt = ".vex"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".vex"}

// IsTestMode indicates if the program is running in test mode. Nothing in
// this repository sets it, so it stays false.
var IsTestMode = false

// Standard prelude names. internal/prelude and the bytecode generator spell
// these names as literals and do not read these constants, and
// Settings.PreludeAliasOverrides does not rename them (it renames primitive
// type aliases only).
const (
	StdModuleName   = "std"
	StdIOModuleName = "io"
	PrintFuncName   = "print"
	PrintlnFuncName = "println"
)
