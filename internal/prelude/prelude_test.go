package prelude

import (
	"testing"

	"github.com/vexlang/vexc/internal/ast"
	"github.com/vexlang/vexc/internal/types"
)

func TestInstallRegistersPrimitiveAliases(t *testing.T) {
	a := ast.NewArena()
	scopes := Install(a, nil)
	typeScope := a.TypeScope(scopes.Type)

	for _, name := range []string{"i8", "ui8", "i16", "ui16", "i32", "ui32", "i64", "ui64", "str", "bool"} {
		if _, _, ok := typeScope.ResolveType(name, a); !ok {
			t.Errorf("primitive alias %q not registered in the root type scope", name)
		}
	}
}

func TestInstallRegistersStdIOModule(t *testing.T) {
	a := ast.NewArena()
	scopes := Install(a, nil)
	nameScope := a.NameScope(scopes.Name)
	typeScope := a.TypeScope(scopes.Type)

	for _, fn := range []string{"print", "println"} {
		if _, ok := nameScope.ResolveVariableModule([]string{"std", "io"}, fn, a); !ok {
			t.Errorf("std.io.%s not resolvable as a variable", fn)
		}
		elaborated, ok := typeScope.ResolveElaboratedModule([]string{"std", "io"}, fn, a)
		if !ok {
			t.Fatalf("std.io.%s has no elaborated type", fn)
		}
		if elaborated.Kind != types.KindFunction {
			t.Errorf("std.io.%s has kind %v, want function", fn, elaborated.Kind)
		}
		if elaborated.From.Kind != types.KindUI64 || elaborated.To.Kind != types.KindVoid {
			t.Errorf("std.io.%s has type %s, want (ui64) -> void", fn, elaborated.ToString())
		}
	}
}

func TestInstallHonorsAliasOverride(t *testing.T) {
	a := ast.NewArena()
	overrides := map[string]string{"int": "i32"}
	scopes := Install(a, overrides)
	typeScope := a.TypeScope(scopes.Type)

	if _, _, ok := typeScope.ResolveType("int", a); !ok {
		t.Fatal("overridden alias \"int\" not registered in the root type scope")
	}
	if _, _, ok := typeScope.ResolveType("i32", a); ok {
		t.Fatal("canonical spelling \"i32\" should not also be registered once overridden")
	}

	kinds := AliasKinds(overrides)
	if kinds["int"] != types.KindI32 {
		t.Errorf("AliasKinds()[\"int\"] = %v, want KindI32", kinds["int"])
	}
	if _, ok := kinds["i32"]; ok {
		t.Error("AliasKinds() should not also carry the canonical spelling once overridden")
	}
}

func TestInstallLeavesUnoverriddenAliasesAtCanonicalSpelling(t *testing.T) {
	a := ast.NewArena()
	overrides := map[string]string{"int": "i32"}
	scopes := Install(a, overrides)
	typeScope := a.TypeScope(scopes.Type)

	for _, name := range []string{"ui8", "i16", "str", "bool"} {
		if _, _, ok := typeScope.ResolveType(name, a); !ok {
			t.Errorf("unoverridden alias %q not registered at its canonical spelling", name)
		}
	}
}

func TestNativeIOCallNamesExactlyPrintAndPrintln(t *testing.T) {
	want := map[string]bool{"print": true, "println": true}
	if len(NativeIOCall) != len(want) {
		t.Fatalf("NativeIOCall has %d entries, want %d", len(NativeIOCall), len(want))
	}
	for name := range want {
		if !NativeIOCall[name] {
			t.Errorf("NativeIOCall missing %q", name)
		}
	}
}
