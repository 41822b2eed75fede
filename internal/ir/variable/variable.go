// Package variable defines symbolic-IR variables: typed SSA locals,
// function arguments, and globals.
package variable

import (
	"fmt"

	"rvsdgc/internal/types"
)

// Linkage categorizes a variable's external visibility.
type Linkage int

const (
	LinkageLocal Linkage = iota
	LinkageExternal
	LinkageWeak
	LinkageInternal
	LinkageLinkOnce
	LinkageAppending
	LinkageCommon
)

func (l Linkage) String() string {
	switch l {
	case LinkageExternal:
		return "external"
	case LinkageWeak:
		return "weak"
	case LinkageInternal:
		return "internal"
	case LinkageLinkOnce:
		return "linkonce"
	case LinkageAppending:
		return "appending"
	case LinkageCommon:
		return "common"
	default:
		return "local"
	}
}

// Scope distinguishes the three variable origins: a CFG-local SSA
// value, a function argument, or a global (module-level) binding.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeArgument
	ScopeGlobal
)

// Variable is a typed, named binding. Variables are immutable handles;
// identity is by pointer, not by name (two locals named "%1" in different
// CFGs are distinct variables).
type Variable struct {
	typ     types.Type
	name    string
	scope   Scope
	linkage Linkage

	// ownerCFG is an opaque tag (the owning CFG's identity, typically
	// its pointer converted to uintptr by the cfg package) used only to
	// assert that variables are never reused across CFGs; the variable
	// package itself does not depend on cfg.
	ownerCFG uintptr
}

// Type returns the variable's declared type.
func (v *Variable) Type() types.Type { return v.typ }

// Name returns the variable's name (possibly auto-generated).
func (v *Variable) Name() string { return v.name }

// Scope reports whether this is a CFG-local value, a function argument, or
// a global.
func (v *Variable) Scope() Scope { return v.scope }

// Linkage reports the variable's linkage category. Locals and arguments
// are always LinkageLocal; only globals carry a meaningful linkage.
func (v *Variable) Linkage() Linkage { return v.linkage }

func (v *Variable) String() string {
	return fmt.Sprintf("%s: %s", v.name, v.typ)
}

// OwnerCFG returns the opaque owning-CFG tag set at creation (locals and
// arguments both carry it), 0 for globals, which are not CFG-bound.
func (v *Variable) OwnerCFG() uintptr { return v.ownerCFG }

// Factory mints fresh SSA-style locals scoped to a single CFG. One
// Factory exists per CFG; the cfg package owns it.
type Factory struct {
	ownerCFG uintptr
	counter  int
}

// NewFactory binds a fresh variable factory to the given owning-CFG tag.
func NewFactory(ownerCFG uintptr) *Factory {
	return &Factory{ownerCFG: ownerCFG}
}

// NewLocal mints a fresh CFG-local SSA variable of type t. If name is
// empty, an auto-generated name ("%N") is used.
func (f *Factory) NewLocal(t types.Type, name string) *Variable {
	if name == "" {
		name = fmt.Sprintf("%%%d", f.counter)
	}
	f.counter++
	return &Variable{typ: t, name: name, scope: ScopeLocal, linkage: LinkageLocal, ownerCFG: f.ownerCFG}
}

// NewArgument mints a function-argument variable of type t, bound to the
// same CFG as this factory.
func (f *Factory) NewArgument(t types.Type, name string) *Variable {
	if name == "" {
		name = fmt.Sprintf("%%arg%d", f.counter)
	}
	f.counter++
	return &Variable{typ: t, name: name, scope: ScopeArgument, linkage: LinkageLocal, ownerCFG: f.ownerCFG}
}

// NewGlobal mints a module-level variable, not bound to any CFG.
func NewGlobal(t types.Type, name string, linkage Linkage) *Variable {
	return &Variable{typ: t, name: name, scope: ScopeGlobal, linkage: linkage}
}
