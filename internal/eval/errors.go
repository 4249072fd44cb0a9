package eval

import (
	"errors"
	"fmt"
)

// UnknownMacro means a call name matched no node, module macro, or
// builtin.
type UnknownMacro struct {
	Name string
}

func (e *UnknownMacro) Error() string {
	return fmt.Sprintf("Unrecognized macro '%s'.", e.Name)
}

// ModuleNotIncluded means a dotted call named a module the story does
// not declare.
type ModuleNotIncluded struct {
	Module string
	Macro  string
	Story  string
}

func (e *ModuleNotIncluded) Error() string {
	return fmt.Sprintf(
		"Module '%s' for macro '%s' was not included by story '%s'.",
		e.Module, e.Macro, e.Story,
	)
}

// ModuleNotFound means the module resolver produced nothing for a
// declared module.
type ModuleNotFound struct {
	Module string
}

func (e *ModuleNotFound) Error() string {
	return fmt.Sprintf("Module '%s' could not be loaded.", e.Module)
}

// MacroNotInModule means the module loaded but lacks the named node.
type MacroNotInModule struct {
	Module string
	Macro  string
}

func (e *MacroNotInModule) Error() string {
	return fmt.Sprintf("Module '%s' doesn't define macro '%s'.", e.Module, e.Macro)
}

// ExpansionOverflow means macro expansion exceeded its budget, almost
// certainly an infinite recursion. It is the only error that aborts
// rendering instead of degrading to inline error text.
type ExpansionOverflow struct {
	Limit int
}

func (e *ExpansionOverflow) Error() string {
	return fmt.Sprintf("macro expansion exceeded %d calls; likely infinite recursion", e.Limit)
}

// fatal reports whether an error must abort rendering rather than
// degrade to inline <<Error: ...>> text.
func fatal(err error) bool {
	var overflow *ExpansionOverflow
	return errors.As(err, &overflow)
}
