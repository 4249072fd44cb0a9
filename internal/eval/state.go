package eval

import (
	"strings"

	"github.com/solsword/firelight/internal/value"
)

// Reserved state keys.
const (
	ContextKey = "_context"
	ErrorsKey  = "_errors_"
)

// State is the mutable variable environment of one telling. Keys keep
// insertion order so renders are deterministic. Naming decides scope:
// names starting with '_' but not ending with it are node-local, names
// wrapped in underscores on both sides are system variables, everything
// else is story-global.
type State struct {
	vars *value.Dict
}

// NewState wraps an initial variable dict. A nil dict makes an empty
// state.
func NewState(vars *value.Dict) *State {
	if vars == nil {
		vars = value.NewDict()
	}
	return &State{vars: vars}
}

// Vars exposes the underlying dict, for persistence.
func (s *State) Vars() *value.Dict {
	return s.vars
}

// Clone deep-copies the state.
func (s *State) Clone() *State {
	return &State{vars: s.vars.Clone()}
}

// Get returns the named variable, or None when unset.
func (s *State) Get(name string) value.Value {
	if v, ok := s.vars.Get(name); ok {
		return v
	}
	return value.None{}
}

// Has reports whether the variable is set.
func (s *State) Has(name string) bool {
	_, ok := s.vars.Get(name)
	return ok
}

// Set assigns a variable.
func (s *State) Set(name string, v value.Value) {
	s.vars.Set(name, v)
}

// Delete removes a variable.
func (s *State) Delete(name string) {
	s.vars.Delete(name)
}

// IsLocal reports whether a name is node-local.
func IsLocal(name string) bool {
	return strings.HasPrefix(name, "_") && !strings.HasSuffix(name, "_")
}

// LocalsSnapshot captures the current node-local variables, including
// which ones exist at all.
func (s *State) LocalsSnapshot() map[string]value.Value {
	snap := make(map[string]value.Value)
	for _, k := range s.vars.Keys() {
		if IsLocal(k) {
			v, _ := s.vars.Get(k)
			snap[k] = value.Clone(v)
		}
	}
	return snap
}

// RestoreLocals rolls node-local variables back to a snapshot. Locals
// created since the snapshot are removed, so a called node cannot leak
// new locals into its caller.
func (s *State) RestoreLocals(snap map[string]value.Value) {
	for _, k := range s.vars.Keys() {
		if IsLocal(k) {
			if _, kept := snap[k]; !kept {
				s.vars.Delete(k)
			}
		}
	}
	for k, v := range snap {
		s.vars.Set(k, v)
	}
}

// AddError appends a message to the _errors_ system list.
func (s *State) AddError(msg string) {
	list, _ := s.vars.Get(ErrorsKey)
	l, ok := list.(*value.List)
	if !ok {
		l = value.NewList()
	}
	l.Items = append(l.Items, value.Str(msg))
	s.vars.Set(ErrorsKey, l)
}

// Errors returns the accumulated error messages.
func (s *State) Errors() []string {
	list, _ := s.vars.Get(ErrorsKey)
	l, ok := list.(*value.List)
	if !ok {
		return nil
	}
	msgs := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		msgs = append(msgs, item.Text())
	}
	return msgs
}

// Context returns the _context binding as a list, or an empty list.
func (s *State) Context() *value.List {
	v, _ := s.vars.Get(ContextKey)
	if l, ok := v.(*value.List); ok {
		return l
	}
	return value.NewList()
}
