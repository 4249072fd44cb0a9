// Package eval renders macro-bearing story text and evaluates the
// expression language against a telling's state.
package eval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solsword/firelight/internal/lex"
	"github.com/solsword/firelight/internal/ops"
	"github.com/solsword/firelight/internal/parse"
	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

// DefaultMaxExpansions bounds how many macro calls a single render may
// make before it is declared an infinite recursion.
const DefaultMaxExpansions = 1000

// Resolver loads a module story by name. Returning (nil, nil) means the
// module does not exist.
type Resolver func(name string) (*story.Story, error)

// Options configures an Evaluator.
type Options struct {
	Resolver      Resolver
	MaxExpansions int
	Logger        zerolog.Logger
}

// Evaluator expands macro calls in text and evaluates expressions. It is
// stateless between calls; public entry points clone the State they are
// handed and return the mutated copy.
type Evaluator struct {
	ops      *ops.Table
	resolver Resolver
	maxCalls int
	log      zerolog.Logger
}

// New builds an evaluator with the full operator table.
func New(opts Options) *Evaluator {
	maxCalls := opts.MaxExpansions
	if maxCalls <= 0 {
		maxCalls = DefaultMaxExpansions
	}
	return &Evaluator{
		ops:      ops.New(),
		resolver: opts.Resolver,
		maxCalls: maxCalls,
		log:      opts.Logger,
	}
}

// callStart matches the opening of a macro call in running text.
var callStart = regexp.MustCompile(`\(([a-zA-Z_][a-zA-Z_0-9.]*)~`)

// EvalText fully expands all macro calls in src against a copy of the
// given state and returns the rendered text with the updated state.
// Optional context arguments are bound as _context for the whole
// expansion, the same way a node call binds its raw arguments. The only
// possible error is an expansion overflow.
func (e *Evaluator) EvalText(src string, st *story.Story, state *State, context ...string) (string, *State, error) {
	out := state.Clone()
	if len(context) > 0 {
		ctx := value.NewList()
		for _, c := range context {
			ctx.Items = append(ctx.Items, value.Str(c))
		}
		out.Set(ContextKey, ctx)
	}
	budget := e.maxCalls
	text, err := e.expand(src, st, out, &budget)
	if err != nil {
		return "", state, err
	}
	return text, out, nil
}

// EvalExpr lexes, parses, and evaluates one expression against a copy of
// the given state.
func (e *Evaluator) EvalExpr(src string, st *story.Story, state *State) (value.Value, *State, error) {
	out := state.Clone()
	budget := e.maxCalls
	v, err := e.evalExprRaw(src, st, out, &budget)
	if err != nil {
		return nil, state, err
	}
	return v, out, nil
}

func (e *Evaluator) evalExprRaw(src string, st *story.Story, state *State, budget *int) (value.Value, error) {
	toks, err := lex.Lex(src)
	if err != nil {
		return nil, err
	}
	tree, err := parse.Parse(toks)
	if err != nil {
		return nil, err
	}
	return e.evalNode(tree, st, state, budget)
}

// expand scans src for macro calls, evaluates each one, and splices the
// (recursively expanded) result back in. Failed calls degrade to inline
// error text and an _errors_ entry; rendering continues past them.
func (e *Evaluator) expand(src string, st *story.Story, state *State, budget *int) (string, error) {
	var sb strings.Builder
	pos := 0
	for pos < len(src) {
		loc := callStart.FindStringSubmatchIndex(src[pos:])
		if loc == nil {
			sb.WriteString(src[pos:])
			break
		}
		open := pos + loc[0]
		end := lex.MatchingDelim(src, open, lex.Sigil, lex.Close)
		if end < 0 {
			name := src[pos+loc[2] : pos+loc[3]]
			e.log.Warn().
				Str("macro", name).
				Int("offset", open).
				Msg("unterminated macro call, treating sigil as literal text")
			sb.WriteString(src[pos : open+1])
			pos = open + 1
			continue
		}
		sb.WriteString(src[pos:open])
		v, err := e.evalMacro(src[open+1:end], st, state, budget)
		if err != nil {
			if fatal(err) {
				return "", err
			}
			msg := "Error: " + err.Error()
			state.AddError(msg)
			sb.WriteString("<<" + msg + ">>")
		} else {
			sub, err := e.expand(v.Text(), st, state, budget)
			if err != nil {
				return "", err
			}
			sb.WriteString(sub)
		}
		pos = end + 1
	}
	return sb.String(), nil
}

// evalMacro splits a raw call body into name and arguments and
// dispatches it.
func (e *Evaluator) evalMacro(body string, st *story.Story, state *State, budget *int) (value.Value, error) {
	pieces := lex.SplitArgs(body)
	name := strings.TrimSpace(pieces[0])
	return e.evalCall(name, pieces[1:], st, state, budget)
}

// evalCall resolves a macro name against, in order, the story's own
// nodes, a declared module, and the builtin table.
func (e *Evaluator) evalCall(name string, rawArgs []string, st *story.Story, state *State, budget *int) (value.Value, error) {
	*budget--
	if *budget < 0 {
		return nil, &ExpansionOverflow{Limit: e.maxCalls}
	}
	// A call with one blank argument, "(name~)", has no arguments.
	if len(rawArgs) == 1 && strings.TrimSpace(rawArgs[0]) == "" {
		rawArgs = nil
	}

	if st != nil {
		if node, ok := st.Get(name); ok {
			return e.callNode(node, st, state, rawArgs, budget)
		}
	}

	if strings.Count(name, ".") == 1 {
		dot := strings.IndexByte(name, '.')
		modName, inner := name[:dot], name[dot+1:]
		title := ""
		if st != nil {
			title = st.Title
		}
		if st == nil || !st.HasModule(modName) {
			return nil, &ModuleNotIncluded{Module: modName, Macro: name, Story: title}
		}
		if e.resolver == nil {
			return nil, &ModuleNotFound{Module: modName}
		}
		mod, err := e.resolver(modName)
		if err != nil {
			e.log.Error().Err(err).Str("module", modName).Msg("module resolution failed")
			return nil, &ModuleNotFound{Module: modName}
		}
		if mod == nil {
			return nil, &ModuleNotFound{Module: modName}
		}
		node, ok := mod.Get(inner)
		if !ok {
			return nil, &MacroNotInModule{Module: modName, Macro: inner}
		}
		// The module's node expands against the calling story, so any
		// macros it invokes resolve in the caller's namespace.
		return e.callNode(node, st, state, rawArgs, budget)
	}

	if fn := getBuiltin(name); fn != nil {
		return fn(&callEnv{ev: e, story: st, state: state, args: rawArgs, budget: budget})
	}

	return nil, &UnknownMacro{Name: name}
}

// callNode expands a story node as a macro. Node-local variables are
// snapshotted around the call so the callee cannot leak locals, and the
// raw arguments are bound as _context for the duration.
func (e *Evaluator) callNode(node *story.Node, st *story.Story, state *State, rawArgs []string, budget *int) (value.Value, error) {
	snap := state.LocalsSnapshot()

	ctx := value.NewList()
	for _, raw := range rawArgs {
		ctx.Items = append(ctx.Items, value.Str(strings.TrimSpace(raw)))
	}
	state.Set(ContextKey, ctx)

	text, err := e.expand(node.Content, st, state, budget)
	state.RestoreLocals(snap)
	if err != nil {
		return nil, err
	}
	return coerceText(text), nil
}

// coerceText turns a node expansion into a typed value when the whole
// result reads as a literal, and a plain string otherwise.
func coerceText(s string) value.Value {
	t := strings.TrimSpace(s)
	switch t {
	case "True":
		return value.Bool(true)
	case "False":
		return value.Bool(false)
	case "None":
		return value.None{}
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return value.Float(f)
	}
	return value.Str(s)
}

func (e *Evaluator) evalNode(n parse.Node, st *story.Story, state *State, budget *int) (value.Value, error) {
	switch t := n.(type) {
	case parse.Literal:
		return t.Val, nil

	case parse.Var:
		return state.Get(t.Name), nil

	case parse.Call:
		return e.evalCall(t.Name, t.Args, st, state, budget)

	case parse.ListLit:
		out := value.NewList()
		for _, el := range t.Elems {
			v, err := e.evalNode(el, st, state, budget)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, v)
		}
		return out, nil

	case parse.Unary:
		v, err := e.evalNode(t.X, st, state, budget)
		if err != nil {
			return nil, err
		}
		return e.ops.Apply(t.Op, v)

	case parse.Binary:
		switch t.Op {
		case "and", "or":
			return e.shortCircuit(t, st, state, budget)
		case "!":
			return e.mapOp(t, st, state, budget)
		}
		l, err := e.evalNode(t.L, st, state, budget)
		if err != nil {
			return nil, err
		}
		r, err := e.evalNode(t.R, st, state, budget)
		if err != nil {
			return nil, err
		}
		return e.ops.Apply(t.Op, l, r)

	case parse.Trinary:
		if t.Op == "|" {
			return e.reduceOp(t, st, state, budget)
		}
		a, err := e.evalNode(t.A, st, state, budget)
		if err != nil {
			return nil, err
		}
		b, err := e.evalNode(t.B, st, state, budget)
		if err != nil {
			return nil, err
		}
		c, err := e.evalNode(t.C, st, state, budget)
		if err != nil {
			return nil, err
		}
		return e.ops.Apply(t.Op, a, b, c)

	case parse.Index:
		x, err := e.evalNode(t.X, st, state, budget)
		if err != nil {
			return nil, err
		}
		idx, err := e.evalNode(t.Idx, st, state, budget)
		if err != nil {
			return nil, err
		}
		return e.ops.Apply("[", x, idx)

	case parse.OpRef:
		return nil, fmt.Errorf("operator '%s' used as a value", t.Op)
	}
	return nil, fmt.Errorf("unhandled expression node %T", n)
}

// shortCircuit evaluates 'and'/'or' without the dispatch table; the
// right side only runs when the left side leaves the outcome open, and
// the result is always a Bool.
func (e *Evaluator) shortCircuit(t parse.Binary, st *story.Story, state *State, budget *int) (value.Value, error) {
	l, err := e.evalNode(t.L, st, state, budget)
	if err != nil {
		return nil, err
	}
	if t.Op == "and" && !l.Truthy() {
		return value.Bool(false), nil
	}
	if t.Op == "or" && l.Truthy() {
		return value.Bool(true), nil
	}
	r, err := e.evalNode(t.R, st, state, budget)
	if err != nil {
		return nil, err
	}
	return value.Bool(r.Truthy()), nil
}

// mapOp applies a macro call once per element of a list or dict,
// binding '@' (whole collection), '#' (index or key), and '?' (element)
// transiently for each application.
func (e *Evaluator) mapOp(t parse.Binary, st *story.Story, state *State, budget *int) (value.Value, error) {
	coll, err := e.evalNode(t.L, st, state, budget)
	if err != nil {
		return nil, err
	}
	call, ok := t.R.(parse.Call)
	if !ok {
		return nil, fmt.Errorf("map operand must be a macro call")
	}

	apply := func(key, elem value.Value) (value.Value, error) {
		restore := bindTransients(state, coll, key, elem)
		defer restore()
		return e.evalCall(call.Name, call.Args, st, state, budget)
	}

	switch c := coll.(type) {
	case *value.List:
		out := value.NewList()
		for i, item := range c.Items {
			v, err := apply(value.Int(i), item)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, v)
		}
		return out, nil
	case *value.Dict:
		out := value.NewDict()
		for _, k := range c.Keys() {
			item, _ := c.Get(k)
			v, err := apply(value.Str(k), item)
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot map over %s values", coll.Kind())
}

// bindTransients sets the map/reduce body variables and returns a
// restore function that puts back (or removes) whatever was there.
func bindTransients(state *State, whole, key, elem value.Value) func() {
	names := []string{"@", "#", "?"}
	vals := []value.Value{whole, key, elem}
	prev := make([]value.Value, len(names))
	had := make([]bool, len(names))
	for i, name := range names {
		had[i] = state.Has(name)
		if had[i] {
			prev[i] = state.Get(name)
		}
		state.Set(name, vals[i])
	}
	return func() {
		for i, name := range names {
			if had[i] {
				state.Set(name, prev[i])
			} else {
				state.Delete(name)
			}
		}
	}
}

// reduceOp folds a list with a bare operator and a seed value. An empty
// collection short-circuits to a zero chosen by the seed's kind, without
// invoking the operator at all.
func (e *Evaluator) reduceOp(t parse.Trinary, st *story.Story, state *State, budget *int) (value.Value, error) {
	coll, err := e.evalNode(t.A, st, state, budget)
	if err != nil {
		return nil, err
	}
	opRef, ok := t.B.(parse.OpRef)
	if !ok {
		return nil, fmt.Errorf("reduce needs an operator operand")
	}
	seed, err := e.evalNode(t.C, st, state, budget)
	if err != nil {
		return nil, err
	}
	list, ok := coll.(*value.List)
	if !ok {
		return nil, fmt.Errorf("cannot reduce %s values", coll.Kind())
	}
	if len(list.Items) == 0 {
		return reduceZero(seed), nil
	}

	result := list.Items[0]
	for _, item := range list.Items[1:] {
		result, err = e.ops.Apply(opRef.Op, result, seed)
		if err != nil {
			return nil, err
		}
		result, err = e.ops.Apply(opRef.Op, result, item)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func reduceZero(seed value.Value) value.Value {
	switch seed.Kind() {
	case value.KindInt:
		return value.Int(0)
	case value.KindFloat:
		return value.Float(0)
	case value.KindString:
		return value.Str("")
	case value.KindList:
		return value.NewList()
	case value.KindDict:
		return value.NewDict()
	}
	return value.None{}
}
