package eval

import (
	"fmt"
	"strings"

	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

// callEnv carries everything a builtin needs. Builtins receive raw,
// unevaluated argument strings and decide for themselves whether each
// one is text, an expression, or a bare name.
type callEnv struct {
	ev     *Evaluator
	story  *story.Story
	state  *State
	args   []string
	budget *int
}

func (c *callEnv) expr(raw string) (value.Value, error) {
	return c.ev.evalExprRaw(raw, c.story, c.state, c.budget)
}

// text expands a raw argument as text. The padding around the argument
// delimiter is not part of the argument.
func (c *callEnv) text(raw string) (string, error) {
	return c.ev.expand(strings.TrimSpace(raw), c.story, c.state, c.budget)
}

type builtin func(*callEnv) (value.Value, error)

// getBuiltin maps a macro name to its builtin implementation, or nil.
// Story nodes shadow builtins of the same name; the evaluator checks
// nodes first.
func getBuiltin(name string) builtin {
	switch name {
	case "eval":
		return builtinEval
	case "cat", "text":
		return builtinCat
	case "lookup":
		return builtinLookup
	case "context":
		return builtinContext
	case "if":
		return builtinIf
	case "select":
		return builtinSelect
	case "once":
		return builtinOnce
	case "again":
		return builtinAgain
	case "set":
		return builtinSet
	case "add":
		return builtinAdd
	}
	return nil
}

// builtinEval evaluates each argument as an expression, returning the
// single value or a list of them.
func builtinEval(c *callEnv) (value.Value, error) {
	if len(c.args) == 0 {
		return value.None{}, nil
	}
	if len(c.args) == 1 {
		return c.expr(c.args[0])
	}
	out := value.NewList()
	for _, raw := range c.args {
		v, err := c.expr(raw)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}

// builtinCat expands each argument as text and concatenates the results.
func builtinCat(c *callEnv) (value.Value, error) {
	var sb strings.Builder
	for _, raw := range c.args {
		t, err := c.text(raw)
		if err != nil {
			return nil, err
		}
		sb.WriteString(t)
	}
	return value.Str(sb.String()), nil
}

// builtinLookup indexes an object by key. Both arguments are
// expressions; a missing key degrades to inline error text upstream.
func builtinLookup(c *callEnv) (value.Value, error) {
	if len(c.args) != 2 {
		return nil, fmt.Errorf("lookup needs an object and a key, got %d arguments", len(c.args))
	}
	obj, err := c.expr(c.args[0])
	if err != nil {
		return nil, err
	}
	key, err := c.expr(c.args[1])
	if err != nil {
		return nil, err
	}
	return c.ev.ops.Apply("[", obj, key)
}

// builtinContext returns the Nth context value, counting from 1.
// Out-of-range indices yield None rather than an error.
func builtinContext(c *callEnv) (value.Value, error) {
	if len(c.args) != 1 {
		return nil, fmt.Errorf("context needs one argument, got %d", len(c.args))
	}
	nv, err := c.expr(c.args[0])
	if err != nil {
		return nil, err
	}
	n, ok := nv.(value.Int)
	if !ok {
		return nil, fmt.Errorf("context index must be an integer, got %s", nv.Kind())
	}
	ctx := c.state.Context()
	if n < 1 || int(n) > len(ctx.Items) {
		return value.None{}, nil
	}
	return ctx.Items[n-1], nil
}

// branch finds the first truthy condition among (condition, result)
// pairs and returns its raw result. The literal word "else" is always
// truthy. A lone trailing argument acts as a final else result.
func branch(c *callEnv) (string, bool, error) {
	i := 0
	for i+1 < len(c.args) {
		cond := strings.TrimSpace(c.args[i])
		if cond == "else" {
			return c.args[i+1], true, nil
		}
		v, err := c.expr(cond)
		if err != nil {
			return "", false, err
		}
		if v.Truthy() {
			return c.args[i+1], true, nil
		}
		i += 2
	}
	if i < len(c.args) {
		return c.args[i], true, nil
	}
	return "", false, nil
}

// builtinIf picks the first matching branch and evaluates only that
// result, as an expression.
func builtinIf(c *callEnv) (value.Value, error) {
	raw, ok, err := branch(c)
	if err != nil || !ok {
		return value.None{}, err
	}
	return c.expr(raw)
}

// builtinSelect is if for text: the chosen result expands as text.
func builtinSelect(c *callEnv) (value.Value, error) {
	raw, ok, err := branch(c)
	if err != nil || !ok {
		return value.Str(""), err
	}
	t, err := c.text(raw)
	if err != nil {
		return nil, err
	}
	return value.Str(t), nil
}

// builtinOnce expands its argument only on the first visit to the
// containing node; otherwise the argument is never evaluated.
func builtinOnce(c *callEnv) (value.Value, error) {
	if !c.state.Get("_first").Truthy() {
		return value.Str(""), nil
	}
	return builtinCat(c)
}

// builtinAgain expands its argument only on return visits.
func builtinAgain(c *callEnv) (value.Value, error) {
	if c.state.Get("_first").Truthy() {
		return value.Str(""), nil
	}
	return builtinCat(c)
}

// builtinSet assigns a story variable and returns the new value.
func builtinSet(c *callEnv) (value.Value, error) {
	if len(c.args) != 2 {
		return nil, fmt.Errorf("set needs a variable and an expression, got %d arguments", len(c.args))
	}
	name := strings.TrimSpace(c.args[0])
	v, err := c.expr(c.args[1])
	if err != nil {
		return nil, err
	}
	c.state.Set(name, v)
	return v, nil
}

// builtinAdd increments a story variable by the value of its second
// argument, treating an unset variable as a plain set.
func builtinAdd(c *callEnv) (value.Value, error) {
	if len(c.args) != 2 {
		return nil, fmt.Errorf("add needs a variable and an expression, got %d arguments", len(c.args))
	}
	name := strings.TrimSpace(c.args[0])
	v, err := c.expr(c.args[1])
	if err != nil {
		return nil, err
	}
	if !c.state.Has(name) {
		c.state.Set(name, v)
		return v, nil
	}
	sum, err := c.ev.ops.Apply("+", c.state.Get(name), v)
	if err != nil {
		return nil, err
	}
	c.state.Set(name, sum)
	return sum, nil
}
