// Package eval compiles the restricted boolean expressions used by
// user-defined policies.
package eval

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Program is a compiled condition bound to a fixed set of variable names.
type Program struct {
	source  string
	program *vm.Program
}

// Compile validates cond and compiles it against the given variable names.
// An empty condition compiles to a program that always returns true.
func Compile(cond string, names ...string) (*Program, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return &Program{}, nil
	}

	if err := Validate(cond, names...); err != nil {
		return nil, err
	}

	// Names were checked by Validate, so no Env is bound.
	opts := []expr.Option{
		expr.AsBool(),
		expr.DisableAllBuiltins(),
	}
	for _, b := range AllowedBuiltins {
		opts = append(opts, expr.EnableBuiltin(b))
	}

	program, err := expr.Compile(cond, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return &Program{source: cond, program: program}, nil
}

func (p *Program) String() string { return p.source }

func (p *Program) Eval(vars map[string]any) (bool, error) {
	if p == nil || p.program == nil {
		return true, nil
	}

	out, err := expr.Run(p.program, vars)
	if err != nil {
		return false, err
	}

	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("cond must evaluate to bool (got %T)", out)
	}
	return b, nil
}
