package eval

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

var ErrInvalidExpression = errors.New("invalid expression")

// AllowedBuiltins are the only functions an expression may call.
var AllowedBuiltins = []string{
	"len", "lower", "upper", "trim",
	"hasPrefix", "hasSuffix",
	"keys", "values", "type",
	"all", "any", "none", "one", "filter", "count",
}

// MissingVariablesError lists identifiers that are neither a declared
// variable nor an allowed builtin.
type MissingVariablesError struct {
	Vars []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("%v: unknown variables [%s]", ErrInvalidExpression, strings.Join(e.Vars, ", "))
}

func (e *MissingVariablesError) Unwrap() error { return ErrInvalidExpression }

// Validate parses cond and rejects calls outside AllowedBuiltins, variable
// declarations, and identifiers not listed in names.
func Validate(cond string, names ...string) error {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return nil
	}

	tree, err := parser.Parse(cond)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	v := &validator{names: names, unknown: map[string]struct{}{}}
	ast.Walk(&tree.Node, v)

	if v.err != nil {
		return v.err
	}
	if len(v.unknown) > 0 {
		vars := make([]string, 0, len(v.unknown))
		for k := range v.unknown {
			vars = append(vars, k)
		}
		sort.Strings(vars)
		return &MissingVariablesError{Vars: vars}
	}
	return nil
}

type validator struct {
	names   []string
	unknown map[string]struct{}
	err     error
}

func (v *validator) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}
	switch n := (*node).(type) {
	case *ast.BuiltinNode:
		if !slices.Contains(AllowedBuiltins, n.Name) {
			v.err = fmt.Errorf("%w: function %q is not allowed", ErrInvalidExpression, n.Name)
		}
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			v.err = fmt.Errorf("%w: method calls are not allowed", ErrInvalidExpression)
			return
		}
		if !slices.Contains(AllowedBuiltins, id.Value) {
			v.err = fmt.Errorf("%w: function calls are not allowed (found %q(...))", ErrInvalidExpression, id.Value)
		}
	case *ast.VariableDeclaratorNode:
		v.err = fmt.Errorf("%w: variable declarations are not allowed", ErrInvalidExpression)
	case *ast.IdentifierNode:
		if !slices.Contains(v.names, n.Value) && !slices.Contains(AllowedBuiltins, n.Value) {
			v.unknown[n.Value] = struct{}{}
		}
	}
}
