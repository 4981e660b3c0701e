package policy

import (
	"fmt"
	"strings"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/policy/eval"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// ExprVars are the names an expression policy can read: the step output as
// data, its role, the output serialized as text, and the run options.
var ExprVars = []string{"data", "role", "text", "options"}

// NewExprPolicy compiles expression once and returns a predicate policy,
// e.g. `len(text) < 2000 && role != "draft"`.
func NewExprPolicy(name, expression string) (Policy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Policy{}, fmt.Errorf("%w: policy name is empty", eval.ErrInvalidExpression)
	}
	if strings.TrimSpace(expression) == "" {
		return Policy{}, fmt.Errorf("%w: policy %q has an empty expression", eval.ErrInvalidExpression, name)
	}

	program, err := eval.Compile(expression, ExprVars...)
	if err != nil {
		return Policy{}, fmt.Errorf("policy %q: %w", name, err)
	}

	return Policy{
		Name: name,
		Check: func(data any, role string, opts provider.Options) (bool, error) {
			text, err := serialize(data)
			if err != nil {
				return false, err
			}
			options := map[string]any(opts)
			if options == nil {
				options = map[string]any{}
			}
			return program.Eval(map[string]any{
				"data":    data,
				"role":    role,
				"text":    text,
				"options": options,
			})
		},
	}, nil
}
