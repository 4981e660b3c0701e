package policy

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrPolicyNotFound = errors.New("policy not found")

type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

func NewRegistry(policies ...Policy) *Registry {
	r := &Registry{policies: map[string]Policy{}}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Builtins returns a registry holding length, non_empty and no_secrets, plus
// audit when rec is not nil.
func Builtins(rec AuditRecorder) *Registry {
	r := NewRegistry(Length(), NonEmpty(), NoSecrets())
	if rec != nil {
		r.Register(Audit(rec))
	}
	return r
}

// Register stores p under its name, replacing any previous binding.
func (r *Registry) Register(p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Name] = p
}

// Select resolves names in the given order. Blank names are skipped.
func (r *Registry) Select(names []string) ([]Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Policy, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, ok := r.policies[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrPolicyNotFound, name)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type policyFile struct {
	Policies []struct {
		Name string `yaml:"name"`
		Expr string `yaml:"expr"`
	} `yaml:"policies"`
}

// LoadFile registers the expression policies declared in a YAML file:
//
//	policies:
//	  - name: short_summary
//	    expr: len(text) < 500
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	return r.Load(data)
}

// Load is LoadFile over bytes. Nothing is registered unless every policy
// compiles.
func (r *Registry) Load(data []byte) error {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse policy file: %w", err)
	}

	compiled := make([]Policy, 0, len(f.Policies))
	for _, def := range f.Policies {
		p, err := NewExprPolicy(def.Name, def.Expr)
		if err != nil {
			return err
		}
		compiled = append(compiled, p)
	}
	for _, p := range compiled {
		r.Register(p)
	}
	return nil
}
