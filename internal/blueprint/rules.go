package blueprint

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is what a rule sees of a namespace
type Env struct {
	Name       string   `expr:"name"`
	Protocol   string   `expr:"protocol"`
	Shards     []string `expr:"shards"`
	Replicas   int      `expr:"replicas"`
	PrimaryKey string   `expr:"primary_key"`
	Durability string   `expr:"durability"`
}

// Rule is a boolean expression every live namespace has to satisfy,
// e.g. `replicas >= 1 || durability == "hard"`
type Rule struct {
	Source  string
	program *vm.Program
}

// CompileRules compiles rule sources
func CompileRules(sources []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(sources))
	for _, src := range sources {
		program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("invalid rule %q: %w", src, err)
		}
		rules = append(rules, Rule{Source: src, program: program})
	}
	return rules, nil
}

// Eval reports whether env satisfies the rule
func (r Rule) Eval(env Env) (bool, error) {
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", r.Source, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
