// Package lint runs design-rule checks, written in rego, over facts
// extracted from a project.
package lint

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/open-policy-agent/opa/rego"
)

//go:embed rules.rego
var rulesSource string

// Severities, most severe first.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

var severityRank = map[string]int{SeverityError: 0, SeverityWarning: 1, SeverityInfo: 2}

// Rules lists the rule names known to the engine.
var Rules = []string{
	"multi_driver",
	"register_outside_aperture",
	"shadowed_target",
	"unconnected_input",
	"zero_aperture",
}

// Violation is one rule finding.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Severity, v.Rule, v.Message)
}

// Engine holds the prepared rule query.
type Engine struct {
	query rego.PreparedEvalQuery
}

// New compiles the embedded rules.
func New(ctx context.Context) (*Engine, error) {
	q, err := rego.New(
		rego.Module("rules.rego", rulesSource),
		rego.Query("data.designformat.lint.violations"),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("lint: prepare rules: %w", err)
	}
	return &Engine{query: q}, nil
}

func toInput(f *Facts) (map[string]any, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var input map[string]any
	if err := dec.Decode(&input); err != nil {
		return nil, err
	}
	return input, nil
}

// Run evaluates the rules over facts. rules limits the result to the named
// rules; empty means all. Violations are sorted by severity, rule and
// subject.
func (e *Engine) Run(ctx context.Context, facts *Facts, rules []string) ([]Violation, error) {
	input, err := toInput(facts)
	if err != nil {
		return nil, fmt.Errorf("lint: encode facts: %w", err)
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("lint: evaluate: %w", err)
	}
	enabled := make(map[string]bool, len(rules))
	for _, r := range rules {
		enabled[r] = true
	}
	var out []Violation
	for _, r := range rs {
		for _, expr := range r.Expressions {
			items, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, item := range items {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				v := Violation{
					Rule:     str(m, "rule"),
					Severity: str(m, "severity"),
					Subject:  str(m, "subject"),
					Message:  str(m, "message"),
				}
				if len(enabled) > 0 && !enabled[v.Rule] {
					continue
				}
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] < severityRank[b.Severity]
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Subject < b.Subject
	})
	return out, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Run builds an engine and evaluates it once.
func Run(ctx context.Context, facts *Facts, rules []string) ([]Violation, error) {
	e, err := New(ctx)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, facts, rules)
}

// Fails reports whether any violation is at least as severe as threshold.
// The threshold "never" never fails.
func Fails(vs []Violation, threshold string) bool {
	limit, ok := severityRank[threshold]
	if !ok {
		return false
	}
	for _, v := range vs {
		if r, ok := severityRank[v.Severity]; ok && r <= limit {
			return true
		}
	}
	return false
}
