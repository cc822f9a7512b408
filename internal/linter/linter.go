// Package linter reports problems in object definition files that ingest
// would otherwise skip or silently reshape.
package linter

import (
	"fmt"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/catalog"
	"github.com/agentic-research/monfs/internal/objdef"
)

type Severity uint8

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int // 1-based
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Severity, d.Message)
}

// Lint checks content block by block. Errors mark input that ingest drops;
// warnings mark input that is stored but will not show up as expected.
func Lint(content []byte) []Diagnostic {
	var diags []Diagnostic
	add := func(sev Severity, line int, format string, args ...any) {
		diags = append(diags, Diagnostic{Severity: sev, Line: line, Message: fmt.Sprintf(format, args...)})
	}

	for b := range objdef.Blocks(content) {
		for _, m := range b.Malformed {
			add(Error, m.Line, "line skipped, no value separator in %q", m.Text)
		}
		if b.Truncated {
			add(Error, b.Line, "define %s is never closed", b.Type)
			continue
		}
		if b.Type == "" {
			add(Error, b.Line, "define without an object type")
			continue
		}

		seen := make(map[string]bool, len(b.Fields))
		template := false
		for _, f := range b.Fields {
			switch {
			case f.Key == api.IDKey || f.Key == api.MetaKey:
				add(Warning, b.Line, "reserved key %q is dropped", f.Key)
			case seen[f.Key]:
				add(Warning, b.Line, "key %q repeated, last value wins", f.Key)
			}
			seen[f.Key] = true
			if f.Key == api.RegisterKey {
				template = f.Value == api.TemplateRegister
			}
		}
		if _, ok := catalog.DirFor(b.Type, template); !ok {
			kind := "object"
			if template {
				kind = "template"
			}
			add(Warning, b.Line, "no directory lists %s type %q", kind, b.Type)
		}
	}
	return diags
}

// HasErrors reports whether any diagnostic is an Error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
