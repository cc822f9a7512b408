// Package query selects stored records with JSONPath expressions evaluated
// over their document form, e.g.
//
//	$[?(@._monfs.type == 'host')].host_name
package query

import (
	"context"
	"fmt"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/catalog"
	"github.com/agentic-research/monfs/internal/store"
	"github.com/agentic-research/monfs/internal/vfs"
)

// Match is one value selected by an expression. Path is set when the value
// is a whole record document that the filesystem exposes.
type Match struct {
	Path  string `json:"path,omitempty"`
	Value any    `json:"value"`
}

// Compile parses a JSONPath expression.
func Compile(expr string) (jp.Expr, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return x, nil
}

// Records evaluates expr against the array of all record documents in s.
func Records(ctx context.Context, s store.Store, expr string) ([]Match, error) {
	x, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	recs, err := s.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	docs := make([]any, len(recs))
	for i, rec := range recs {
		docs[i] = rec.Document()
	}

	results := x.Get(docs)
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Value: r, Path: pathOf(r)}
	}
	return matches, nil
}

// pathOf returns the filesystem path of a record document, or "" for
// values that are not one.
func pathOf(v any) string {
	doc, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	rec, err := api.FromDocument(doc)
	if err != nil || rec.ID == "" {
		return ""
	}
	dir, ok := catalog.DirFor(rec.Meta.Type, rec.IsTemplate())
	if !ok {
		return ""
	}
	return vfs.EntryPath(dir, rec)
}

// JSON renders matches as indented JSON with sorted keys.
func JSON(matches []Match) string {
	out := make([]any, len(matches))
	for i, m := range matches {
		entry := map[string]any{"value": m.Value}
		if m.Path != "" {
			entry["path"] = m.Path
		}
		out[i] = entry
	}
	return oj.JSON(out, &ojg.Options{Indent: 2, Sort: true})
}
