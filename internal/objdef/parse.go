// Package objdef extracts object definitions from monitoring configuration
// text of the form
//
//	define host{
//	    host_name   web1
//	    address     10.0.0.1
//	}
//
// Blocks are not nested: a define line inside a body is reported as a
// malformed line rather than opening a new block.
package objdef

import (
	"bytes"
	"fmt"
	"iter"
	"strings"
)

// Field is one directive line of a block.
type Field struct {
	Key   string
	Value string
}

// MalformedLine is a body line that could not be split into key and value.
type MalformedLine struct {
	Line int // 1-based line number in the source
	Text string
}

func (m MalformedLine) Error() string {
	return fmt.Sprintf("line %d: no value separator in %q", m.Line, m.Text)
}

// Block is one define unit. Fields keep source order and may repeat keys.
type Block struct {
	Type      string
	Fields    []Field
	Line      int
	Malformed []MalformedLine
	// Truncated is set when the source ended before the closing brace.
	Truncated bool
}

// Blocks returns the definitions in src in source order. Text outside
// blocks, blank lines and comment lines (# or ;) are ignored. Lines without
// a key/value separator are skipped and recorded in Block.Malformed.
func Blocks(src []byte) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		var (
			cur    *Block
			lineNo int
		)
		for len(src) > 0 {
			var raw []byte
			if i := bytes.IndexByte(src, '\n'); i >= 0 {
				raw, src = src[:i], src[i+1:]
			} else {
				raw, src = src, nil
			}
			lineNo++
			// body keeps trailing whitespace: "key " is a key with an empty value.
			body := strings.TrimLeft(strings.TrimRight(string(raw), "\r"), " \t")
			line := strings.TrimSpace(body)

			if cur == nil {
				typ, rest, ok := defineLine(line)
				if !ok {
					continue
				}
				cur = &Block{Type: typ, Line: lineNo}
				if rest == "" {
					continue
				}
				closed := false
				if strings.HasSuffix(rest, "}") {
					rest = strings.TrimSpace(strings.TrimSuffix(rest, "}"))
					closed = true
				}
				if rest != "" {
					cur.addLine(lineNo, rest)
				}
				if closed {
					if !yield(*cur) {
						return
					}
					cur = nil
				}
				continue
			}

			if line == "}" {
				if !yield(*cur) {
					return
				}
				cur = nil
				continue
			}
			cur.addLine(lineNo, body)
		}
		if cur != nil {
			cur.Truncated = true
			yield(*cur)
		}
	}
}

func (b *Block) addLine(lineNo int, body string) {
	line := strings.TrimSpace(body)
	if line == "" || line[0] == '#' || line[0] == ';' {
		return
	}
	if _, _, nested := defineLine(line); nested {
		b.Malformed = append(b.Malformed, MalformedLine{Line: lineNo, Text: line})
		return
	}
	key, value, ok := SplitField(body)
	if !ok {
		b.Malformed = append(b.Malformed, MalformedLine{Line: lineNo, Text: line})
		return
	}
	b.Fields = append(b.Fields, Field{Key: key, Value: value})
}

// SplitField splits a body line, leading whitespace already removed, on its
// first run of whitespace. A key followed only by whitespace has an empty
// value; a key with nothing after it is not a field.
func SplitField(line string) (key, value string, ok bool) {
	i := strings.IndexAny(line, " \t")
	if i <= 0 {
		return "", "", false
	}
	key = line[:i]
	value = strings.TrimSpace(line[i:])
	return key, value, true
}

// defineLine recognizes "define <type>{" and "define <type> {". rest is
// whatever follows the opening brace on the same line.
func defineLine(line string) (typ, rest string, ok bool) {
	after, found := strings.CutPrefix(line, "define")
	if !found || after == "" || (after[0] != ' ' && after[0] != '\t') {
		return "", "", false
	}
	typ, rest, found = strings.Cut(after, "{")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(typ), strings.TrimSpace(rest), true
}
