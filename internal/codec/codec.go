// Package codec converts between parsed object definitions and store
// records. Ingest and the filesystem read path share it, so Decode must
// stay parseable by objdef and stable across runs.
package codec

import (
	"bytes"
	"strings"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/objdef"
)

// FieldWidth is the column the field name is padded to in decoded text.
const FieldWidth = 50

const indent = "    "

// Encode turns a block into an enabled record. When a key repeats, the last
// value wins and the key keeps its first position. Reserved document keys
// are dropped.
func Encode(b objdef.Block) *api.Record {
	rec := api.NewRecord(b.Type)
	for _, f := range b.Fields {
		rec.Set(f.Key, f.Value)
	}
	return rec
}

// Decode renders a record as a define block with its fields sorted by name:
//
//	define host{
//	    host_name<padding to FieldWidth> test1
//	}
//
// Names longer than FieldWidth are written in full.
func Decode(rec *api.Record) []byte {
	var buf bytes.Buffer
	buf.WriteString("define ")
	buf.WriteString(rec.Meta.Type)
	buf.WriteString("{\n")
	for _, key := range rec.SortedKeys() {
		value, _ := rec.Get(key)
		buf.WriteString(indent)
		buf.WriteString(key)
		if pad := FieldWidth - len(key); pad > 0 {
			buf.WriteString(strings.Repeat(" ", pad))
		}
		buf.WriteByte(' ')
		buf.WriteString(value)
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

// Size returns len(Decode(rec)) without building the text.
func Size(rec *api.Record) int64 {
	n := len("define ") + len(rec.Meta.Type) + len("{\n") + len("}\n")
	for _, key := range rec.Keys() {
		value, _ := rec.Get(key)
		width := len(key)
		if width < FieldWidth {
			width = FieldWidth
		}
		n += len(indent) + width + 1 + len(value) + 1
	}
	return int64(n)
}
