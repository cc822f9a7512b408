package api

import (
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved document keys. Neither may be used as a field name.
const (
	IDKey   = "_id"
	MetaKey = "_monfs"
)

// RegisterKey is the field that marks a definition as a template when it
// holds TemplateRegister.
const (
	RegisterKey      = "register"
	TemplateRegister = "0"
)

// Meta is the bookkeeping block stored under MetaKey.
type Meta struct {
	// Type is the object-type tag, e.g. "host" or "service". Never empty.
	Type string `json:"type" bson:"type"`
	// Enabled controls whether the object is listed as <id>.cfg or
	// <id>.cfg.disabled.
	Enabled bool `json:"enabled" bson:"enabled"`
}

// Record is one object definition as persisted in the store.
type Record struct {
	// ID is assigned by the store and never changes.
	ID   string
	Meta Meta
	// Fields holds the definition's directives. Keys are unique and never
	// one of the reserved document keys.
	Fields *orderedmap.OrderedMap[string, string]
}

// NewRecord returns an enabled record of the given type with no fields.
func NewRecord(typ string) *Record {
	return &Record{
		Meta:   Meta{Type: typ, Enabled: true},
		Fields: orderedmap.New[string, string](),
	}
}

// Set stores a field value. Setting an existing key replaces its value and
// keeps its original position. Reserved keys are ignored.
func (r *Record) Set(key, value string) {
	if key == IDKey || key == MetaKey {
		return
	}
	if r.Fields == nil {
		r.Fields = orderedmap.New[string, string]()
	}
	r.Fields.Set(key, value)
}

// Get returns a field value.
func (r *Record) Get(key string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}
	return r.Fields.Get(key)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r.Fields == nil {
		return 0
	}
	return r.Fields.Len()
}

// Keys returns field names in insertion order.
func (r *Record) Keys() []string {
	if r.Fields == nil {
		return nil
	}
	keys := make([]string, 0, r.Fields.Len())
	for p := r.Fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// SortedKeys returns field names in lexicographic order.
func (r *Record) SortedKeys() []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

// FieldMap returns a copy of the fields as a plain map.
func (r *Record) FieldMap() map[string]string {
	m := make(map[string]string, r.Len())
	if r.Fields == nil {
		return m
	}
	for p := r.Fields.Oldest(); p != nil; p = p.Next() {
		m[p.Key] = p.Value
	}
	return m
}

// IsTemplate reports whether the record is a template definition
// (register == "0").
func (r *Record) IsTemplate() bool {
	v, ok := r.Get(RegisterKey)
	return ok && v == TemplateRegister
}

// Document returns the flat document form used by the stores:
// {"_id": id, "_monfs": {"type", "enabled"}, <field>: <value>, ...}.
// The _id key is omitted while the record has no ID yet.
func (r *Record) Document() map[string]any {
	doc := make(map[string]any, r.Len()+2)
	if r.ID != "" {
		doc[IDKey] = r.ID
	}
	doc[MetaKey] = map[string]any{
		"type":    r.Meta.Type,
		"enabled": r.Meta.Enabled,
	}
	if r.Fields != nil {
		for p := r.Fields.Oldest(); p != nil; p = p.Next() {
			doc[p.Key] = p.Value
		}
	}
	return doc
}

// FromDocument builds a record from its flat document form. Field values
// that are not strings (written by other tools) are formatted with %v.
// Fields are added in sorted key order since maps carry no order.
func FromDocument(doc map[string]any) (*Record, error) {
	rawMeta, ok := doc[MetaKey].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document has no %s block", MetaKey)
	}
	typ, _ := rawMeta["type"].(string)
	if typ == "" {
		return nil, fmt.Errorf("document has empty %s.type", MetaKey)
	}
	rec := NewRecord(typ)
	if enabled, ok := rawMeta["enabled"].(bool); ok {
		rec.Meta.Enabled = enabled
	}
	if id, ok := doc[IDKey]; ok && id != nil {
		rec.ID = fmt.Sprint(id)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if k == IDKey || k == MetaKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := doc[k].(type) {
		case string:
			rec.Set(k, v)
		case nil:
			rec.Set(k, "")
		default:
			rec.Set(k, fmt.Sprint(v))
		}
	}
	return rec, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{ID: r.ID, Meta: r.Meta, Fields: orderedmap.New[string, string]()}
	if r.Fields != nil {
		for p := r.Fields.Oldest(); p != nil; p = p.Next() {
			c.Fields.Set(p.Key, p.Value)
		}
	}
	return c
}
