package vfs

import (
	"path"
	"strings"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/catalog"
)

// File name suffixes of synthesized entries.
const (
	FileSuffix     = ".cfg"
	DisabledSuffix = ".disabled"
)

// Kind classifies a resolved path.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRoot
	KindTypeDir
	KindEntry
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindTypeDir:
		return "typedir"
	case KindEntry:
		return "entry"
	}
	return "invalid"
}

// Location is a path mapped onto the catalog and the store.
type Location struct {
	Kind  Kind
	Class catalog.Class // TypeDir and Entry
	ID    string        // Entry
	// Disabled records the .disabled suffix the caller used. It is only a
	// hint: reads resolve by ID and never compare it with the record.
	Disabled bool
}

// IsDir reports whether the location is the root or a type directory.
func (l Location) IsDir() bool {
	return l.Kind == KindRoot || l.Kind == KindTypeDir
}

// Resolve parses "/", "/<dir>" and "/<dir>/<id>.cfg[.disabled]".
func Resolve(p string) Location {
	p = path.Clean("/" + p)
	if p == "/" {
		return Location{Kind: KindRoot}
	}
	dir, name, nested := strings.Cut(p[1:], "/")
	class, ok := catalog.Classify(dir)
	if !ok {
		return Location{}
	}
	if !nested {
		return Location{Kind: KindTypeDir, Class: class}
	}
	id, disabled, ok := ParseEntryName(name)
	if !ok {
		return Location{}
	}
	return Location{Kind: KindEntry, Class: class, ID: id, Disabled: disabled}
}

// ParseEntryName extracts the record identifier from "<id>.cfg" or
// "<id>.cfg.disabled". Ids may contain dots; only an empty id or one with a
// path separator is rejected.
func ParseEntryName(name string) (id string, disabled bool, ok bool) {
	base, disabled := strings.CutSuffix(name, DisabledSuffix)
	id, ok = strings.CutSuffix(base, FileSuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false, false
	}
	return id, disabled, true
}

// EntryName is the listing name of rec: "<id>.cfg" when enabled, otherwise
// "<id>.cfg.disabled".
func EntryName(rec *api.Record) string {
	if rec.Meta.Enabled {
		return rec.ID + FileSuffix
	}
	return rec.ID + FileSuffix + DisabledSuffix
}

// EntryPath is the absolute path of rec inside dir.
func EntryPath(dir string, rec *api.Record) string {
	return "/" + dir + "/" + EntryName(rec)
}
