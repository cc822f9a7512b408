// Package catalog is the fixed set of directories exposed at the root of
// the filesystem and the rule mapping each one to a store query.
package catalog

import "strings"

// TemplateSuffix marks directories that hold template definitions
// (register == "0") of the prefix type.
const TemplateSuffix = "Templates"

var names = []string{
	"host", "hostTemplates", "hostGroup", "hostDependency", "hostEscalation",
	"service", "serviceTemplates", "serviceGroup", "serviceDependency", "serviceEscalation",
	"contact", "contactTemplates", "contactGroup",
	"timePeriod", "command",
	"hostExtInfo", "serviceExtInfo",
}

var index = func() map[string]Class {
	m := make(map[string]Class, len(names))
	for _, n := range names {
		m[n] = classify(n)
	}
	return m
}()

// Class is what a directory selects: records of Type whose template flag
// equals Template.
type Class struct {
	Name     string
	Type     string
	Template bool
}

// Names returns the recognized directory names in catalog order.
func Names() []string {
	return append([]string(nil), names...)
}

// Listing returns the root directory contents: "." and ".." followed by
// Names().
func Listing() []string {
	return append([]string{".", ".."}, names...)
}

// IsRecognized reports whether name is a catalog directory.
func IsRecognized(name string) bool {
	_, ok := index[name]
	return ok
}

// Classify returns the query class of a catalog directory.
func Classify(name string) (Class, bool) {
	c, ok := index[name]
	return c, ok
}

// DirFor returns the directory a record of the given type and template flag
// is listed under, if any.
func DirFor(typ string, template bool) (string, bool) {
	for _, n := range names {
		c := index[n]
		if c.Type == typ && c.Template == template {
			return n, true
		}
	}
	return "", false
}

func classify(name string) Class {
	if base, ok := strings.CutSuffix(name, TemplateSuffix); ok && base != "" {
		return Class{Name: name, Type: strings.ToLower(base), Template: true}
	}
	return Class{Name: name, Type: strings.ToLower(name)}
}
