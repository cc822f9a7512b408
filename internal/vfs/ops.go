package vfs

import (
	"errors"
	"strconv"
	"strings"
)

// Errors surfaced to host bindings. Callbacks wrap them in *fs.PathError.
var (
	ErrNotFound    = errors.New("no such file or directory")
	ErrUnsupported = errors.New("operation not supported")
	ErrIsDir       = errors.New("is a directory")
	ErrNotDir      = errors.New("not a directory")
)

// Op names a filesystem operation a host framework may dispatch.
type Op uint8

const (
	OpLookup Op = iota
	OpEnumerate
	OpRead
	OpOpen
	OpRelease
	OpWrite
	OpTruncate
	OpRename
	OpUnlink
	OpMkdir
	OpRmdir
	OpSymlink
	OpLink
	OpChmod
	OpChown
	OpUtime
	OpMknod
	OpCreate
	OpReadlink
	OpFsync
	OpSetxattr
	OpRemovexattr
	numOps
)

var opNames = [...]string{
	OpLookup:      "lookup",
	OpEnumerate:   "enumerate",
	OpRead:        "read",
	OpOpen:        "open",
	OpRelease:     "release",
	OpWrite:       "write",
	OpTruncate:    "truncate",
	OpRename:      "rename",
	OpUnlink:      "unlink",
	OpMkdir:       "mkdir",
	OpRmdir:       "rmdir",
	OpSymlink:     "symlink",
	OpLink:        "link",
	OpChmod:       "chmod",
	OpChown:       "chown",
	OpUtime:       "utime",
	OpMknod:       "mknod",
	OpCreate:      "create",
	OpReadlink:    "readlink",
	OpFsync:       "fsync",
	OpSetxattr:    "setxattr",
	OpRemovexattr: "removexattr",
}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return "op" + strconv.Itoa(int(o))
}

// Capabilities is a set of supported operations.
type Capabilities uint32

// ReadOnly is the set monfs advertises. Everything else goes through
// Adapter.Refuse.
const ReadOnly Capabilities = 1<<OpLookup | 1<<OpEnumerate | 1<<OpRead | 1<<OpOpen | 1<<OpRelease

// Has reports whether op is in the set.
func (c Capabilities) Has(op Op) bool {
	return op < numOps && c&(1<<op) != 0
}

func (c Capabilities) ops() []Op {
	var out []Op
	for op := Op(0); op < numOps; op++ {
		if c.Has(op) {
			out = append(out, op)
		}
	}
	return out
}

func (c Capabilities) String() string {
	ops := c.ops()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return strings.Join(names, ",")
}
