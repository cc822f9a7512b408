// Package vfs projects the record store as a read-only directory tree:
//
//	/                         catalog directories
//	/<dir>                    one entry per matching record
//	/<dir>/<id>.cfg           the record rendered as a define block
//	/<dir>/<id>.cfg.disabled  same, for records with enabled=false
//
// Nothing is cached: every callback queries the store, so the tree always
// reflects the store at call time. Host bindings (FUSE, NFS, HTTP) sit on
// top of Adapter.
package vfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/catalog"
	"github.com/agentic-research/monfs/internal/codec"
	"github.com/agentic-research/monfs/internal/metrics"
	"github.com/agentic-research/monfs/internal/store"
)

// Modes of synthesized nodes.
const (
	DirMode  = os.ModeDir | 0o555
	FileMode = os.FileMode(0o444)
)

// Attr describes a node.
type Attr struct {
	Mode    os.FileMode
	Nlink   uint32
	Size    int64
	ModTime time.Time
}

// IsDir reports whether the node is a directory.
func (a Attr) IsDir() bool { return a.Mode.IsDir() }

// DirEntry is one name in a directory listing.
type DirEntry struct {
	Name string
	Attr Attr
}

// Adapter answers filesystem callbacks from the store.
type Adapter struct {
	store     store.Store
	log       *zap.Logger
	mountTime time.Time
	caps      Capabilities
}

// New returns an Adapter over s. All timestamps report the construction
// time since records carry none.
func New(s store.Store, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		store:     s,
		log:       log,
		mountTime: time.Now(),
		caps:      ReadOnly,
	}
}

// MountTime is the synthetic timestamp of every node.
func (a *Adapter) MountTime() time.Time { return a.mountTime }

// Capabilities returns the supported operation set.
func (a *Adapter) Capabilities() Capabilities { return a.caps }

// Supports reports whether op is handled.
func (a *Adapter) Supports(op Op) bool { return a.caps.Has(op) }

// Refuse is the single branch for every operation outside the
// capability set. It always returns an error wrapping ErrUnsupported.
func (a *Adapter) Refuse(op Op, p string) error {
	a.log.Debug("unsupported operation", zap.Stringer("op", op), zap.String("path", p))
	metrics.Callbacks.WithLabelValues(op.String(), "unsupported").Inc()
	return &fs.PathError{Op: op.String(), Path: p, Err: ErrUnsupported}
}

func (a *Adapter) dirAttr() Attr {
	return Attr{Mode: DirMode, Nlink: 2, ModTime: a.mountTime}
}

func (a *Adapter) fileAttr(rec *api.Record) Attr {
	return Attr{Mode: FileMode, Nlink: 1, Size: codec.Size(rec), ModTime: a.mountTime}
}

// Lookup returns the attributes of p.
func (a *Adapter) Lookup(ctx context.Context, p string) (attr Attr, err error) {
	defer a.observe(OpLookup, &err)

	loc := Resolve(p)
	switch loc.Kind {
	case KindRoot, KindTypeDir:
		return a.dirAttr(), nil
	case KindEntry:
		rec, err := a.record(ctx, OpLookup, p, loc)
		if err != nil {
			return Attr{}, err
		}
		return a.fileAttr(rec), nil
	}
	return Attr{}, &fs.PathError{Op: OpLookup.String(), Path: p, Err: ErrNotFound}
}

// Enumerate lists p. Type directories list "." and "..", then one entry per
// record selected by the directory's class, named after the record's
// current enabled flag.
func (a *Adapter) Enumerate(ctx context.Context, p string) (entries []DirEntry, err error) {
	defer a.observe(OpEnumerate, &err)

	loc := Resolve(p)
	switch loc.Kind {
	case KindRoot:
		names := catalog.Listing()
		entries = make([]DirEntry, len(names))
		for i, n := range names {
			entries[i] = DirEntry{Name: n, Attr: a.dirAttr()}
		}
		return entries, nil
	case KindTypeDir:
		recs, err := a.find(ctx, loc.Class)
		if err != nil {
			a.log.Error("enumerate failed", zap.String("path", p), zap.Error(err))
			return nil, &fs.PathError{Op: OpEnumerate.String(), Path: p, Err: ErrNotFound}
		}
		entries = make([]DirEntry, 0, len(recs)+2)
		entries = append(entries,
			DirEntry{Name: ".", Attr: a.dirAttr()},
			DirEntry{Name: "..", Attr: a.dirAttr()},
		)
		for _, rec := range recs {
			if strings.Contains(rec.ID, "/") {
				a.log.Warn("skipping record whose id cannot be a file name", zap.String("id", rec.ID))
				continue
			}
			entries = append(entries, DirEntry{Name: EntryName(rec), Attr: a.fileAttr(rec)})
		}
		return entries, nil
	case KindEntry:
		return nil, &fs.PathError{Op: OpEnumerate.String(), Path: p, Err: ErrNotDir}
	}
	return nil, &fs.PathError{Op: OpEnumerate.String(), Path: p, Err: ErrNotFound}
}

// Content returns the full rendered text of an entry.
func (a *Adapter) Content(ctx context.Context, p string) (data []byte, err error) {
	defer a.observe(OpRead, &err)
	return a.content(ctx, p)
}

// Read returns at most length bytes of the entry at p starting at offset.
// An offset at or past the end yields an empty slice; a window running past
// the end is cut at the end.
func (a *Adapter) Read(ctx context.Context, p string, offset int64, length int) (data []byte, err error) {
	defer a.observe(OpRead, &err)
	content, err := a.content(ctx, p)
	if err != nil {
		return nil, err
	}
	return Clamp(content, offset, length), nil
}

// Record returns the stored record behind an entry path.
func (a *Adapter) Record(ctx context.Context, p string) (rec *api.Record, err error) {
	defer a.observe(OpRead, &err)
	return a.entry(ctx, p)
}

func (a *Adapter) content(ctx context.Context, p string) ([]byte, error) {
	rec, err := a.entry(ctx, p)
	if err != nil {
		return nil, err
	}
	return codec.Decode(rec), nil
}

func (a *Adapter) entry(ctx context.Context, p string) (*api.Record, error) {
	loc := Resolve(p)
	switch loc.Kind {
	case KindEntry:
		return a.record(ctx, OpRead, p, loc)
	case KindRoot, KindTypeDir:
		return nil, &fs.PathError{Op: OpRead.String(), Path: p, Err: ErrIsDir}
	}
	return nil, &fs.PathError{Op: OpRead.String(), Path: p, Err: ErrNotFound}
}

// Open is a no-op that always succeeds. There is no per-handle state; a
// record that is missing or gone surfaces as ErrNotFound on read.
func (a *Adapter) Open(context.Context, string) error {
	metrics.Callbacks.WithLabelValues(OpOpen.String(), "ok").Inc()
	return nil
}

// Release always succeeds.
func (a *Adapter) Release(string) error {
	metrics.Callbacks.WithLabelValues(OpRelease.String(), "ok").Inc()
	return nil
}

// Clamp cuts the window [offset, offset+length) to content.
func Clamp(content []byte, offset int64, length int) []byte {
	size := int64(len(content))
	if offset < 0 || offset >= size || length <= 0 {
		return []byte{}
	}
	end := offset + int64(length)
	if end > size {
		end = size
	}
	return content[offset:end]
}

// record fetches the record behind an entry. Store failures are logged and
// reported as not found so a flaky store never takes the mount down; a
// record deleted between listing and read is an ordinary not-found.
func (a *Adapter) record(ctx context.Context, op Op, p string, loc Location) (*api.Record, error) {
	start := time.Now()
	rec, err := a.store.FindOne(ctx, loc.ID)
	metrics.StoreLatency.WithLabelValues("find_one").Observe(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.Error("store lookup failed", zap.String("op", op.String()), zap.String("path", p), zap.Error(err))
		}
		return nil, &fs.PathError{Op: op.String(), Path: p, Err: ErrNotFound}
	}
	return rec, nil
}

func (a *Adapter) find(ctx context.Context, c catalog.Class) ([]*api.Record, error) {
	start := time.Now()
	defer func() {
		metrics.StoreLatency.WithLabelValues("find").Observe(time.Since(start).Seconds())
	}()
	return a.store.Find(ctx, store.Filter{Type: c.Type, Template: c.Template})
}

func (a *Adapter) observe(op Op, errp *error) {
	outcome := "ok"
	if err := *errp; err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			outcome = "not_found"
		case errors.Is(err, ErrUnsupported):
			outcome = "unsupported"
		default:
			outcome = "error"
		}
	}
	metrics.Callbacks.WithLabelValues(op.String(), outcome).Inc()
}
