// Package nfsmount provides an NFS-based mount backend for monfs.
// It adapts the vfs adapter to billy.Filesystem for use with
// willscott/go-nfs, as an alternative to the FUSE mount layer.
package nfsmount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/monfs/internal/vfs"
)

// StoreFS adapts vfs.Adapter to billy.Filesystem.
type StoreFS struct {
	adapter *vfs.Adapter
}

// NewStoreFS creates a read-only billy.Filesystem over the adapter.
func NewStoreFS(a *vfs.Adapter) *StoreFS {
	return &StoreFS{adapter: a}
}

func (fs *StoreFS) refuse(op vfs.Op, filename string) error {
	return refused(fs.adapter, op, cleanPath(filename))
}

// refused routes a mutating call through the adapter's generic branch and
// wraps the result so billy callers see ErrNotSupported.
func refused(a *vfs.Adapter, op vfs.Op, filename string) error {
	return fmt.Errorf("%w: %w", billy.ErrNotSupported, a.Refuse(op, filename))
}

// pathError converts adapter sentinels into os errors go-nfs understands.
func pathError(op, filename string, err error) error {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return &os.PathError{Op: op, Path: filename, Err: os.ErrNotExist}
	case errors.Is(err, vfs.ErrUnsupported):
		return &os.PathError{Op: op, Path: filename, Err: billy.ErrNotSupported}
	}
	return &os.PathError{Op: op, Path: filename, Err: err}
}

// --- billy.Basic ---

func (fs *StoreFS) Create(filename string) (billy.File, error) {
	return nil, fs.refuse(vfs.OpCreate, filename)
}

func (fs *StoreFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *StoreFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	filename = cleanPath(filename)

	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 && !fs.adapter.Supports(vfs.OpWrite) {
		return nil, fs.refuse(vfs.OpWrite, filename)
	}

	ctx := context.Background()
	attr, err := fs.adapter.Lookup(ctx, filename)
	if err != nil {
		return nil, pathError("open", filename, err)
	}
	if attr.IsDir() {
		return nil, &os.PathError{Op: "open", Path: filename, Err: vfs.ErrIsDir}
	}
	if err := fs.adapter.Open(ctx, filename); err != nil {
		return nil, pathError("open", filename, err)
	}
	return &entryFile{
		name:    filename,
		size:    attr.Size,
		adapter: fs.adapter,
	}, nil
}

func (fs *StoreFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *StoreFS) Rename(oldpath, newpath string) error {
	return fs.refuse(vfs.OpRename, oldpath)
}

func (fs *StoreFS) Remove(filename string) error {
	return fs.refuse(vfs.OpUnlink, filename)
}

func (fs *StoreFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *StoreFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, fs.refuse(vfs.OpCreate, dir)
}

// --- billy.Dir ---

func (fs *StoreFS) ReadDir(dirname string) ([]os.FileInfo, error) {
	dirname = cleanPath(dirname)

	entries, err := fs.adapter.Enumerate(context.Background(), dirname)
	if err != nil {
		return nil, pathError("readdir", dirname, err)
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		// billy listings never carry the dot entries.
		if e.Name == "." || e.Name == ".." {
			continue
		}
		infos = append(infos, attrInfo(e.Name, e.Attr))
	}
	return infos, nil
}

func (fs *StoreFS) MkdirAll(filename string, perm os.FileMode) error {
	return fs.refuse(vfs.OpMkdir, filename)
}

// --- billy.Symlink ---

func (fs *StoreFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)

	attr, err := fs.adapter.Lookup(context.Background(), filename)
	if err != nil {
		return nil, pathError("lstat", filename, err)
	}
	return attrInfo(path.Base(filename), attr), nil
}

func (fs *StoreFS) Symlink(target, link string) error {
	return fs.refuse(vfs.OpSymlink, link)
}

func (fs *StoreFS) Readlink(link string) (string, error) {
	return "", fs.refuse(vfs.OpReadlink, link)
}

// --- billy.Chroot ---

func (fs *StoreFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *StoreFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *StoreFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(p string) string {
	p = filepath.Clean("/" + p)
	if p == "." {
		return "/"
	}
	return p
}

func attrInfo(name string, attr vfs.Attr) os.FileInfo {
	return &staticFileInfo{
		name:    name,
		size:    attr.Size,
		mode:    attr.Mode,
		modTime: attr.ModTime,
	}
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*StoreFS)(nil)
	_ billy.Capable    = (*StoreFS)(nil)
	_ billy.File       = (*entryFile)(nil)
)
