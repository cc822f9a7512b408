// Package fs binds the vfs adapter to FUSE through cgofuse.
package fs

import (
	"context"
	"errors"
	"sync"

	"github.com/winfsp/cgofuse/fuse"
	"go.uber.org/zap"

	"github.com/agentic-research/monfs/internal/vfs"
)

// MonFS implements the FUSE interface from cgofuse. Read callbacks go to the
// adapter; every mutating callback is refused through Adapter.Refuse.
type MonFS struct {
	fuse.FileSystemBase
	Adapter   *vfs.Adapter
	log       *zap.Logger
	mountTime fuse.Timespec

	mu      sync.Mutex
	dirs    map[uint64][]vfs.DirEntry
	nextDir uint64
}

func NewMonFS(a *vfs.Adapter, log *zap.Logger) *MonFS {
	if log == nil {
		log = zap.NewNop()
	}
	return &MonFS{
		Adapter:   a,
		log:       log,
		mountTime: fuse.NewTimespec(a.MountTime()),
		dirs:      make(map[uint64][]vfs.DirEntry),
		nextDir:   1,
	}
}

// Init is called once the host has mounted the filesystem.
func (fs *MonFS) Init() {
	fs.log.Info("filesystem mounted", zap.Stringer("capabilities", fs.Adapter.Capabilities()))
}

func (fs *MonFS) Destroy() {
	fs.mu.Lock()
	open := len(fs.dirs)
	fs.dirs = make(map[uint64][]vfs.DirEntry)
	fs.mu.Unlock()
	fs.log.Info("filesystem unmounted", zap.Int("open_dirs", open))
}

// errno translates adapter errors into negated FUSE error codes.
func errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, vfs.ErrNotFound):
		return -fuse.ENOENT
	case errors.Is(err, vfs.ErrUnsupported):
		return -fuse.ENOSYS
	case errors.Is(err, vfs.ErrIsDir):
		return -fuse.EISDIR
	case errors.Is(err, vfs.ErrNotDir):
		return -fuse.ENOTDIR
	}
	return -fuse.EIO
}

func (fs *MonFS) fillStat(stat *fuse.Stat_t, attr vfs.Attr) {
	stat.Atim = fs.mountTime
	stat.Mtim = fs.mountTime
	stat.Ctim = fs.mountTime
	stat.Birthtim = fs.mountTime
	stat.Nlink = attr.Nlink
	stat.Size = attr.Size
	if attr.IsDir() {
		stat.Mode = fuse.S_IFDIR | uint32(attr.Mode.Perm())
	} else {
		stat.Mode = fuse.S_IFREG | uint32(attr.Mode.Perm())
	}
}

// Getattr (Stat)
func (fs *MonFS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	attr, err := fs.Adapter.Lookup(context.Background(), path)
	if err != nil {
		return errno(err)
	}
	fs.fillStat(stat, attr)
	return 0
}

// Open succeeds for existing entries only.
func (fs *MonFS) Open(path string, flags int) (int, uint64) {
	if flags&fuse.O_ACCMODE != fuse.O_RDONLY && !fs.Adapter.Supports(vfs.OpWrite) {
		return errno(fs.Adapter.Refuse(vfs.OpWrite, path)), ^uint64(0)
	}
	if err := fs.Adapter.Open(context.Background(), path); err != nil {
		return errno(err), ^uint64(0)
	}
	return 0, 0
}

func (fs *MonFS) Release(path string, fh uint64) int {
	return errno(fs.Adapter.Release(path))
}

// Read (Cat file). The window is clamped to the content.
func (fs *MonFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	data, err := fs.Adapter.Read(context.Background(), path, ofst, len(buff))
	if err != nil {
		return errno(err)
	}
	return copy(buff, data)
}

// Opendir snapshots the listing so paged Readdir calls see one view.
func (fs *MonFS) Opendir(path string) (int, uint64) {
	entries, err := fs.Adapter.Enumerate(context.Background(), path)
	if err != nil {
		return errno(err), ^uint64(0)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fh := fs.nextDir
	fs.nextDir++
	fs.dirs[fh] = entries
	return 0, fh
}

// Readdir (List directory). Offsets are entry indexes plus one so the
// kernel can resume a listing that did not fit its buffer.
func (fs *MonFS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	fs.mu.Lock()
	entries, ok := fs.dirs[fh]
	fs.mu.Unlock()
	if !ok {
		var err error
		entries, err = fs.Adapter.Enumerate(context.Background(), path)
		if err != nil {
			return errno(err)
		}
	}
	for i := ofst; i < int64(len(entries)); i++ {
		e := entries[i]
		var stat fuse.Stat_t
		fs.fillStat(&stat, e.Attr)
		if !fill(e.Name, &stat, i+1) {
			break
		}
	}
	return 0
}

func (fs *MonFS) Releasedir(path string, fh uint64) int {
	fs.mu.Lock()
	delete(fs.dirs, fh)
	fs.mu.Unlock()
	return 0
}

// Mutating callbacks.

func (fs *MonFS) Mknod(path string, mode uint32, dev uint64) int {
	return errno(fs.Adapter.Refuse(vfs.OpMknod, path))
}

func (fs *MonFS) Mkdir(path string, mode uint32) int {
	return errno(fs.Adapter.Refuse(vfs.OpMkdir, path))
}

func (fs *MonFS) Unlink(path string) int {
	return errno(fs.Adapter.Refuse(vfs.OpUnlink, path))
}

func (fs *MonFS) Rmdir(path string) int {
	return errno(fs.Adapter.Refuse(vfs.OpRmdir, path))
}

func (fs *MonFS) Link(oldpath string, newpath string) int {
	return errno(fs.Adapter.Refuse(vfs.OpLink, newpath))
}

func (fs *MonFS) Symlink(target string, newpath string) int {
	return errno(fs.Adapter.Refuse(vfs.OpSymlink, newpath))
}

func (fs *MonFS) Readlink(path string) (int, string) {
	return errno(fs.Adapter.Refuse(vfs.OpReadlink, path)), ""
}

func (fs *MonFS) Rename(oldpath string, newpath string) int {
	return errno(fs.Adapter.Refuse(vfs.OpRename, oldpath))
}

func (fs *MonFS) Chmod(path string, mode uint32) int {
	return errno(fs.Adapter.Refuse(vfs.OpChmod, path))
}

func (fs *MonFS) Chown(path string, uid uint32, gid uint32) int {
	return errno(fs.Adapter.Refuse(vfs.OpChown, path))
}

func (fs *MonFS) Utimens(path string, tmsp []fuse.Timespec) int {
	return errno(fs.Adapter.Refuse(vfs.OpUtime, path))
}

func (fs *MonFS) Create(path string, flags int, mode uint32) (int, uint64) {
	return errno(fs.Adapter.Refuse(vfs.OpCreate, path)), ^uint64(0)
}

func (fs *MonFS) Truncate(path string, size int64, fh uint64) int {
	return errno(fs.Adapter.Refuse(vfs.OpTruncate, path))
}

func (fs *MonFS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	return errno(fs.Adapter.Refuse(vfs.OpWrite, path))
}

func (fs *MonFS) Fsync(path string, datasync bool, fh uint64) int {
	return errno(fs.Adapter.Refuse(vfs.OpFsync, path))
}

func (fs *MonFS) Setxattr(path string, name string, value []byte, flags int) int {
	return errno(fs.Adapter.Refuse(vfs.OpSetxattr, path))
}

func (fs *MonFS) Removexattr(path string, name string) int {
	return errno(fs.Adapter.Refuse(vfs.OpRemovexattr, path))
}
