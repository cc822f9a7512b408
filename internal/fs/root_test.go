package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/agentic-research/monfs/api"
	"github.com/agentic-research/monfs/internal/store"
	"github.com/agentic-research/monfs/internal/vfs"
)

const hostText = "define host{\n" +
	"    host_name                                          test1\n" +
	"}\n"

// newTestFS creates a MonFS over a MemoryStore holding one host, one
// disabled host and one host template.
func newTestFS(t *testing.T) (*MonFS, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	add := func(id string, enabled bool, kv ...string) {
		rec := api.NewRecord("host")
		rec.ID = id
		rec.Meta.Enabled = enabled
		for i := 0; i+1 < len(kv); i += 2 {
			rec.Set(kv[i], kv[i+1])
		}
		_, err := s.Insert(context.Background(), rec)
		require.NoError(t, err)
	}
	add("h1", true, "host_name", "test1")
	add("h2", false, "host_name", "test2")
	add("ht", true, "name", "generic", "register", "0")
	return NewMonFS(vfs.New(s, nil), nil), s
}

func TestMonFS_Getattr(t *testing.T) {
	mfs, _ := newTestFS(t)

	tests := []struct {
		name      string
		path      string
		wantErr   int
		checkStat func(*testing.T, *fuse.Stat_t)
	}{
		{
			name: "stat root directory",
			path: "/",
			checkStat: func(t *testing.T, stat *fuse.Stat_t) {
				assert.NotZero(t, stat.Mode&fuse.S_IFDIR)
				assert.Equal(t, uint32(fuse.S_IFDIR|0o555), stat.Mode)
				assert.Equal(t, uint32(2), stat.Nlink)
			},
		},
		{
			name: "stat type directory",
			path: "/hostTemplates",
			checkStat: func(t *testing.T, stat *fuse.Stat_t) {
				assert.NotZero(t, stat.Mode&fuse.S_IFDIR)
			},
		},
		{
			name: "stat entry",
			path: "/host/h1.cfg",
			checkStat: func(t *testing.T, stat *fuse.Stat_t) {
				assert.Equal(t, uint32(fuse.S_IFREG|0o444), stat.Mode)
				assert.Equal(t, int64(len(hostText)), stat.Size)
				assert.Equal(t, uint32(1), stat.Nlink)
			},
		},
		{name: "stat unknown directory", path: "/nope", wantErr: -fuse.ENOENT},
		{name: "stat missing entry", path: "/host/zz.cfg", wantErr: -fuse.ENOENT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stat fuse.Stat_t
			errCode := mfs.Getattr(tt.path, &stat, 0)
			require.Equal(t, tt.wantErr, errCode)
			if errCode == 0 && tt.checkStat != nil {
				tt.checkStat(t, &stat)
			}
		})
	}
}

func TestMonFS_Readdir(t *testing.T) {
	mfs, _ := newTestFS(t)

	tests := []struct {
		name        string
		path        string
		wantErr     int
		wantEntries []string
	}{
		{name: "host lists instances", path: "/host", wantEntries: []string{".", "..", "h1.cfg", "h2.cfg.disabled"}},
		{name: "templates", path: "/hostTemplates", wantEntries: []string{".", "..", "ht.cfg"}},
		{name: "empty type", path: "/command", wantEntries: []string{".", ".."}},
		{name: "unknown", path: "/does-not-exist", wantErr: -fuse.ENOENT},
		{name: "entry is not a directory", path: "/host/h1.cfg", wantErr: -fuse.ENOTDIR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []string
			fill := func(name string, stat *fuse.Stat_t, ofst int64) bool {
				entries = append(entries, name)
				return true
			}
			errCode := mfs.Readdir(tt.path, fill, 0, 0)
			require.Equal(t, tt.wantErr, errCode)
			if errCode == 0 {
				assert.Equal(t, tt.wantEntries, entries)
			}
		})
	}
}

func TestMonFS_Readdir_Root(t *testing.T) {
	mfs, _ := newTestFS(t)
	var entries []string
	errCode := mfs.Readdir("/", func(name string, _ *fuse.Stat_t, _ int64) bool {
		entries = append(entries, name)
		return true
	}, 0, 0)
	require.Zero(t, errCode)
	assert.Len(t, entries, 19)
	assert.Equal(t, "host", entries[2])
}

func TestMonFS_Readdir_BufferFull(t *testing.T) {
	mfs, _ := newTestFS(t)
	var entries []string
	errCode := mfs.Readdir("/host", func(name string, _ *fuse.Stat_t, _ int64) bool {
		entries = append(entries, name)
		return false
	}, 0, 0)
	require.Zero(t, errCode)
	assert.Equal(t, []string{"."}, entries)
}

func TestMonFS_Opendir_Readdir_Releasedir(t *testing.T) {
	mfs, s := newTestFS(t)

	errCode, fh := mfs.Opendir("/host")
	require.Zero(t, errCode)

	// Records inserted after Opendir are not part of the open listing.
	late := api.NewRecord("host")
	late.ID = "h9"
	_, err := s.Insert(context.Background(), late)
	require.NoError(t, err)

	var page1 []string
	count := 0
	errCode = mfs.Readdir("/host", func(name string, _ *fuse.Stat_t, _ int64) bool {
		page1 = append(page1, name)
		count++
		return count < 2
	}, 0, fh)
	require.Zero(t, errCode)
	assert.Equal(t, []string{".", ".."}, page1)

	var page2 []string
	var offsets []int64
	errCode = mfs.Readdir("/host", func(name string, _ *fuse.Stat_t, ofst int64) bool {
		page2 = append(page2, name)
		offsets = append(offsets, ofst)
		return true
	}, 2, fh)
	require.Zero(t, errCode)
	assert.Equal(t, []string{"h1.cfg", "h2.cfg.disabled"}, page2)
	assert.Equal(t, []int64{3, 4}, offsets)

	require.Zero(t, mfs.Releasedir("/host", fh))

	// A fresh listing sees the new record.
	var fresh []string
	mfs.Readdir("/host", func(name string, _ *fuse.Stat_t, _ int64) bool {
		fresh = append(fresh, name)
		return true
	}, 0, 0)
	assert.Contains(t, fresh, "h9.cfg")
}

func TestMonFS_Opendir_Errors(t *testing.T) {
	mfs, _ := newTestFS(t)

	errCode, _ := mfs.Opendir("/does-not-exist")
	assert.Equal(t, -fuse.ENOENT, errCode)

	errCode, _ = mfs.Opendir("/host/h1.cfg")
	assert.Equal(t, -fuse.ENOTDIR, errCode)
}

func TestMonFS_Open(t *testing.T) {
	mfs, _ := newTestFS(t)

	errCode, _ := mfs.Open("/host/h1.cfg", fuse.O_RDONLY)
	assert.Zero(t, errCode)

	// Open keeps no state and never fails for reads; a missing record is
	// reported by Read.
	errCode, _ = mfs.Open("/host/missing.cfg", fuse.O_RDONLY)
	assert.Zero(t, errCode)
	buf := make([]byte, 16)
	assert.Equal(t, -fuse.ENOENT, mfs.Read("/host/missing.cfg", buf, 0, 0))

	errCode, _ = mfs.Open("/host/h1.cfg", fuse.O_WRONLY)
	assert.Equal(t, -fuse.ENOSYS, errCode)

	assert.Zero(t, mfs.Release("/host/h1.cfg", 0))
}

func TestMonFS_Read(t *testing.T) {
	mfs, _ := newTestFS(t)
	size := int64(len(hostText))

	tests := []struct {
		name   string
		path   string
		ofst   int64
		bufLen int
		want   string
		err    int
	}{
		{name: "whole file", path: "/host/h1.cfg", bufLen: 4096, want: hostText},
		{name: "prefix", path: "/host/h1.cfg", bufLen: 6, want: "define"},
		{name: "tail clamped", path: "/host/h1.cfg", ofst: size - 2, bufLen: 64, want: "}\n"},
		{name: "at end", path: "/host/h1.cfg", ofst: size, bufLen: 64, want: ""},
		{name: "past end", path: "/host/h1.cfg", ofst: size + 10, bufLen: 64, want: ""},
		{name: "disabled name", path: "/host/h2.cfg.disabled", bufLen: 4096, want: "define host{\n    host_name                                          test2\n}\n"},
		{name: "missing", path: "/host/none.cfg", bufLen: 10, err: -fuse.ENOENT},
		{name: "directory", path: "/host", bufLen: 10, err: -fuse.EISDIR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.bufLen)
			n := mfs.Read(tt.path, buf, tt.ofst, 0)
			if tt.err != 0 {
				assert.Equal(t, tt.err, n)
				return
			}
			require.GreaterOrEqual(t, n, 0)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}

func TestMonFS_MutationsRefused(t *testing.T) {
	mfs, s := newTestFS(t)
	before := s.Len()
	p := "/host/h1.cfg"

	assert.Equal(t, -fuse.ENOSYS, mfs.Write(p, []byte("x"), 0, 0))
	assert.Equal(t, -fuse.ENOSYS, mfs.Truncate(p, 0, 0))
	assert.Equal(t, -fuse.ENOSYS, mfs.Unlink(p))
	assert.Equal(t, -fuse.ENOSYS, mfs.Rename(p, "/host/h5.cfg"))
	assert.Equal(t, -fuse.ENOSYS, mfs.Mkdir("/newdir", 0o755))
	assert.Equal(t, -fuse.ENOSYS, mfs.Rmdir("/host"))
	assert.Equal(t, -fuse.ENOSYS, mfs.Chmod(p, 0o644))
	assert.Equal(t, -fuse.ENOSYS, mfs.Chown(p, 0, 0))
	assert.Equal(t, -fuse.ENOSYS, mfs.Symlink(p, "/host/l.cfg"))
	assert.Equal(t, -fuse.ENOSYS, mfs.Link(p, "/host/l.cfg"))
	assert.Equal(t, -fuse.ENOSYS, mfs.Mknod(p, 0, 0))
	assert.Equal(t, -fuse.ENOSYS, mfs.Utimens(p, nil))
	assert.Equal(t, -fuse.ENOSYS, mfs.Fsync(p, false, 0))
	assert.Equal(t, -fuse.ENOSYS, mfs.Setxattr(p, "user.x", nil, 0))
	assert.Equal(t, -fuse.ENOSYS, mfs.Removexattr(p, "user.x"))
	errCode, _ := mfs.Create("/host/new.cfg", 0, 0o644)
	assert.Equal(t, -fuse.ENOSYS, errCode)
	errCode, _ = mfs.Readlink(p)
	assert.Equal(t, -fuse.ENOSYS, errCode)

	assert.Equal(t, before, s.Len())
}

func TestMonFS_DestroyDropsOpenDirs(t *testing.T) {
	mfs, _ := newTestFS(t)
	mfs.Init()

	errCode, _ := mfs.Opendir("/host")
	require.Equal(t, 0, errCode)
	mfs.Destroy()

	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	assert.Empty(t, mfs.dirs)
}
