package nfsmount

import (
	"context"
	"io"

	"github.com/agentic-research/monfs/internal/vfs"
)

// entryFile implements billy.File backed by vfs.Adapter.Read. Every read
// goes back to the store; size is the length observed at open.
// Read-only: Write and Truncate return errors.
type entryFile struct {
	name    string
	size    int64
	adapter *vfs.Adapter
	pos     int64
}

func (f *entryFile) Name() string { return f.name }

func (f *entryFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *entryFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.size {
		return 0, io.EOF
	}
	data, err := f.adapter.Read(context.Background(), f.name, off, len(p))
	if err != nil {
		return 0, pathError("read", f.name, err)
	}
	n := copy(p, data)
	if n == 0 || n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *entryFile) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = f.size + offset
	}
	if newPos < 0 {
		newPos = 0
	}
	f.pos = newPos
	return f.pos, nil
}

func (f *entryFile) Write([]byte) (int, error) {
	return 0, refused(f.adapter, vfs.OpWrite, f.name)
}

func (f *entryFile) Truncate(int64) error {
	return refused(f.adapter, vfs.OpTruncate, f.name)
}

func (f *entryFile) Lock() error   { return nil }
func (f *entryFile) Unlock() error { return nil }

func (f *entryFile) Close() error {
	return f.adapter.Release(f.name)
}
