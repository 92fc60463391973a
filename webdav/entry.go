package webdav

/*
	IN THIS FILE: virtual vault tree
		- entries for dirs, pad files and the state file
		- os.FileInfo
*/

import (
	"context"
	"os"
	"path"
	"time"

	"golang.org/x/net/webdav"
)

var _ os.FileInfo = (*_Entry)(nil)
var _ webdav.ContentTyper = (*_Entry)(nil)

// _Entry is a node of the read-only vault tree.
//
//   .
//   ├── vault_state.json
//   └── pads
//       ├── available/<id>.pad
//       └── used/<id>.pad
type _Entry struct {
	relPath  string
	size     int64
	mTime    time.Time
	isDir    bool
	children []string // relPaths (dirs only)

	diskPath string // pad files
	data     []byte // state file
}

// Name return the base name of the entry
func (e *_Entry) Name() string {
	if e.relPath == "." {
		return "/"
	}
	return path.Base(e.relPath)
}

// Size return the length in bytes for regular files
func (e *_Entry) Size() int64 {
	return e.size
}

// Mode return the file mode bits.
//   File: 0444
//   Dir: 0555
func (e *_Entry) Mode() os.FileMode {
	if e.isDir {
		return os.ModeDir | 0555
	}
	return 0444
}

// ModTime return the modification time
func (e *_Entry) ModTime() time.Time {
	return e.mTime
}

// IsDir return if the entry is a dir
func (e *_Entry) IsDir() bool {
	return e.isDir
}

// Sys is not used and return nil
func (e *_Entry) Sys() interface{} {
	return nil
}

// ContentType returns the content type without reading the file.
func (e *_Entry) ContentType(_ context.Context) (string, error) {
	if e.data != nil {
		return "application/json", nil
	}
	return "application/octet-stream", nil
}
