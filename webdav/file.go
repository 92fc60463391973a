package webdav

/*
	IN THIS FILE: I/O Implementation
		- Read(), Close(), Seek()  ->  pad file or state bytes
		- Readdir()  ->  return dir content
*/

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/net/webdav"
)

var _ webdav.File = (*_File)(nil)

// _File is returned by a FileSystem's OpenFile method and can be served by a Handler.
type _File struct {
	entry *_Entry
	fs    *_FileSystem

	inner   io.ReadSeekCloser // set by first Read() or Seek()
	dirPos  int               // Readdir position
	offLock sync.Mutex
}

// newFile encapsulate an entry and return a webdav.File
func newFile(e *_Entry, fs *_FileSystem) webdav.File {
	return &_File{
		entry: e,
		fs:    fs,
	}
}

// ------------------------------------------------------------------------------------------------------------------ //

// Close @see os.File
func (f *_File) Close() error {
	f.offLock.Lock()
	defer f.offLock.Unlock()

	if f.inner != nil {
		return f.inner.Close()
	}
	return nil
}

// Read @see os.File
func (f *_File) Read(p []byte) (int, error) {
	f.offLock.Lock()
	defer f.offLock.Unlock()

	if err := f.open(); err != nil {
		return 0, err
	}
	return f.inner.Read(p)
}

// Seek @see os.File
func (f *_File) Seek(offset int64, whence int) (int64, error) {
	f.offLock.Lock()
	defer f.offLock.Unlock()

	if err := f.open(); err != nil {
		return 0, err
	}
	return f.inner.Seek(offset, whence)
}

// Readdir @see os.File
//
// If n > 0, Readdir returns at most n FileInfo structures (io.EOF at the end).
// If n <= 0, Readdir returns all remaining FileInfo.
func (f *_File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.entry.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: f.entry.relPath, Err: errors.New("not a directory")}
	}

	f.fs.mux.RLock()
	ret := make([]os.FileInfo, 0, len(f.entry.children))
	for _, rel := range f.entry.children {
		if e, ok := f.fs.entries[rel]; ok {
			ret = append(ret, e)
		}
	}
	f.fs.mux.RUnlock()

	f.offLock.Lock()
	defer f.offLock.Unlock()

	if f.dirPos > len(ret) {
		f.dirPos = len(ret)
	}
	ret = ret[f.dirPos:]

	if count <= 0 {
		f.dirPos += len(ret)
		return ret, nil
	}
	if len(ret) == 0 {
		return ret, io.EOF
	}
	if len(ret) > count {
		ret = ret[:count]
	}
	f.dirPos += len(ret)
	return ret, nil
}

// Stat @see os.File
func (f *_File) Stat() (os.FileInfo, error) {
	return f.entry, nil
}

// ---------  not implemented (ReadOnly)  --------------------------------------------------------------------------- //

// Write @see os.File
func (f *_File) Write(_ []byte) (n int, err error) {
	return 0, webdav.ErrForbidden // read only
}

// ---------  Helper  ----------------------------------------------------------------------------------------------- //

// open sets the inner reader (lock must be held).
func (f *_File) open() error {
	if f.inner != nil {
		return nil
	}
	switch {
	case f.entry.isDir:
		return &fs.PathError{Op: "read", Path: f.entry.relPath, Err: errors.New("is a directory")}
	case f.entry.data != nil:
		f.inner = nopCloser{bytes.NewReader(f.entry.data)}
	default:
		fh, err := os.Open(f.entry.diskPath)
		if err != nil {
			return err
		}
		f.inner = fh
	}
	return nil
}

// nopCloser adds Close to a bytes.Reader.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
