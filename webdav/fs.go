package webdav

/*
	IN THIS FILE: FileSystem implementation
		- update loop (state reload)
		- FS: OpenFile(), Stat()
		- no I/O implementations (@see file.go)
*/

import (
	"bytes"
	"context"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SchnorcherSepp/otpvault/core"
	"github.com/SchnorcherSepp/otpvault/vault"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/webdav"
)

var _ webdav.FileSystem = (*_FileSystem)(nil)

// _FileSystem is a read-only view of a vault directory.
// Only files known to the state are visible.
type _FileSystem struct {
	layout vault.Layout
	locker *core.Locker

	entries map[string]*_Entry // relPath -> entry
	mux     sync.RWMutex
}

// NewFileSystem creates a read-only webdav file system of a vault.
// The state file is reloaded every updateInterval seconds (0 deactivates the update loop)
// and after every change made through the API.
func NewFileSystem(root string, locker *core.Locker, updateInterval int) webdav.FileSystem {
	return newFileSystem(root, locker, updateInterval)
}

func newFileSystem(root string, locker *core.Locker, updateInterval int) *_FileSystem {
	if locker == nil {
		locker = core.NewLocker()
	}
	fs := &_FileSystem{
		layout:  vault.NewLayout(root),
		locker:  locker,
		entries: map[string]*_Entry{".": {relPath: ".", isDir: true}},
	}

	fs.Reload()
	go fs.startUpdateLoop(updateInterval)
	return fs
}

// ------------------------------------------------------------------------------------------------------------------ //

// OpenFile @see os.OpenFile
//
// Only read access is possible. The real open is called by the first read (@see file.go).
func (fs *_FileSystem) OpenFile(_ context.Context, relPath string, flag int, _ os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, webdav.ErrForbidden // read only
	}

	fs.mux.RLock()
	defer fs.mux.RUnlock()

	e, ok := fs.entries[pathFix(relPath)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return newFile(e, fs), nil
}

// Stat @see os.Stat
func (fs *_FileSystem) Stat(_ context.Context, relPath string) (os.FileInfo, error) {
	fs.mux.RLock()
	defer fs.mux.RUnlock()

	e, ok := fs.entries[pathFix(relPath)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return e, nil
}

// ---------  not implemented (ReadOnly)  --------------------------------------------------------------------------- //

// Mkdir @see os.Mkdir
func (fs *_FileSystem) Mkdir(_ context.Context, _ string, _ os.FileMode) error {
	return webdav.ErrForbidden // read only
}

// RemoveAll @see os.RemoveAll
func (fs *_FileSystem) RemoveAll(_ context.Context, _ string) error {
	return webdav.ErrForbidden // read only
}

// Rename @see os.Rename
func (fs *_FileSystem) Rename(_ context.Context, _, _ string) error {
	return webdav.ErrForbidden // read only
}

// ---------  Helper  ----------------------------------------------------------------------------------------------- //

// pathFix change the path to a map friendly format.
// The root call '/' need to be '.' and other paths cannot begin or end with '/'.
func pathFix(relPath string) string {
	relPath = strings.Trim(path.Clean("/"+relPath), "/")
	if relPath == "" {
		relPath = "."
	}
	return relPath
}

// startUpdateLoop is started by NewFileSystem in its own goroutine.
func (fs *_FileSystem) startUpdateLoop(updateInterval int) {
	if updateInterval < 1 {
		return
	}

	log.Infof("%s/FileSystem: start update loop with %d sec", packageName, updateInterval)
	for {
		time.Sleep(time.Duration(updateInterval) * time.Second)
		fs.Reload()
	}
}

// Reload reads the state file and rebuilds the tree.
// On errors the old tree is kept.
func (fs *_FileSystem) Reload() bool {
	unlock := fs.locker.Lock(fs.layout.Root)
	st, err := vault.Load(fs.layout.Root)
	var info os.FileInfo
	if err == nil {
		info, err = os.Stat(fs.layout.StateFile())
	}
	unlock()
	if err != nil {
		log.Warnf("%s/Reload: %v", packageName, err)
		return false
	}

	entries, err := buildTree(fs.layout, st, info.ModTime())
	if err != nil {
		log.Warnf("%s/Reload: %v", packageName, err)
		return false
	}

	fs.mux.Lock()
	fs.entries = entries
	fs.mux.Unlock()

	log.Debugf("%s/Reload: %d pads", packageName, len(st.Pads))
	return true
}

// buildTree creates all entries of the vault tree.
// Pads are listed in the area where their backing file actually is.
func buildTree(l vault.Layout, st *vault.State, stateMTime time.Time) (map[string]*_Entry, error) {
	buf := new(bytes.Buffer)
	if err := vault.ToWriter(st, buf); err != nil {
		return nil, err
	}

	availDir := path.Join(vault.PadDir, vault.AvailableDir)
	usedDir := path.Join(vault.PadDir, vault.UsedDir)

	entries := make(map[string]*_Entry)
	for _, dir := range []string{".", vault.PadDir, availDir, usedDir} {
		entries[dir] = &_Entry{relPath: dir, isDir: true, mTime: stateMTime}
	}
	entries[vault.StateFileName] = &_Entry{
		relPath: vault.StateFileName,
		size:    int64(buf.Len()),
		mTime:   stateMTime,
		data:    buf.Bytes(),
	}

	for _, id := range st.SortedIDs() {
		p, _ := st.Pad(id)
		diskPath, err := l.Locate(p)
		if err != nil {
			log.Warnf("%s/buildTree: pad '%s': %v", packageName, id, err)
			continue
		}
		info, err := os.Stat(diskPath)
		if err != nil {
			continue
		}

		dir := availDir
		if diskPath == l.UsedPath(p) {
			dir = usedDir
		}
		rel := path.Join(dir, path.Base(p.FileName))
		entries[rel] = &_Entry{
			relPath:  rel,
			size:     info.Size(),
			mTime:    info.ModTime(),
			diskPath: diskPath,
		}
	}

	// children
	for rel := range entries {
		if rel == "." {
			continue
		}
		parent := path.Dir(rel)
		if pe, ok := entries[parent]; ok {
			pe.children = append(pe.children, rel)
		}
	}
	for _, e := range entries {
		sort.Strings(e.children)
	}
	return entries, nil
}
