package sftpd

import (
	"github.com/google/uuid"

	"github.com/calvera/sshfsd/internal/platform"
)

// dirCursor is a snapshot of directory entries taken at OPENDIR time,
// consumed front to back and never refreshed.
type dirCursor struct {
	path    string
	entries []platform.DirEntry
}

// handleTable issues opaque handle identifiers and keeps file and directory
// handles in disjoint maps, so a handle of one kind can never be served to a
// request expecting the other.
type handleTable struct {
	files map[string]platform.File
	dirs  map[string]*dirCursor
}

func newHandleTable() *handleTable {
	return &handleTable{
		files: make(map[string]platform.File),
		dirs:  make(map[string]*dirCursor),
	}
}

// newID returns a fresh opaque handle identifier. Identifiers are unique
// across both maps.
func newID() string {
	id := uuid.New()
	return string(id[:])
}

func (t *handleTable) insertFile(file platform.File) string {
	id := newID()
	t.files[id] = file
	return id
}

func (t *handleTable) insertDir(cursor *dirCursor) string {
	id := newID()
	t.dirs[id] = cursor
	return id
}

func (t *handleTable) lookupFile(id string) (platform.File, bool) {
	file, ok := t.files[id]
	return file, ok
}

func (t *handleTable) lookupDir(id string) (*dirCursor, bool) {
	cursor, ok := t.dirs[id]
	return cursor, ok
}

// close removes id from whichever map holds it, closing the file if it was
// a file handle. Returns false when the id is in neither map.
func (t *handleTable) close(id string) bool {
	if file, ok := t.files[id]; ok {
		file.Close()
		delete(t.files, id)
		return true
	}
	if _, ok := t.dirs[id]; ok {
		delete(t.dirs, id)
		return true
	}
	return false
}

// closeAll releases every handle. Called on session teardown.
func (t *handleTable) closeAll() {
	for id, file := range t.files {
		file.Close()
		delete(t.files, id)
	}
	for id := range t.dirs {
		delete(t.dirs, id)
	}
}
