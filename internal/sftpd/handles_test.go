package sftpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTable(t *testing.T) {
	t.Run("FileAndDirHandlesAreDisjoint", func(t *testing.T) {
		table := newHandleTable()

		fileID := table.insertFile(&fakeFile{name: "/mnt/x/f"})
		dirID := table.insertDir(&dirCursor{path: "/mnt/x"})
		require.NotEqual(t, fileID, dirID)

		_, ok := table.lookupFile(fileID)
		assert.True(t, ok)
		_, ok = table.lookupDir(fileID)
		assert.False(t, ok)

		_, ok = table.lookupDir(dirID)
		assert.True(t, ok)
		_, ok = table.lookupFile(dirID)
		assert.False(t, ok)
	})

	t.Run("CloseRemovesExactlyOnce", func(t *testing.T) {
		table := newHandleTable()
		file := &fakeFile{name: "/mnt/x/f"}

		id := table.insertFile(file)
		assert.True(t, table.close(id))
		assert.True(t, file.closed)
		assert.False(t, table.close(id))
	})

	t.Run("CloseUnknownHandle", func(t *testing.T) {
		table := newHandleTable()
		assert.False(t, table.close("no-such-handle"))
	})

	t.Run("CloseAllReleasesEverything", func(t *testing.T) {
		table := newHandleTable()
		fileA := &fakeFile{name: "a"}
		fileB := &fakeFile{name: "b"}

		table.insertFile(fileA)
		table.insertFile(fileB)
		dirID := table.insertDir(&dirCursor{})

		table.closeAll()

		assert.True(t, fileA.closed)
		assert.True(t, fileB.closed)
		_, ok := table.lookupDir(dirID)
		assert.False(t, ok)
	})

	t.Run("IdentifiersAreUnique", func(t *testing.T) {
		table := newHandleTable()
		seen := make(map[string]bool)

		for i := 0; i < 100; i++ {
			id := table.insertFile(&fakeFile{})
			assert.False(t, seen[id])
			seen[id] = true
		}
	})
}
