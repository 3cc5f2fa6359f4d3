package tasks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanOldUploads(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	write := func(name string, age time.Duration) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		mod := now.Add(-age)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	write("old_1.jpg", 48*time.Hour)
	write("fresh_1.jpg", time.Hour)
	write("notes.txt", 48*time.Hour)

	removed := CleanOldUploads(dir, 24*time.Hour, now)
	assert.Equal(t, 1, removed)

	_, err := os.Stat(filepath.Join(dir, "old_1.jpg"))
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(dir, "fresh_1.jpg"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestCleanOldUploadsMissingDir(t *testing.T) {
	assert.Equal(t, 0, CleanOldUploads(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Now()))
}

func TestInitScheduler(t *testing.T) {
	c := InitScheduler(t.TempDir(), time.Hour)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}
