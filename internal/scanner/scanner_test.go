package scanner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialift/internal/logging"
	"medialift/internal/media"
)

func newTestScanner() *Scanner {
	classifier := media.NewClassifier([]string{"jpg", "png"}, []string{"mp4"})
	return NewScanner(classifier, logging.NewLogger(logging.ErrorLevel, io.Discard))
}

func writeFileWithModTime(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestScanner_Scan_FiltersAndOrdersByModTime(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2023, 3, 1, 12, 0, 0, 0, time.Local)

	writeFileWithModTime(t, filepath.Join(root, "newest.jpg"), base.Add(2*time.Hour))
	writeFileWithModTime(t, filepath.Join(root, "sub", "oldest.png"), base)
	writeFileWithModTime(t, filepath.Join(root, "sub", "middle.mp4"), base.Add(time.Hour))
	writeFileWithModTime(t, filepath.Join(root, "notes.txt"), base)
	writeFileWithModTime(t, filepath.Join(root, "raw.cr2"), base)

	found, err := newTestScanner().Scan(context.Background(), root, "")

	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, filepath.Join(root, "sub", "oldest.png"), found[0].Path)
	assert.Equal(t, filepath.Join(root, "sub", "middle.mp4"), found[1].Path)
	assert.Equal(t, filepath.Join(root, "newest.jpg"), found[2].Path)
	assert.Equal(t, int64(len("content")), found[0].Size)
}

func TestScanner_Scan_FolderFilterNarrowsWalk(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	writeFileWithModTime(t, filepath.Join(root, "outside.jpg"), now)
	writeFileWithModTime(t, filepath.Join(root, "2023", "inside.jpg"), now)

	found, err := newTestScanner().Scan(context.Background(), root, "2023")

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(root, "2023", "inside.jpg"), found[0].Path)
}

func TestScanner_Scan_MissingRoot(t *testing.T) {
	found, err := newTestScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "absent"), "")

	assert.Error(t, err)
	assert.Nil(t, found)
}

func TestScanner_Scan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFileWithModTime(t, filepath.Join(root, "a.jpg"), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	found, err := newTestScanner().Scan(ctx, root, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, found)
}

func TestScanner_Scan_EmptyTree(t *testing.T) {
	found, err := newTestScanner().Scan(context.Background(), t.TempDir(), "")

	require.NoError(t, err)
	assert.Empty(t, found)
}
