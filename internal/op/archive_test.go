package op

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alist-org/arkit/pkg/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSample(t *testing.T) *archive.Reader {
	t.Helper()
	lib, err := archive.Load()
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	target := filepath.Join(t.TempDir(), "sample.zip")
	w, err := lib.NewWriter(archive.NewHandler(), target)
	require.NoError(t, err)
	for _, name := range []string{"docs/b10.txt", "docs/b2.txt", "readme.md", "src/pkg/main.go"} {
		require.NoError(t, w.AddBytes([]byte(name), name))
	}
	require.NoError(t, w.ApplyChanges(context.Background()))
	require.NoError(t, w.Close())
	r, err := lib.OpenReader(archive.NewHandler(), target)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestArchiveMeta(t *testing.T) {
	r := openSample(t)
	meta := ArchiveMeta(r)
	assert.Equal(t, "sample.zip", meta.Name)
	assert.Equal(t, "Zip", meta.Format)
	assert.EqualValues(t, 4, meta.Items)
	assert.EqualValues(t, 4, meta.Files)
	assert.EqualValues(t, 1, meta.Volumes)
	assert.False(t, meta.Encrypted)
	assert.False(t, meta.Modified.IsZero())
}

func TestArchiveList(t *testing.T) {
	r := openSample(t)
	objs := ArchiveList(r, true)
	var got []string
	for _, o := range objs {
		got = append(got, o.Path)
	}
	assert.Equal(t, []string{"docs/b2.txt", "docs/b10.txt", "readme.md", "src/pkg/main.go"}, got)
	assert.Equal(t, 1, objs[0].Index)
	assert.Len(t, objs[0].CRC, 8)
}

func TestArchiveDir(t *testing.T) {
	r := openSample(t)
	root, err := ArchiveDir(r, "/")
	require.NoError(t, err)
	var names []string
	for _, o := range root {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"docs", "readme.md", "src"}, names)
	assert.True(t, root[0].IsDir)
	assert.Equal(t, -1, root[0].Index)

	src, err := ArchiveDir(r, "src")
	require.NoError(t, err)
	require.Len(t, src, 1)
	assert.Equal(t, "src/pkg", src[0].Path)

	_, err = ArchiveDir(r, "missing")
	assert.Error(t, err)
	_, err = ArchiveDir(r, "readme.md")
	assert.Error(t, err)
}
