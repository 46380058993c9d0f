package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alist-org/arkit/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRejectsUnsafePaths(t *testing.T) {
	lib := load(t)
	data := zipWith(t, map[string]string{
		"ok.txt":           "fine",
		"../../etc/passwd": "root:x:0:0",
	}, "ok.txt", "../../etc/passwd")
	r, err := lib.OpenReaderFrom(NewHandler(), bytes.NewReader(data), int64(len(data)), "evil.zip")
	require.NoError(t, err)
	defer r.Close()

	root := t.TempDir()
	dest := filepath.Join(root, "a", "b")
	err = r.Extract(ctx, dest)
	assert.ErrorIs(t, err, errs.ExtractionPartialFailure)
	assert.ErrorIs(t, err, errs.UnsafeArchivePath)
	var pf *errs.PartialFailure
	require.ErrorAs(t, err, &pf)
	require.Len(t, pf.Failures, 1)
	assert.Equal(t, "../../etc/passwd", pf.Failures[0].Path)

	assert.Equal(t, "fine", readFile(t, filepath.Join(dest, "ok.txt")))
	assert.Equal(t, []string{"a", "a/b", "a/b/ok.txt"}, listDir(t, root))

	err = r.ExtractItems(ctx, []uint32{1}, dest)
	assert.ErrorIs(t, err, errs.UnsafeArchivePath)

	ff, err := lib.OpenReaderFrom(NewHandler(WithFailFast(true)), bytes.NewReader(data), int64(len(data)), "evil.zip")
	require.NoError(t, err)
	defer ff.Close()
	err = ff.Extract(ctx, t.TempDir())
	assert.ErrorIs(t, err, errs.UnsafeArchivePath)
	assert.NotErrorIs(t, err, errs.ExtractionPartialFailure)
}

func TestExtractItemsValidatesFirst(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "five.zip")
	build(t, lib, target, []string{"a", "b", "c", "d", "e"})
	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()

	dest := t.TempDir()
	assert.ErrorIs(t, r.ExtractItems(ctx, []uint32{0, 7}, dest), errs.InvalidIndex)
	assert.ErrorIs(t, r.ExtractItems(ctx, []uint32{1, 1}, dest), errs.InvalidIndex)
	assert.Empty(t, listDir(t, dest))

	require.NoError(t, r.ExtractItems(ctx, []uint32{4, 0}, dest))
	assert.Equal(t, []string{"a", "e"}, listDir(t, dest))
}

func TestExtractPolicies(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "nested.tar")
	w, err := lib.NewWriter(NewHandler(), target)
	require.NoError(t, err)
	require.NoError(t, w.AddBytes([]byte("one"), "dir/one.txt"))
	require.NoError(t, w.AddBytes([]byte("two"), "dir/sub/two.txt"))
	require.NoError(t, w.ApplyChanges(ctx))
	require.NoError(t, w.Close())

	dest := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "dir", "one.txt"), []byte("mine"), 0o644))

	skip, err := lib.OpenReader(NewHandler(WithOverwrite(OverwriteSkip)), target)
	require.NoError(t, err)
	defer skip.Close()
	require.NoError(t, skip.Extract(ctx, dest))
	assert.Equal(t, "mine", readFile(t, filepath.Join(dest, "dir", "one.txt")))
	assert.Equal(t, "two", readFile(t, filepath.Join(dest, "dir", "sub", "two.txt")))

	fail, err := lib.OpenReader(NewHandler(WithOverwrite(OverwriteFail)), target)
	require.NoError(t, err)
	defer fail.Close()
	assert.ErrorIs(t, fail.Extract(ctx, dest), errs.ExtractionPartialFailure)

	all, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer all.Close()
	require.NoError(t, all.Extract(ctx, dest))
	assert.Equal(t, "one", readFile(t, filepath.Join(dest, "dir", "one.txt")))

	flat, err := lib.OpenReader(NewHandler(WithRetainDirectories(false)), target)
	require.NoError(t, err)
	defer flat.Close()
	flatDest := t.TempDir()
	require.NoError(t, flat.Extract(ctx, flatDest))
	assert.Equal(t, []string{"one.txt", "two.txt"}, listDir(t, flatDest))

	matching := t.TempDir()
	require.NoError(t, all.ExtractMatching(ctx, "two.*", matching))
	assert.Equal(t, []string{"dir", "dir/sub", "dir/sub/two.txt"}, listDir(t, matching))
	assert.ErrorIs(t, all.ExtractMatching(ctx, "*.bin", matching), errs.InvalidIndex)
}

func TestExtractToDirectory(t *testing.T) {
	lib := load(t)
	src := filepath.Join(t.TempDir(), "folder")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("f"), 0o644))
	target := filepath.Join(t.TempDir(), "folder.zip")
	w, err := lib.NewWriter(NewHandler(), target)
	require.NoError(t, err)
	require.NoError(t, w.AddDirectory(src))
	require.NoError(t, w.ApplyChanges(ctx))
	require.NoError(t, w.Close())

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	dir, err := r.Find("folder")
	require.NoError(t, err)
	assert.True(t, dir.IsDir())
	_, err = r.ExtractBytes(ctx, dir.Index())
	assert.ErrorIs(t, err, errs.IsDirectory)

	all, err := r.ExtractAllBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"folder/f.txt": []byte("f")}, all)
	assert.NoError(t, r.TestItem(ctx, 1))
}

func TestExtractCancel(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "cancel.zip")
	build(t, lib, target, []string{"a", "b", "c"})

	calls := 0
	var seen []string
	h := NewHandler(
		WithProgress(func(uint64) bool {
			calls++
			return false
		}),
		WithFileName(func(name string) { seen = append(seen, name) }),
	)
	r, err := lib.OpenReader(h, target)
	require.NoError(t, err)
	defer r.Close()
	dest := t.TempDir()
	assert.ErrorIs(t, r.Extract(ctx, dest), errs.OperationCancelled)
	assert.Equal(t, []string{"a"}, listDir(t, dest))
	assert.Equal(t, []string{"a"}, seen)
	assert.Equal(t, 1, calls)

	cancelled, cancel := contextWithCancel()
	cancel()
	plain, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer plain.Close()
	assert.ErrorIs(t, plain.Extract(cancelled, t.TempDir()), errs.OperationCancelled)
}

func TestExtractProgress(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "progress.zip")
	build(t, lib, target, []string{"a", "b"})

	var total, last uint64
	h := NewHandler(
		WithTotal(func(n uint64) { total = n }),
		WithProgress(func(done uint64) bool {
			last = done
			return true
		}),
	)
	r, err := lib.OpenReader(h, target)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Test(ctx))
	assert.EqualValues(t, 2*len("content of a"), total)
	assert.Equal(t, total, last)
}
