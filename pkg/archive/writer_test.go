package archive

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	lib := load(t)
	for _, n := range []int{0, 1, 1000} {
		for _, ext := range []string{".zip", ".tar"} {
			t.Run(fmt.Sprintf("%s/%d", strings.TrimPrefix(ext, "."), n), func(t *testing.T) {
				target := filepath.Join(t.TempDir(), "out"+ext)
				files := names(n)
				build(t, lib, target, files)

				r, err := lib.OpenReader(NewHandler(), target)
				require.NoError(t, err)
				defer r.Close()
				require.EqualValues(t, n, r.ItemsCount())
				for i, it := range r.All() {
					content := "content of " + files[i]
					assert.Equal(t, files[i], it.Path())
					assert.EqualValues(t, len(content), it.Size())
					if crc := it.CRC(); !crc.IsEmpty() {
						v, err := crc.AsUint32()
						require.NoError(t, err)
						assert.Equal(t, crc32.ChecksumIEEE([]byte(content)), v)
					}
				}
				if n > 0 {
					data, err := r.ExtractBytes(ctx, uint32(n-1))
					require.NoError(t, err)
					assert.Equal(t, "content of "+files[n-1], string(data))
				}
				assert.NoError(t, r.Test(ctx))
			})
		}
	}
}

func TestApplyChangesTwice(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "twice.zip")
	w, err := lib.NewWriter(NewHandler(), target)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddBytes([]byte("hello"), "hello.txt"))
	require.NoError(t, w.ApplyChanges(ctx))
	before, err := os.ReadFile(target)
	require.NoError(t, err)

	require.NoError(t, w.ApplyChanges(ctx))
	assert.Equal(t, Committed, w.State())
	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.EqualValues(t, 1, w.ItemsCount())
}

func TestDeleteRenumbers(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "five.zip")
	files := []string{"a", "b", "c", "d", "e"}
	build(t, lib, target, files)

	w, err := lib.NewWriter(NewHandler(), target, WithUpdateMode(UpdateUpdate))
	require.NoError(t, err)
	defer w.Close()
	require.EqualValues(t, 5, w.ItemsCount())
	require.NoError(t, w.DeleteItem(3))
	assert.EqualValues(t, 4, w.ItemsCount())
	require.NoError(t, w.ApplyChanges(ctx))
	assert.EqualValues(t, 4, w.ItemsCount())
	assert.Zero(t, w.PendingCount())

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"a", "b", "c", "e"}, paths(t, r))
	it, err := r.Item(3)
	require.NoError(t, err)
	assert.Equal(t, "e", it.Path())
	data, err := r.ExtractBytes(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "content of e", string(data))
}

func TestEditRules(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "edit.zip")
	build(t, lib, target, []string{"a.txt", "b.txt", "c.txt"})

	w, err := lib.NewWriter(NewHandler(), target, WithUpdateMode(UpdateUpdate))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.RenameItem(0, "dir/renamed.txt"))
	require.NoError(t, w.UpdateItem(0, FromBytes([]byte("new a"))))
	assert.ErrorIs(t, w.UpdateItem(0, FromBytes([]byte("again"))), errs.UnsupportedOperation)
	assert.ErrorIs(t, w.DeleteItem(0), errs.UnsupportedOperation)

	require.NoError(t, w.DeleteItemByPath("b.txt"))
	assert.ErrorIs(t, w.DeleteItem(1), errs.InvalidIndex)
	assert.ErrorIs(t, w.RenameItem(1, "x"), errs.InvalidIndex)

	err = w.DeleteItemByPath("missing.txt")
	assert.ErrorIs(t, err, errs.InvalidIndex)
	assert.ErrorIs(t, err, errs.PathNotFound)
	assert.ErrorIs(t, w.RenameItem(2, "dir/renamed.txt"), errs.DuplicateItemPath)
	assert.ErrorIs(t, w.RenameItem(7, "x"), errs.InvalidIndex)
	require.NoError(t, w.AddBytes(nil, "c.txt"))
	assert.ErrorIs(t, w.AddBytes([]byte("twice"), "c.txt"), errs.UnsupportedOperation)

	assert.Equal(t, 3, w.PendingCount())
	require.NoError(t, w.ApplyChanges(ctx))

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"dir/renamed.txt", "c.txt"}, paths(t, r))
	all, err := r.ExtractAllBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new a", string(all["dir/renamed.txt"]))
	assert.Equal(t, "", string(all["c.txt"]))
}

func TestAppendMode(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "append.zip")
	build(t, lib, target, []string{"a", "b"})

	w, err := lib.NewWriter(NewHandler(), target, WithUpdateMode(UpdateAppend))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddBytes([]byte("content of a"), "a"))
	assert.Zero(t, w.PendingCount())
	assert.ErrorIs(t, w.AddBytes([]byte("changed"), "./b"), errs.DuplicateItemPath)
	require.NoError(t, w.AddBytes([]byte("new"), "c"))
	assert.ErrorIs(t, w.AddBytes([]byte("new"), "c"), errs.DuplicateItemPath)
	assert.ErrorIs(t, w.AddBytes([]byte("x"), "../escape"), errs.UnsafeArchivePath)
	require.NoError(t, w.ApplyChanges(ctx))

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"a", "b", "c"}, paths(t, r))
}

func TestAppendModeKeepsExisting(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "append.zip")
	build(t, lib, target, []string{"a", "b"})

	w, err := lib.NewWriter(NewHandler(), target, WithUpdateMode(UpdateAppend))
	require.NoError(t, err)
	defer w.Close()
	assert.ErrorIs(t, w.DeleteItem(0), errs.UnsupportedOperation)
	assert.ErrorIs(t, w.DeleteItemByPath("b"), errs.UnsupportedOperation)
	assert.ErrorIs(t, w.RenameItem(1, "c"), errs.UnsupportedOperation)
	assert.ErrorIs(t, w.UpdateItem(0, FromBytes([]byte("changed"))), errs.UnsupportedOperation)
	assert.Zero(t, w.PendingCount())
	require.NoError(t, w.ApplyChanges(ctx))

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"a", "b"}, paths(t, r))
}

func TestEncryptedZipKeepsMetadata(t *testing.T) {
	lib := load(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(src, []byte("classified"), 0o600))
	mtime := time.Date(2021, 6, 15, 10, 30, 20, 0, time.Local)
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	zeros := bytes.Repeat([]byte{0}, 100000)

	h := NewHandler(WithPassword("secret"))
	target := filepath.Join(dir, "locked.zip")
	w, err := lib.NewWriter(h, target, WithLevel(format.LevelNone))
	require.NoError(t, err)
	require.NoError(t, w.AddFile(src, "secret.txt"))
	require.NoError(t, w.AddBytes(zeros, "zeros.bin"))
	require.NoError(t, w.ApplyChanges(ctx))
	require.NoError(t, w.Close())

	check := func(name string) {
		t.Helper()
		r, err := lib.OpenReader(h, target)
		require.NoError(t, err)
		defer r.Close()
		it, err := r.Find("secret.txt")
		require.NoError(t, err)
		assert.True(t, it.IsEncrypted())
		got, err := it.ModTime().AsFileTime()
		require.NoError(t, err)
		assert.Equal(t, mtime.Format(time.DateTime), got.Format(time.DateTime))
		assert.Equal(t, os.FileMode(0o600), it.Mode().Perm())

		it, err = r.Find(name)
		require.NoError(t, err)
		assert.True(t, it.IsEncrypted())
		method, err := it.Property(prop.Method)
		require.NoError(t, err)
		assert.Equal(t, prop.String("Copy"), method)
		assert.GreaterOrEqual(t, it.PackSize(), uint64(len(zeros)))
		data, err := r.ExtractBytes(ctx, it.Index())
		require.NoError(t, err)
		assert.Equal(t, zeros, data)
	}
	check("zeros.bin")

	w, err = lib.NewWriter(h, target, WithUpdateMode(UpdateUpdate), WithLevel(format.LevelNone))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.RenameItemByPath("zeros.bin", "renamed.bin"))
	require.NoError(t, w.ApplyChanges(ctx))
	check("renamed.bin")
}

func TestUpdateNoneRejectsExisting(t *testing.T) {
	lib := load(t)
	target := filepath.Join(t.TempDir(), "exists.zip")
	build(t, lib, target, []string{"a"})

	_, err := lib.NewWriter(NewHandler(), target)
	assert.ErrorIs(t, err, errs.UnsupportedOperation)

	w, err := lib.NewWriter(NewHandler(), target, WithUpdateMode(UpdateOverwrite))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddBytes([]byte("z"), "z"))
	require.NoError(t, w.ApplyChanges(ctx))
	assert.Equal(t, UpdateAppend, w.Mode())

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"z"}, paths(t, r))
}

func TestValidation(t *testing.T) {
	lib := load(t)
	dir := t.TempDir()

	w, err := lib.NewWriter(NewHandler(WithPassword("secret")), filepath.Join(dir, "a.tar"))
	require.NoError(t, err)
	require.NoError(t, w.AddBytes([]byte("x"), "x"))
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.UnsupportedOperation)
	require.NoError(t, w.Close())

	w, err = lib.NewWriter(NewHandler(), filepath.Join(dir, "a.gz"))
	require.NoError(t, err)
	require.NoError(t, w.AddBytes([]byte("x"), "x"))
	require.NoError(t, w.AddBytes([]byte("y"), "y"))
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.UnsupportedOperation)
	require.NoError(t, w.Close())

	w, err = lib.NewWriter(NewHandler(), filepath.Join(dir, "a.tar"), WithLevel(format.LevelMax))
	require.NoError(t, err)
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.UnsupportedOperation)
	require.NoError(t, w.Close())

	w, err = lib.NewWriter(NewHandler(), filepath.Join(dir, "a.zip"), WithMethod(format.MethodPpmd))
	require.NoError(t, err)
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.UnsupportedOperation)
	require.NoError(t, w.Close())

	w, err = lib.NewWriter(NewHandler(), filepath.Join(dir, "a.7z"))
	require.NoError(t, err)
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.UnsupportedOperation, "no 7z writer")
	require.NoError(t, w.Close())

	_, err = lib.NewWriter(NewHandler(), filepath.Join(dir, "a.rar"))
	assert.ErrorIs(t, err, errs.UnsupportedOperation)
	_, err = lib.NewWriter(NewHandler(), filepath.Join(dir, "a.unknown"))
	assert.ErrorIs(t, err, errs.UnsupportedFormat)

	assert.Empty(t, listDir(t, dir))
}

func TestCommitCancelRollsBack(t *testing.T) {
	lib := load(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "keep.zip")
	build(t, lib, target, []string{"a", "b"})
	before, err := os.ReadFile(target)
	require.NoError(t, err)

	h := NewHandler(WithProgress(func(uint64) bool { return false }))
	w, err := lib.NewWriter(h, target, WithUpdateMode(UpdateAppend))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddBytes([]byte("c"), "c"))
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.OperationCancelled)
	assert.Equal(t, Failed, w.State())
	assert.ErrorIs(t, w.AddBytes([]byte("d"), "d"), errs.UnsupportedOperation)

	after, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"keep.zip"}, listDir(t, dir))
}

func TestWriterCallbacks(t *testing.T) {
	lib := load(t)
	var (
		total  uint64
		seen   []string
		ratios int
	)
	h := NewHandler(
		WithTotal(func(n uint64) { total = n }),
		WithFileName(func(name string) { seen = append(seen, name) }),
		WithRatio(func(in, out uint64) bool {
			ratios++
			return true
		}),
	)
	w, err := lib.NewWriter(h, filepath.Join(t.TempDir(), "cb.zip"))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddBytes([]byte("12345"), "one"))
	require.NoError(t, w.AddBytes([]byte("678"), "two"))
	require.NoError(t, w.ApplyChanges(ctx))
	assert.EqualValues(t, 8, total)
	assert.Equal(t, []string{"one", "two"}, seen)
	assert.Equal(t, 2, ratios)
}

func TestAddDirectory(t *testing.T) {
	lib := load(t)
	src := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "img10.txt"), []byte("10"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "img2.txt"), []byte("2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep.txt"), []byte("deep"), 0o600))

	target := filepath.Join(t.TempDir(), "tree.tar")
	w, err := lib.NewWriter(NewHandler(), target)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddDirectory(src))
	assert.ErrorIs(t, w.AddDirectory(src), errs.DuplicateItemPath)
	require.NoError(t, w.ApplyChanges(ctx))

	r, err := lib.OpenReader(NewHandler(), target)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"tree", "tree/img2.txt", "tree/img10.txt", "tree/sub", "tree/sub/deep.txt"}, paths(t, r))
	assert.EqualValues(t, 3, r.FilesCount())
	assert.EqualValues(t, 2, r.FoldersCount())
	it, err := r.Find("tree/sub/deep.txt")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), it.Mode().Perm())

	out := t.TempDir()
	require.NoError(t, r.Extract(ctx, out))
	assert.Equal(t, "deep", readFile(t, filepath.Join(out, "tree", "sub", "deep.txt")))
	info, err := os.Stat(filepath.Join(out, "tree", "sub", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAddFiles(t *testing.T) {
	lib := load(t)
	dir := t.TempDir()
	one := filepath.Join(dir, "one.txt")
	require.NoError(t, os.WriteFile(one, []byte("1"), 0o644))

	w, err := lib.NewWriter(NewHandler(WithFormat(format.Tar.In())), "")
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddFiles([]string{one}))
	require.NoError(t, w.AddFile(one, "copy/one.txt"))
	require.NoError(t, w.AddReader(strings.NewReader("from reader"), "reader.txt"))
	assert.ErrorIs(t, w.AddFile(dir, ""), errs.IsDirectory)
	assert.ErrorIs(t, w.ApplyChanges(ctx), errs.UnsupportedOperation, "no target")

	data, err := w.Bytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, w.PendingCount())

	r, err := lib.OpenReaderFrom(NewHandler(), bytes.NewReader(data), int64(len(data)), "memory.bin")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, format.Tar.In(), r.Format())
	assert.Equal(t, []string{"one.txt", "copy/one.txt", "reader.txt"}, paths(t, r))
	got, err := r.ExtractBytes(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "from reader", string(got))
}

func TestVolumes(t *testing.T) {
	lib := load(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "split.zip")
	content := bytes.Repeat([]byte("0123456789"), 100)
	w, err := lib.NewWriter(NewHandler(), target, WithVolumeSize(300), WithLevel(format.LevelNone))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddBytes(content, "data.bin"))
	require.NoError(t, w.ApplyChanges(ctx))
	assert.False(t, lib.fs.Exists(target))
	assert.True(t, lib.fs.Exists(target+".001"))
	assert.True(t, lib.fs.Exists(target+".004"))

	r, err := lib.OpenReader(NewHandler(WithFormat(format.Zip.In())), target+".002")
	require.NoError(t, err)
	defer r.Close()
	assert.True(t, r.IsMultiVolume())
	assert.Greater(t, r.VolumesCount(), uint32(3))
	got, err := r.ExtractBytes(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, prop.Uint32(r.VolumesCount()), r.ArchiveProperty(prop.NumVolumes))

	assert.ErrorIs(t, w.WriteTo(ctx, &bytes.Buffer{}), errs.UnsupportedOperation)
}
