package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func load(t *testing.T, opts ...LibraryOption) *Library {
	t.Helper()
	lib, err := Load(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

// build commits files, in order, to a new archive at target.
func build(t *testing.T, lib *Library, target string, files []string, opts ...WriterOption) {
	t.Helper()
	w, err := lib.NewWriter(NewHandler(), target, opts...)
	require.NoError(t, err)
	defer w.Close()
	for _, name := range files {
		require.NoError(t, w.AddBytes([]byte("content of "+name), name))
	}
	require.NoError(t, w.ApplyChanges(ctx))
}

func names(n int) []string {
	ret := make([]string, n)
	for i := range ret {
		ret[i] = fmt.Sprintf("file%04d.txt", i)
	}
	return ret
}

func paths(t *testing.T, r *Reader) []string {
	t.Helper()
	var ret []string
	for _, it := range r.All() {
		ret = append(ret, it.Path())
	}
	return ret
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	var ret []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != dir {
			rel, _ := filepath.Rel(dir, path)
			ret = append(ret, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	return ret
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
