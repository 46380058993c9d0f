package fs

import (
	stdfs "io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alist-org/arkit/internal/model"
	"github.com/maruel/natural"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Index enumerates dir recursively. Archive paths are relative to the parent
// of dir, so the directory itself becomes the first entry. Siblings are
// sorted in natural order.
func (f *FS) Index(dir string) ([]model.Entry, error) {
	dir = filepath.Clean(dir)
	info, err := f.Stat(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}
	parent := filepath.Dir(dir)
	var ret []model.Entry
	err = afero.Walk(f.Fs, dir, func(path string, info stdfs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		ret = append(ret, toEntry(path, filepath.ToSlash(rel), info))
		return nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to enumerate %s", dir)
	}
	SortEntries(ret)
	return ret, nil
}

// Entries describes a flat list of source paths. Each one is stored under
// its base name; directories are expanded with Index.
func (f *FS) Entries(paths []string) ([]model.Entry, error) {
	var ret []model.Entry
	for _, p := range paths {
		info, err := f.Stat(p)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if info.IsDir() {
			sub, err := f.Index(p)
			if err != nil {
				return nil, err
			}
			ret = append(ret, sub...)
			continue
		}
		ret = append(ret, toEntry(p, filepath.Base(p), info))
	}
	return ret, nil
}

// Entry describes a single source file stored under archivePath.
func (f *FS) Entry(path, archivePath string) (model.Entry, error) {
	info, err := f.Stat(path)
	if err != nil {
		return model.Entry{}, errors.WithStack(err)
	}
	return toEntry(path, archivePath, info), nil
}

func toEntry(path, archivePath string, info stdfs.FileInfo) model.Entry {
	e := model.Entry{
		Path:          path,
		NameInArchive: archivePath,
		IsDir:         info.IsDir(),
		Modified:      info.ModTime(),
		Mode:          info.Mode(),
	}
	if !e.IsDir {
		e.Size = info.Size()
	}
	return e
}

// SortEntries orders entries depth first, comparing path segments in
// natural order, so a directory always precedes its content.
func SortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a := strings.Split(entries[i].NameInArchive, "/")
		b := strings.Split(entries[j].NameInArchive, "/")
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return natural.Less(a[k], b[k])
			}
		}
		return len(a) < len(b)
	})
}

// Readlink returns the target of path when it is a symbolic link and the
// filesystem can tell.
func (f *FS) Readlink(path string) (string, bool) {
	lst, ok := f.Fs.(afero.Lstater)
	if !ok {
		return "", false
	}
	info, _, err := lst.LstatIfPossible(path)
	if err != nil || info.Mode()&stdfs.ModeSymlink == 0 {
		return "", false
	}
	lr, ok := f.Fs.(afero.LinkReader)
	if !ok {
		return "", false
	}
	target, err := lr.ReadlinkIfPossible(path)
	if err != nil {
		return "", false
	}
	return target, true
}
