// Package fs is the filesystem side of the library: it enumerates sources
// for archive writers, places extracted items under a destination and
// manages the temporary output of a commit. Everything goes through afero
// so tests can run against an in-memory filesystem.
package fs

import (
	"io"
	stdfs "io/fs"
	"os"
	stdpath "path"
	"path/filepath"
	"strings"
	"time"

	"github.com/alist-org/arkit/pkg/errs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Overwrite decides what happens when an extracted file already exists.
type Overwrite int

const (
	OverwriteAll Overwrite = iota
	OverwriteSkip
	OverwriteFail
)

// FS wraps the afero filesystem the library works on.
type FS struct {
	afero.Fs
}

// OS is the host filesystem.
func OS() *FS {
	return &FS{Fs: afero.NewOsFs()}
}

// New wraps an afero filesystem.
func New(afs afero.Fs) *FS {
	return &FS{Fs: afs}
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) bool {
	ok, err := afero.Exists(f.Fs, path)
	return err == nil && ok
}

// IsDir reports whether path is a directory.
func (f *FS) IsDir(path string) bool {
	ok, err := afero.IsDir(f.Fs, path)
	return err == nil && ok
}

// OpenReaderAt opens path for random access reads and returns its size.
func (f *FS) OpenReaderAt(path string) (afero.File, int64, error) {
	file, err := f.Fs.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, 0, errs.Newf(errs.KindIsDirectory, "open", "%s is a directory", path)
	}
	return file, info.Size(), nil
}

// SafeJoin places an archive item path under dir. Absolute paths, volume
// names and paths that still climb out of dir once cleaned fail with
// errs.UnsafeArchivePath; they are never rewritten.
func SafeJoin(dir, name string) (string, error) {
	clean, err := CleanArchivePath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(clean)), nil
}

// CleanArchivePath normalises an archive item path to a relative, slash
// separated path, rejecting any that would escape the extraction root.
func CleanArchivePath(name string) (string, error) {
	p := strings.ReplaceAll(name, "\\", "/")
	unsafe := func(reason string) (string, error) {
		return "", errs.Newf(errs.KindUnsafeArchivePath, "extract", "%s: %q", reason, name).WithItem(-1, name)
	}
	if p == "" {
		return unsafe("empty path")
	}
	if strings.HasPrefix(p, "/") {
		return unsafe("absolute path")
	}
	if len(p) >= 2 && p[1] == ':' {
		return unsafe("volume name")
	}
	p = stdpath.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return unsafe("path traversal")
	}
	if p == "." {
		return unsafe("empty path")
	}
	return p, nil
}

// CreateFile opens path for an extracted item, creating parent directories
// first. skipped is set when policy keeps an existing file.
func (f *FS) CreateFile(path string, policy Overwrite) (file afero.File, skipped bool, err error) {
	if err = f.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, errors.WithStack(err)
	}
	if f.Exists(path) {
		switch policy {
		case OverwriteSkip:
			log.Debugf("skip existing file %s", path)
			return nil, true, nil
		case OverwriteFail:
			return nil, false, errors.Errorf("%s already exists", path)
		}
	}
	file, err = f.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	return file, false, nil
}

// FinishFile applies the permission bits and mtime of an item to the file
// written for it.
func (f *FS) FinishFile(path string, mode stdfs.FileMode, mtime time.Time) {
	f.setMeta(path, mode, mtime)
}

// WriteFile creates path from r.
func (f *FS) WriteFile(path string, r io.Reader, mode stdfs.FileMode, mtime time.Time, policy Overwrite) (written int64, skipped bool, err error) {
	file, skipped, err := f.CreateFile(path, policy)
	if err != nil || skipped {
		return 0, skipped, err
	}
	written, err = io.Copy(file, r)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, false, err
	}
	f.setMeta(path, mode, mtime)
	return written, false, nil
}

// MkdirItem creates a directory extracted from an archive.
func (f *FS) MkdirItem(path string, mode stdfs.FileMode, mtime time.Time) error {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o755
	}
	if err := f.MkdirAll(path, perm|0o700); err != nil {
		return errors.WithStack(err)
	}
	f.setMeta(path, 0, mtime)
	return nil
}

// SetDirTime restores a directory's mtime once its content is written.
func (f *FS) SetDirTime(path string, mtime time.Time) {
	f.setMeta(path, 0, mtime)
}

func (f *FS) setMeta(path string, mode stdfs.FileMode, mtime time.Time) {
	if perm := mode.Perm(); perm != 0 {
		if err := f.Chmod(path, perm); err != nil {
			log.Debugf("failed to chmod %s: %+v", path, err)
		}
	}
	if !mtime.IsZero() {
		if err := f.Chtimes(path, mtime, mtime); err != nil {
			log.Debugf("failed to set times of %s: %+v", path, err)
		}
	}
}
