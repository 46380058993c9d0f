package tar

import (
	"archive/tar"
	"io"
	"io/fs"
	stdpath "path"
	"strings"
	"time"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/mholt/archives"
)

// POSIX file type bits as stored in st_mode.
const (
	modeDir     = 0o040000
	modeRegular = 0o100000
	modeSymlink = 0o120000
)

func posixMode(m fs.FileMode) uint32 {
	ret := uint32(m.Perm())
	switch {
	case m.IsDir():
		ret |= modeDir
	case m&fs.ModeSymlink != 0:
		ret |= modeSymlink
	case m.IsRegular():
		ret |= modeRegular
	}
	return ret
}

func toEntry(f archives.FileInfo) tool.Entry {
	e := tool.Entry{
		Path:        strings.TrimSuffix(f.NameInArchive, "/"),
		IsDir:       f.IsDir(),
		MTime:       f.ModTime(),
		PosixAttrib: posixMode(f.Mode()),
		SymLink:     f.LinkTarget,
		HostOS:      "Unix",
	}
	if hdr, ok := f.Header.(*tar.Header); ok {
		e.ATime = hdr.AccessTime
		e.CTime = hdr.ChangeTime
		if hdr.Typeflag == tar.TypeLink {
			e.SymLink = ""
		}
	}
	if !e.IsDir && f.Size() > 0 {
		e.Size = uint64(f.Size())
		// content is padded to whole 512 byte blocks
		e.PackSize = (e.Size + 511) &^ 511
	}
	return e
}

// itemInfo describes an update item to the archive writer.
type itemInfo struct {
	it tool.UpdateItem
}

func (i itemInfo) Name() string { return stdpath.Base(i.it.Path) }
func (i itemInfo) Size() int64 {
	if i.it.IsDir {
		return 0
	}
	return i.it.Size
}
func (i itemInfo) ModTime() time.Time { return i.it.ModTime }
func (i itemInfo) IsDir() bool        { return i.it.IsDir }
func (i itemInfo) Sys() any           { return nil }
func (i itemInfo) Mode() fs.FileMode {
	mode := i.it.Mode
	if i.it.IsDir {
		mode |= fs.ModeDir
		if mode.Perm() == 0 {
			mode |= 0o755
		}
	} else if mode.Perm() == 0 {
		mode |= 0o644
	}
	return mode
}

// itemFile adapts an update item's reader to fs.File and reports progress
// through the update callback.
type itemFile struct {
	io.ReadCloser
	info   itemInfo
	report func(n int) bool
}

func (f *itemFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

func (f *itemFile) Read(p []byte) (int, error) {
	n, err := f.ReadCloser.Read(p)
	if n > 0 && f.report != nil && !f.report(n) {
		return n, errs.New(errs.KindOperationCancelled, "update", "cancelled by callback")
	}
	return n, err
}

func toFileInfo(it tool.UpdateItem, report func(n int) bool) archives.FileInfo {
	info := itemInfo{it: it}
	name := strings.TrimSuffix(it.Path, "/")
	if it.IsDir {
		name += "/"
	}
	return archives.FileInfo{
		FileInfo:      info,
		NameInArchive: name,
		LinkTarget:    it.LinkTarget,
		Open: func() (fs.File, error) {
			if it.Open == nil {
				return &itemFile{ReadCloser: io.NopCloser(strings.NewReader("")), info: info}, nil
			}
			rc, err := it.Open()
			if err != nil {
				return nil, err
			}
			return &itemFile{ReadCloser: rc, info: info, report: report}, nil
		},
	}
}
