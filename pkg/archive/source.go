package archive

import (
	"bytes"
	"io"
	stdfs "io/fs"
	"time"

	"github.com/alist-org/arkit/internal/fs"
	"github.com/alist-org/arkit/internal/model"
	"github.com/pkg/errors"
)

// Source is the content of an item added to or updated in an archive.
type Source struct {
	path   string
	data   []byte
	reader io.Reader
	isDir  bool
	size   int64
	mtime  time.Time
	mode   stdfs.FileMode
	link   string
}

// FromFile takes the content of a file on the library filesystem. It is
// read at commit time.
func FromFile(path string) Source {
	return Source{path: path}
}

// FromBytes takes the content from memory.
func FromBytes(data []byte) Source {
	return Source{data: data}
}

// FromReader takes the content from r, which is read when the source is
// handed to a writer.
func FromReader(r io.Reader) Source {
	return Source{reader: r}
}

// resolve fills in size, time and mode. Readers are drained into memory so
// codecs that need the size up front can use them.
func (s Source) resolve(f *fs.FS, storeSymlinks bool) (Source, error) {
	switch {
	case s.reader != nil:
		data, err := io.ReadAll(s.reader)
		if err != nil {
			return s, errors.WithMessage(err, "failed to read source")
		}
		s.reader, s.data = nil, data
		fallthrough
	case s.path == "":
		if s.data == nil {
			s.data = []byte{}
		}
		s.size = int64(len(s.data))
		if s.mtime.IsZero() {
			s.mtime = time.Now()
		}
		return s, nil
	}
	if storeSymlinks {
		if target, ok := f.Readlink(s.path); ok {
			s.link, s.data = target, []byte(target)
			s.size = int64(len(target))
			s.mode = stdfs.ModeSymlink | 0o777
			s.mtime = time.Now()
			return s, nil
		}
	}
	info, err := f.Stat(s.path)
	if err != nil {
		return s, errors.WithStack(err)
	}
	s.isDir = info.IsDir()
	s.mtime = info.ModTime()
	s.mode = info.Mode()
	if !s.isDir {
		s.size = info.Size()
	}
	return s, nil
}

func entrySource(e model.Entry) Source {
	return Source{path: e.Path, isDir: e.IsDir, size: e.Size, mtime: e.Modified, mode: e.Mode}
}

func (s Source) opener(f *fs.FS) func() (io.ReadCloser, error) {
	switch {
	case s.isDir:
		return nil
	case s.data != nil:
		data := s.data
		return func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	path := s.path
	return func() (io.ReadCloser, error) {
		file, err := f.Open(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return file, nil
	}
}

// equalContent compares two streams chunk by chunk.
func equalContent(a, b io.Reader) (bool, error) {
	const chunk = 32 << 10
	bufA := make([]byte, chunk)
	bufB := make([]byte, chunk)
	for {
		na, errA := io.ReadFull(a, bufA)
		nb, errB := io.ReadFull(b, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		endA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		endB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !endA {
			return false, errA
		}
		if errB != nil && !endB {
			return false, errB
		}
		if endA || endB {
			return endA && endB, nil
		}
	}
}
