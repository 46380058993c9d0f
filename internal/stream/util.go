package stream

import (
	"io"
	"sort"

	"github.com/alist-org/arkit/pkg/errs"
	"github.com/pkg/errors"
)

// ProgressWriter counts bytes written and calls Report every Step bytes and
// on Flush. A false return cancels the write with errs.OperationCancelled.
type ProgressWriter struct {
	W      io.Writer
	Step   int64
	Report func(written int64) bool

	written int64
	last    int64
}

func (w *ProgressWriter) Write(p []byte) (int, error) {
	n, err := w.W.Write(p)
	w.written += int64(n)
	if err != nil {
		return n, err
	}
	if w.Report != nil && w.Step > 0 && w.written-w.last >= w.Step {
		w.last = w.written
		if !w.Report(w.written) {
			return n, errs.New(errs.KindOperationCancelled, "write", "cancelled by callback")
		}
	}
	return n, nil
}

// Written is the number of bytes written so far.
func (w *ProgressWriter) Written() int64 {
	return w.written
}

// MultiReaderAt presents a sequence of volumes as one contiguous stream.
type MultiReaderAt struct {
	parts []part
	size  int64
}

type part struct {
	r      io.ReaderAt
	offset int64
	size   int64
}

type SizedReaderAt interface {
	io.ReaderAt
	Size() int64
}

func NewMultiReaderAt(ss []SizedReaderAt) (*MultiReaderAt, error) {
	if len(ss) == 0 {
		return nil, errors.New("no volumes")
	}
	m := &MultiReaderAt{}
	for _, s := range ss {
		m.parts = append(m.parts, part{r: s, offset: m.size, size: s.Size()})
		m.size += s.Size()
	}
	return m, nil
}

func (m *MultiReaderAt) Size() int64 {
	return m.size
}

func (m *MultiReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= m.size {
		return 0, io.EOF
	}
	idx := sort.Search(len(m.parts), func(i int) bool {
		return m.parts[i].offset+m.parts[i].size > off
	})
	total := 0
	for idx < len(m.parts) && total < len(p) {
		pt := m.parts[idx]
		rel := off + int64(total) - pt.offset
		want := min(int64(len(p)-total), pt.size-rel)
		n, err := pt.r.ReadAt(p[total:total+int(want)], rel)
		total += n
		if err != nil && err != io.EOF {
			return total, err
		}
		if int64(n) < want {
			return total, io.ErrUnexpectedEOF
		}
		idx++
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}
