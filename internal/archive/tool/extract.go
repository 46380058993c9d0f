package tool

import (
	"context"
	"io"

	"github.com/alist-org/arkit/pkg/prop"
	mapset "github.com/deckarep/golang-set/v2"
)

// Selection is the set of item indices an extraction asked for.
type Selection struct {
	all  bool
	set  mapset.Set[uint32]
	left int
}

// Select builds a selection; nil selects every item.
func Select(indices []uint32) *Selection {
	if indices == nil {
		return &Selection{all: true}
	}
	set := mapset.NewThreadUnsafeSet[uint32](indices...)
	return &Selection{set: set, left: set.Cardinality()}
}

// Take reports whether index is selected and marks it handled.
func (s *Selection) Take(index uint32) bool {
	if s.all {
		return true
	}
	if !s.set.Contains(index) {
		return false
	}
	s.left--
	return true
}

// Done reports whether every selected item has been handled.
func (s *Selection) Done() bool {
	return !s.all && s.left <= 0
}

// Indices returns the selected indices below n in ascending order.
func (s *Selection) Indices(n uint32) []uint32 {
	ret := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		if s.all || s.set.Contains(i) {
			ret = append(ret, i)
		}
	}
	return ret
}

// ExtractIndexed drives cb over the selected items of an archive whose items
// can be opened individually.
func ExtractIndexed(ctx context.Context, a InArchive, indices []uint32, cb ExtractCallback) (Status, error) {
	selected := Select(indices).Indices(a.NumberOfItems())
	var total uint64
	for _, i := range selected {
		if n, ok := a.ItemProperty(i, prop.Size).(uint64); ok {
			total += n
		}
	}
	cb.SetTotal(total)
	for _, i := range selected {
		if err := ctx.Err(); err != nil {
			return StatusCancelled, err
		}
		w, st := cb.GetStream(i)
		if !st.OK() {
			return st, nil
		}
		if w == nil {
			continue
		}
		st, err := CopyItem(w, func() (io.ReadCloser, Status, error) { return a.OpenItem(i) })
		if r := cb.SetOperationResult(i, st, err); !r.OK() {
			return r, nil
		}
	}
	return StatusOK, nil
}

// CopyItem streams one item into w.
func CopyItem(w io.Writer, open func() (io.ReadCloser, Status, error)) (Status, error) {
	rc, st, err := open()
	if !st.OK() {
		return st, err
	}
	defer rc.Close()
	if _, err = io.Copy(w, rc); err != nil {
		return Classify(err), err
	}
	return StatusOK, nil
}
