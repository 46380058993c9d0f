package stream

import (
	"io"

	"github.com/pkg/errors"
)

// VolumeWriter splits a stream into volumes of at most Size bytes. Create is
// called with the 1-based number of each new volume.
type VolumeWriter struct {
	Size   int64
	Create func(n int) (io.WriteCloser, error)

	cur     io.WriteCloser
	curSize int64
	count   int
}

func (w *VolumeWriter) Write(p []byte) (int, error) {
	if w.Size <= 0 {
		return 0, errors.New("volume size must be positive")
	}
	total := 0
	for len(p) > 0 {
		if w.cur == nil || w.curSize >= w.Size {
			if err := w.next(); err != nil {
				return total, err
			}
		}
		chunk := min(int64(len(p)), w.Size-w.curSize)
		n, err := w.cur.Write(p[:chunk])
		total += n
		w.curSize += int64(n)
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}

func (w *VolumeWriter) next() error {
	if w.cur != nil {
		if err := w.cur.Close(); err != nil {
			return err
		}
	}
	w.count++
	f, err := w.Create(w.count)
	if err != nil {
		return errors.WithMessagef(err, "failed to create volume %d", w.count)
	}
	w.cur = f
	w.curSize = 0
	return nil
}

// Close closes the current volume. An empty stream still produces one
// volume.
func (w *VolumeWriter) Close() error {
	if w.cur == nil {
		if err := w.next(); err != nil {
			return err
		}
	}
	err := w.cur.Close()
	w.cur = nil
	return err
}

// Volumes is the number of volumes created so far.
func (w *VolumeWriter) Volumes() int {
	return w.count
}
