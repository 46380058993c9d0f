package tar

import (
	stdtar "archive/tar"
	"context"
	"io"
	"io/fs"
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

type Tar struct{}

func (Tar) Formats() []string {
	return []string{"Tar"}
}

func (Tar) CanUpdate(format string) bool {
	return strings.EqualFold(format, "tar")
}

func (Tar) Open(ctx context.Context, args tool.OpenArgs) (tool.InArchive, tool.Status, error) {
	a := &archive{args: args}
	err := a.walk(ctx, func(_ uint32, f archives.FileInfo, pos int64) error {
		a.Items = append(a.Items, toEntry(f))
		a.offsets = append(a.offsets, dataOffset(f, pos))
		return nil
	})
	if err != nil {
		st := tool.Classify(err)
		if st != tool.StatusCancelled {
			st = tool.StatusBadHeader
		}
		return nil, st, err
	}
	a.SetProp(prop.PhySize, uint64(args.Size))
	return a, tool.StatusOK, nil
}

// Update feeds the items one by one to the asynchronous tar writer so the
// callback sees each item start and finish.
func (Tar) Update(ctx context.Context, args tool.UpdateArgs) (tool.Status, error) {
	jobs := make(chan archives.ArchiveAsyncJob)
	errc := make(chan error, 1)
	go func() {
		errc <- archives.Tar{}.ArchiveAsync(ctx, args.Output, jobs)
	}()
	st, err := feed(ctx, jobs, args)
	close(jobs)
	if aerr := <-errc; err == nil && aerr != nil {
		return tool.Classify(aerr), aerr
	}
	return st, err
}

func feed(ctx context.Context, jobs chan<- archives.ArchiveAsyncJob, args tool.UpdateArgs) (tool.Status, error) {
	cb := args.Callback
	var total, done uint64
	for _, it := range args.Items {
		if !it.IsDir {
			total += uint64(it.Size)
		}
	}
	if cb != nil {
		cb.SetTotal(total)
	}
	for _, it := range args.Items {
		if err := ctx.Err(); err != nil {
			return tool.StatusCancelled, err
		}
		var report func(n int) bool
		var cur uint64
		if cb != nil {
			cb.FileName(it.Path)
			report = func(n int) bool {
				cur += uint64(n)
				return cb.SetCompleted(done + cur).OK()
			}
		}
		result := make(chan error, 1)
		jobs <- archives.ArchiveAsyncJob{File: toFileInfo(it, report), Result: result}
		if err := <-result; err != nil {
			return tool.Classify(err), errors.WithMessagef(err, "failed to add %s", it.Path)
		}
		if !it.IsDir {
			done += uint64(it.Size)
		}
		if cb != nil {
			if st := cb.SetCompleted(done); !st.OK() {
				return st, nil
			}
		}
	}
	return tool.StatusOK, nil
}

type archive struct {
	tool.Entries
	args tool.OpenArgs
	// offsets holds where the data of each regular entry starts, -1 for
	// entries that can only be read through the tar reader.
	offsets []int64
}

// walk visits every entry in order, passing its index and the position of
// the underlying reader right after its header.
func (a *archive) walk(ctx context.Context, fn func(i uint32, f archives.FileInfo, pos int64) error) error {
	var i uint32
	r := io.NewSectionReader(a.args.Reader, 0, a.args.Size)
	return archives.Tar{}.Extract(ctx, r, func(ctx context.Context, f archives.FileInfo) error {
		pos, _ := r.Seek(0, io.SeekCurrent)
		err := fn(i, f, pos)
		i++
		return err
	})
}

// dataOffset is pos for regular files, whose data follows the header in one
// piece.
func dataOffset(f archives.FileInfo, pos int64) int64 {
	if hdr, ok := f.Header.(*stdtar.Header); ok && hdr.Typeflag == stdtar.TypeReg {
		return pos
	}
	return -1
}

func (a *archive) Extract(ctx context.Context, indices []uint32, _ bool, cb tool.ExtractCallback) (tool.Status, error) {
	sel := tool.Select(indices)
	var total uint64
	for _, i := range sel.Indices(a.NumberOfItems()) {
		total += a.Items[i].Size
	}
	cb.SetTotal(total)
	abort := tool.StatusOK
	err := a.walk(ctx, func(i uint32, f archives.FileInfo, _ int64) error {
		if sel.Done() {
			return fs.SkipAll
		}
		if !sel.Take(i) {
			return nil
		}
		w, st := cb.GetStream(i)
		if !st.OK() {
			abort = st
			return fs.SkipAll
		}
		if w == nil {
			return nil
		}
		st, err := tool.CopyItem(w, func() (io.ReadCloser, tool.Status, error) {
			file, err := f.Open()
			if err != nil {
				return nil, tool.Classify(err), err
			}
			return file, tool.StatusOK, nil
		})
		if r := cb.SetOperationResult(i, st, err); !r.OK() {
			abort = r
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return tool.Classify(err), err
	}
	return abort, nil
}

func (a *archive) OpenItem(index uint32) (io.ReadCloser, tool.Status, error) {
	if index >= a.NumberOfItems() {
		return nil, tool.StatusFail, errors.Errorf("tar: no item %d", index)
	}
	if off := a.offsets[index]; off >= 0 {
		return io.NopCloser(io.NewSectionReader(a.args.Reader, off, int64(a.Items[index].Size))), tool.StatusOK, nil
	}
	pr, pw := io.Pipe()
	go func() {
		err := a.walk(context.Background(), func(i uint32, f archives.FileInfo, _ int64) error {
			if i != index {
				return nil
			}
			file, err := f.Open()
			if err != nil {
				return err
			}
			defer file.Close()
			if _, err = io.Copy(pw, file); err != nil {
				return err
			}
			return fs.SkipAll
		})
		pw.CloseWithError(err)
	}()
	return pr, tool.StatusOK, nil
}

func (a *archive) Close() error {
	return nil
}

var _ tool.Updater = (*Tar)(nil)

func init() {
	tool.RegisterTool(Tar{})
}
