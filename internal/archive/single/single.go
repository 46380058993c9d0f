// Package single handles formats that hold exactly one stream: the plain
// compressors and split files whose volumes concatenate to one item.
package single

import (
	"context"
	"io"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/pkg/errors"
)

type Single struct{}

func (Single) Formats() []string {
	return []string{"GZip", "BZip2", "Xz", "Zstd", "Lz4", "Split"}
}

func (Single) VolumePatterns() []string {
	return []string{".%.3d"}
}

func (Single) CanUpdate(format string) bool {
	c, ok := lookup(format)
	return ok && c.writer != nil
}

func (Single) Open(ctx context.Context, args tool.OpenArgs) (tool.InArchive, tool.Status, error) {
	c, ok := lookup(args.Format)
	if !ok {
		return nil, tool.StatusUnsupported, errors.Errorf("single: unknown format %s", args.Format)
	}
	a := &archive{codec: c, args: args}
	entry := tool.Entry{Path: itemName(args.Name, c.ext), PackSize: uint64(args.Size)}
	if c.reader == nil {
		entry.Size = uint64(args.Size)
	} else {
		n, err := a.measure(ctx)
		if err != nil {
			st := tool.Classify(err)
			if st != tool.StatusCancelled {
				st = tool.StatusBadHeader
			}
			return nil, st, err
		}
		entry.Size = uint64(n)
	}
	a.Items = []tool.Entry{entry}
	a.SetProp(prop.PhySize, uint64(args.Size))
	if args.Volumes > 1 {
		a.SetProp(prop.NumVolumes, uint32(args.Volumes))
	}
	return a, tool.StatusOK, nil
}

func (Single) Update(ctx context.Context, args tool.UpdateArgs) (tool.Status, error) {
	c, ok := lookup(args.Format)
	if !ok || c.writer == nil {
		return tool.StatusUnsupported, errors.Errorf("single: cannot write %s", args.Format)
	}
	var items []tool.UpdateItem
	for _, it := range args.Items {
		if !it.IsDir {
			items = append(items, it)
		}
	}
	if len(items) > 1 {
		return tool.StatusUnsupported, errors.Errorf("%s holds a single file, got %d", c.name, len(items))
	}
	cb := args.Callback
	var total uint64
	for _, it := range items {
		total += uint64(it.Size)
	}
	if cb != nil {
		cb.SetTotal(total)
	}
	wc, err := c.writer(args.Settings).OpenWriter(args.Output)
	if err != nil {
		return tool.StatusFail, errors.WithStack(err)
	}
	for _, it := range items {
		if cb != nil {
			cb.FileName(it.Path)
		}
		if st, err := copyItem(wc, it, cb); !st.OK() {
			_ = wc.Close()
			return st, err
		}
	}
	if err = wc.Close(); err != nil {
		return tool.StatusFail, errors.WithStack(err)
	}
	if cb != nil {
		if st := cb.SetCompleted(total); !st.OK() {
			return st, nil
		}
	}
	return tool.StatusOK, nil
}

func copyItem(w io.Writer, it tool.UpdateItem, cb tool.UpdateCallback) (tool.Status, error) {
	if it.Open == nil {
		return tool.StatusOK, nil
	}
	rc, err := it.Open()
	if err != nil {
		return tool.Classify(err), errors.WithMessagef(err, "failed to open %s", it.Path)
	}
	defer rc.Close()
	pw := &stream.ProgressWriter{W: w, Step: 1 << 20}
	if cb != nil {
		pw.Report = func(n int64) bool {
			return cb.SetCompleted(uint64(n)).OK()
		}
	}
	if _, err = io.Copy(pw, rc); err != nil {
		return tool.Classify(err), err
	}
	return tool.StatusOK, nil
}

type archive struct {
	tool.Entries
	codec *codec
	args  tool.OpenArgs
}

// measure decodes the whole stream once to learn the item size.
func (a *archive) measure(ctx context.Context) (int64, error) {
	rc, _, err := a.OpenItem(0)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	return io.Copy(io.Discard, rc)
}

func (a *archive) Extract(ctx context.Context, indices []uint32, _ bool, cb tool.ExtractCallback) (tool.Status, error) {
	return tool.ExtractIndexed(ctx, a, indices, cb)
}

func (a *archive) OpenItem(index uint32) (io.ReadCloser, tool.Status, error) {
	if index != 0 {
		return nil, tool.StatusFail, errors.Errorf("single: no item %d", index)
	}
	r := io.NewSectionReader(a.args.Reader, 0, a.args.Size)
	if a.codec.reader == nil {
		return io.NopCloser(r), tool.StatusOK, nil
	}
	rc, err := a.codec.reader.OpenReader(r)
	if err != nil {
		return nil, tool.StatusBadHeader, err
	}
	return rc, tool.StatusOK, nil
}

func (a *archive) Close() error {
	return nil
}

var (
	_ tool.Updater       = (*Single)(nil)
	_ tool.MultipartTool = (*Single)(nil)
)

func init() {
	tool.RegisterTool(Single{})
}
