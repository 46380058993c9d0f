// Package iso9660 reads ISO 9660 disc images.
package iso9660

import (
	"context"
	"io"
	stdpath "path"
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/kdomanski/iso9660"
	"github.com/pkg/errors"
)

type ISO9660 struct{}

func (ISO9660) Formats() []string {
	return []string{"Iso"}
}

func (ISO9660) Open(ctx context.Context, args tool.OpenArgs) (tool.InArchive, tool.Status, error) {
	img, err := iso9660.OpenImage(args.Reader)
	if err != nil {
		return nil, tool.StatusBadHeader, errors.WithStack(err)
	}
	root, err := img.RootDir()
	if err != nil {
		return nil, tool.StatusBadHeader, errors.WithStack(err)
	}
	a := &archive{}
	if err = a.walk(ctx, root, ""); err != nil {
		return nil, tool.Classify(err), err
	}
	a.SetProp(prop.PhySize, uint64(args.Size))
	if label, err := img.Label(); err == nil && label != "" {
		a.SetProp(prop.Comment, strings.TrimSpace(label))
	}
	return a, tool.StatusOK, nil
}

type archive struct {
	tool.Entries
	files []*iso9660.File
}

func (a *archive) walk(ctx context.Context, dir *iso9660.File, parent string) error {
	children, err := dir.GetChildren()
	if err != nil {
		return errors.WithMessagef(err, "failed to list %q", parent)
	}
	for _, f := range children {
		if err = ctx.Err(); err != nil {
			return err
		}
		p := stdpath.Join(parent, decodeName(f.Name()))
		a.Items = append(a.Items, toEntry(p, f))
		a.files = append(a.files, f)
		if f.IsDir() {
			if err = a.walk(ctx, f, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *archive) Extract(ctx context.Context, indices []uint32, _ bool, cb tool.ExtractCallback) (tool.Status, error) {
	return tool.ExtractIndexed(ctx, a, indices, cb)
}

func (a *archive) OpenItem(index uint32) (io.ReadCloser, tool.Status, error) {
	if index >= a.NumberOfItems() {
		return nil, tool.StatusFail, errors.Errorf("iso9660: no item %d", index)
	}
	f := a.files[index]
	if f.IsDir() {
		return nil, tool.StatusFail, errors.Errorf("iso9660: %s is a directory", a.Items[index].Path)
	}
	return io.NopCloser(f.Reader()), tool.StatusOK, nil
}

func (a *archive) Close() error {
	return nil
}

var _ tool.Tool = (*ISO9660)(nil)

func init() {
	tool.RegisterTool(ISO9660{})
}
