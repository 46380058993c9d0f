// Package rar reads RAR 1.5 to 5.0 archives. RAR is a sequential format:
// every extraction walks the archive from its first header, which is also
// how solid archives have to be decoded.
package rar

import (
	"context"
	"io"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/nwaples/rardecode/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Rar struct{}

func (Rar) Formats() []string {
	return []string{"Rar", "Rar5"}
}

func (Rar) VolumePatterns() []string {
	return []string{".part%d.rar", ".part%02d.rar", ".part%03d.rar"}
}

func (Rar) Open(ctx context.Context, args tool.OpenArgs) (tool.InArchive, tool.Status, error) {
	a := &archive{args: args}
	if err := a.list(ctx); err != nil {
		st := filterError(err)
		switch st {
		case tool.StatusWrongPassword, tool.StatusMissingVolume, tool.StatusCancelled:
		default:
			st = tool.StatusBadHeader
		}
		return nil, st, err
	}
	a.SetProp(prop.PhySize, uint64(args.Size))
	if args.Volumes > 1 {
		a.SetProp(prop.NumVolumes, uint32(args.Volumes))
	}
	return a, tool.StatusOK, nil
}

type archive struct {
	tool.Entries
	args tool.OpenArgs
}

type reader interface {
	io.Reader
	Next() (*rardecode.FileHeader, error)
}

// open starts a new pass over the archive. Volumes are followed by the
// decoder itself when the archive lives on disk.
func (a *archive) open() (reader, io.Closer, error) {
	var options []rardecode.Option
	if a.args.Password != "" {
		options = append(options, rardecode.Password(a.args.Password))
	}
	if a.args.Path != "" && a.args.Volumes > 1 {
		rc, err := rardecode.OpenReader(a.args.Path, options...)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc, nil
	}
	r, err := rardecode.NewReader(io.NewSectionReader(a.args.Reader, 0, a.args.Size), options...)
	if err != nil {
		return nil, nil, err
	}
	return r, io.NopCloser(r), nil
}

func (a *archive) list(ctx context.Context) error {
	r, c, err := a.open()
	if err != nil {
		return err
	}
	defer c.Close()
	solid := false
	for {
		if err = ctx.Err(); err != nil {
			return err
		}
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		solid = solid || hdr.Solid
		a.Items = append(a.Items, toEntry(hdr))
	}
	a.SetProp(prop.Solid, solid)
	return nil
}

func (a *archive) Extract(ctx context.Context, indices []uint32, _ bool, cb tool.ExtractCallback) (tool.Status, error) {
	sel := tool.Select(indices)
	var total uint64
	for _, i := range sel.Indices(a.NumberOfItems()) {
		total += a.Items[i].Size
	}
	cb.SetTotal(total)
	r, c, err := a.open()
	if err != nil {
		return filterError(err), err
	}
	defer c.Close()
	for i := uint32(0); !sel.Done(); i++ {
		if err := ctx.Err(); err != nil {
			return tool.StatusCancelled, err
		}
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return filterError(err), err
		}
		if !sel.Take(i) {
			continue
		}
		w, st := cb.GetStream(i)
		if !st.OK() {
			return st, nil
		}
		if w == nil {
			continue
		}
		var res tool.Status
		if _, err = io.Copy(w, r); err != nil {
			res = filterError(err)
			log.Debugf("rar item %d failed: %+v", i, err)
		}
		if st := cb.SetOperationResult(i, res, err); !st.OK() {
			return st, nil
		}
	}
	return tool.StatusOK, nil
}

func (a *archive) OpenItem(index uint32) (io.ReadCloser, tool.Status, error) {
	if index >= a.NumberOfItems() {
		return nil, tool.StatusFail, errors.Errorf("rar: no item %d", index)
	}
	r, c, err := a.open()
	if err != nil {
		return nil, filterError(err), err
	}
	for i := uint32(0); i <= index; i++ {
		if _, err = r.Next(); err != nil {
			_ = c.Close()
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, filterError(err), err
		}
	}
	return &item{Reader: r, Closer: c}, tool.StatusOK, nil
}

func (a *archive) Close() error {
	return nil
}

var _ tool.MultipartTool = (*Rar)(nil)

func init() {
	tool.RegisterTool(Rar{})
}
