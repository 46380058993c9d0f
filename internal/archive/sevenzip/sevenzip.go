package sevenzip

import (
	"context"
	"io"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/bodgit/sevenzip"
	"github.com/pkg/errors"
)

type SevenZip struct{}

func (SevenZip) Formats() []string {
	return []string{"7z"}
}

func (SevenZip) VolumePatterns() []string {
	return []string{".7z.%.3d"}
}

// Open parses the archive. Volumes have already been joined into
// args.Reader by the caller.
func (SevenZip) Open(ctx context.Context, args tool.OpenArgs) (tool.InArchive, tool.Status, error) {
	reader, err := sevenzip.NewReaderWithPassword(args.Reader, args.Size, args.Password)
	if err != nil {
		st := filterPassword(err)
		switch {
		case st == tool.StatusWrongPassword || st == tool.StatusCancelled:
		case args.Volumes > 1 && truncated(args.Reader, args.Size, err):
			st = tool.StatusMissingVolume
		default:
			st = tool.StatusBadHeader
		}
		return nil, st, err
	}
	encrypted := args.Password != ""
	a := &archive{files: reader.File}
	a.Items = make([]tool.Entry, len(reader.File))
	for i, file := range reader.File {
		a.Items[i] = toEntry(file, encrypted)
	}
	a.SetProp(prop.PhySize, uint64(args.Size))
	a.SetProp(prop.Solid, isSolid(reader.File))
	if args.Volumes > 1 {
		a.SetProp(prop.NumVolumes, uint32(args.Volumes))
	}
	return a, tool.StatusOK, nil
}

type archive struct {
	tool.Entries
	files []*sevenzip.File
}

func (a *archive) Extract(ctx context.Context, indices []uint32, _ bool, cb tool.ExtractCallback) (tool.Status, error) {
	return tool.ExtractIndexed(ctx, a, indices, cb)
}

func (a *archive) OpenItem(index uint32) (io.ReadCloser, tool.Status, error) {
	if int(index) >= len(a.files) {
		return nil, tool.StatusFail, errors.Errorf("sevenzip: no item %d", index)
	}
	file := a.files[index]
	r, err := file.Open()
	if err != nil {
		return nil, filterPassword(err), err
	}
	return newCheckedReader(r, file), tool.StatusOK, nil
}

func (a *archive) Close() error {
	return nil
}

var _ tool.MultipartTool = (*SevenZip)(nil)

func init() {
	tool.RegisterTool(SevenZip{})
}
