package zip

import (
	"context"
	"io"
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/pkg/errors"
	"github.com/yeka/zip"
)

type Zip struct {
}

func (Zip) Formats() []string {
	return []string{"Zip"}
}

func (Zip) CanUpdate(format string) bool {
	return strings.EqualFold(format, "zip")
}

func (Zip) Open(ctx context.Context, args tool.OpenArgs) (tool.InArchive, tool.Status, error) {
	zipReader, err := zip.NewReader(args.Reader, args.Size)
	if err != nil {
		return nil, tool.StatusBadHeader, err
	}
	names := decodeNames(zipReader.File)
	a := &archive{files: zipReader.File, password: args.Password}
	a.Items = make([]tool.Entry, len(zipReader.File))
	for i, file := range zipReader.File {
		a.Items[i] = toEntry(file, names[i])
	}
	a.SetProp(prop.PhySize, uint64(args.Size))
	a.SetProp(prop.Commented, zipReader.Comment != "")
	if zipReader.Comment != "" {
		a.SetProp(prop.Comment, zipReader.Comment)
	}
	return a, tool.StatusOK, nil
}

func (z Zip) Update(ctx context.Context, args tool.UpdateArgs) (tool.Status, error) {
	zw := zip.NewWriter(args.Output)
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
		if cb != nil {
			cb.FileName(it.Path)
		}
		w, err := createEntry(zw, it, args.Settings)
		if err != nil {
			return tool.StatusFail, errors.WithMessagef(err, "failed to add %s", it.Path)
		}
		n, err := writeItem(w, it, done, cb)
		if err != nil {
			return tool.Classify(err), err
		}
		done += uint64(n)
		if cb != nil {
			if st := cb.SetCompleted(done); !st.OK() {
				return st, nil
			}
		}
	}
	if err := zw.Close(); err != nil {
		return tool.StatusFail, errors.WithStack(err)
	}
	return tool.StatusOK, nil
}

type archive struct {
	tool.Entries
	files    []*zip.File
	password string
}

func (a *archive) Extract(ctx context.Context, indices []uint32, _ bool, cb tool.ExtractCallback) (tool.Status, error) {
	return tool.ExtractIndexed(ctx, a, indices, cb)
}

func (a *archive) OpenItem(index uint32) (io.ReadCloser, tool.Status, error) {
	if int(index) >= len(a.files) {
		return nil, tool.StatusFail, errors.Errorf("zip: no item %d", index)
	}
	file := a.files[index]
	if file.IsEncrypted() {
		if a.password == "" {
			return nil, tool.StatusWrongPassword, errors.New("zip: password required")
		}
		file.SetPassword(a.password)
	}
	r, err := file.Open()
	if err != nil {
		return nil, filterPassword(err), err
	}
	return &item{ReadCloser: r}, tool.StatusOK, nil
}

func (a *archive) Close() error {
	return nil
}

// item maps read failures of an entry, which is where a wrong password or
// a damaged stream is noticed, to engine statuses.
type item struct {
	io.ReadCloser
}

func (i *item) Read(p []byte) (int, error) {
	n, err := i.ReadCloser.Read(p)
	if err != nil && err != io.EOF && filterPassword(err) == tool.StatusWrongPassword {
		return n, tool.Error("read", tool.StatusWrongPassword, err)
	}
	return n, err
}

var _ tool.Updater = (*Zip)(nil)

func init() {
	tool.RegisterTool(Zip{})
}
