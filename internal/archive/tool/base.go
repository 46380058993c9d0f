package tool

import (
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/alist-org/arkit/pkg/prop"
)

// Tool is a codec able to read one or more archive formats. Property values
// cross this boundary as plain Go values and are converted by the caller.
type Tool interface {
	// Formats lists the format names, as known to pkg/format, the tool reads.
	Formats() []string
	Open(ctx context.Context, args OpenArgs) (InArchive, Status, error)
}

// Updater is implemented by tools that can also write archives.
type Updater interface {
	Tool
	CanUpdate(format string) bool
	Update(ctx context.Context, args UpdateArgs) (Status, error)
}

// MultipartTool is implemented by tools whose archives can span volumes.
// Each pattern is a fmt verb applied to the 1-based volume number, e.g.
// ".7z.%.3d".
type MultipartTool interface {
	VolumePatterns() []string
}

type OpenArgs struct {
	Format string
	// Name is the archive file name, used to name the only item of
	// single-stream formats.
	Name string
	// Path is set when the archive lives on disk; codecs that resolve
	// volumes themselves use it.
	Path     string
	Reader   io.ReaderAt
	Size     int64
	Password string
	Volumes  int
}

// InArchive is an opened archive. Indices are stable until Close.
type InArchive interface {
	NumberOfItems() uint32
	// ItemProperty returns nil when the property is absent.
	ItemProperty(index uint32, id prop.PropID) any
	ArchiveProperty(id prop.PropID) any
	// Extract decodes the selected items in ascending order, or every item
	// when indices is nil. With test set the streams are only verified.
	Extract(ctx context.Context, indices []uint32, test bool, cb ExtractCallback) (Status, error)
	// OpenItem streams the content of one item.
	OpenItem(index uint32) (io.ReadCloser, Status, error)
	Close() error
}

type ExtractCallback interface {
	SetTotal(total uint64)
	// GetStream returns the sink for an item; a nil writer skips it. A
	// failed status aborts the extraction.
	GetStream(index uint32) (io.Writer, Status)
	// SetOperationResult reports how one item went; a failed return status
	// aborts the extraction.
	SetOperationResult(index uint32, result Status, err error) Status
}

type UpdateCallback interface {
	SetTotal(total uint64)
	SetCompleted(done uint64) Status
	FileName(name string)
}

// Settings are the compression parameters of an update.
type Settings struct {
	Level          int
	Method         string
	DictionarySize uint32
	WordSize       uint32
	Solid          bool
	Threads        int
	Password       string
	EncryptHeaders bool
}

// UpdateItem is one entry of the archive being written, in output order.
type UpdateItem struct {
	// IndexInArchive is the index in the input archive, -1 for new items.
	IndexInArchive int
	NewData        bool
	NewProps       bool
	Path           string
	IsDir          bool
	Size           int64
	ModTime        time.Time
	Mode           fs.FileMode
	// LinkTarget is set for symbolic links stored as links.
	LinkTarget string
	Open       func() (io.ReadCloser, error)
}

type UpdateArgs struct {
	Format   string
	Output   io.Writer
	Input    InArchive
	Items    []UpdateItem
	Settings Settings
	Callback UpdateCallback
}
