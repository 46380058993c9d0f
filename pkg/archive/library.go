package archive

import (
	"sort"
	"sync/atomic"

	_ "github.com/alist-org/arkit/internal/archive"
	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/fs"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Library is a loaded codec engine. Sessions opened from it keep a
// reference and fail once the library is closed.
type Library struct {
	engine  *tool.Engine
	fs      *fs.FS
	tempDir string
	extra   []tool.Tool
	closed  atomic.Bool
}

type LibraryOption func(l *Library)

// WithTool adds a codec that takes precedence over the built-in ones for
// the formats it declares.
func WithTool(t tool.Tool) LibraryOption {
	return func(l *Library) {
		l.extra = append(l.extra, t)
	}
}

// WithFs makes the library read and write through afs instead of the host
// filesystem.
func WithFs(afs afero.Fs) LibraryOption {
	return func(l *Library) {
		l.fs = fs.New(afs)
	}
}

// WithTempDir sets where commits stage their output. By default the
// temporary file is created next to the target.
func WithTempDir(dir string) LibraryOption {
	return func(l *Library) {
		l.tempDir = dir
	}
}

// Load acquires the engine.
func Load(opts ...LibraryOption) (*Library, error) {
	l := &Library{fs: fs.OS()}
	for _, opt := range opts {
		opt(l)
	}
	engine, st := tool.Load(l.extra...)
	if !st.OK() {
		return nil, tool.Error("load", st, nil)
	}
	l.engine = engine
	return l, nil
}

// Close releases the engine. Closing twice is a no-op.
func (l *Library) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.engine.Release()
	log.Debugf("archive library closed")
	return nil
}

func (l *Library) check(op string) error {
	if l == nil || l.engine == nil {
		return tool.Error(op, tool.StatusUnavailable, nil)
	}
	if st := l.engine.Check(); !st.OK() {
		return tool.Error(op, st, nil)
	}
	return nil
}

// acquire registers a session with the engine.
func (l *Library) acquire(op string) (func(), error) {
	if err := l.check(op); err != nil {
		return nil, err
	}
	release, st := l.engine.Acquire()
	if !st.OK() {
		return nil, tool.Error(op, st, nil)
	}
	return release, nil
}

// CanRead reports whether the engine has a codec for f.
func (l *Library) CanRead(f *format.InFormat) bool {
	if f.IsAuto() {
		return false
	}
	_, st := l.engine.Tool(f.Name)
	return st.OK()
}

// CanWrite reports whether the engine can create archives of format f.
func (l *Library) CanWrite(f *format.InFormat) bool {
	_, err := l.updater(f)
	return err == nil
}

func (l *Library) updater(f *format.InFormat) (tool.Updater, error) {
	if f.IsAuto() {
		return nil, errs.New(errs.KindUnsupportedFormat, "write", "no format given")
	}
	t, st := l.engine.Tool(f.Name)
	if !st.OK() {
		if st == tool.StatusUnsupported {
			return nil, errs.Newf(errs.KindUnsupportedOperation, "write", "no writer for %s", f.Name)
		}
		return nil, tool.Error("write", st, nil)
	}
	u, ok := t.(tool.Updater)
	if !ok || !u.CanUpdate(f.Name) {
		return nil, errs.Newf(errs.KindUnsupportedOperation, "write", "no writer for %s", f.Name)
	}
	return u, nil
}

// Formats lists the catalog formats the engine can read, by name.
func (l *Library) Formats() []*format.InFormat {
	var ret []*format.InFormat
	for _, f := range format.All() {
		if l.CanRead(f) {
			ret = append(ret, f)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Name < ret[j].Name
	})
	return ret
}

// Sessions is the number of readers and writers not yet closed.
func (l *Library) Sessions() int64 {
	return l.engine.Sessions()
}

func (l *Library) osBacked() bool {
	_, ok := l.fs.Fs.(*afero.OsFs)
	return ok
}
