package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdfs "io/fs"
	stdpath "path"
	"path/filepath"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/fs"
	"github.com/alist-org/arkit/internal/model"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// State is the lifecycle stage of a writer.
type State int

const (
	Building State = iota
	Committing
	Committed
	Failed
	Closed
)

var stateNames = [...]string{"building", "committing", "committed", "failed", "closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Writer builds a new archive or edits an existing one. Edits are kept
// pending until ApplyChanges writes them in one pass.
type Writer struct {
	lib      *Library
	h        *Handler
	target   string
	format   *format.InOutFormat
	mode     UpdateMode
	settings Settings
	state    State
	release  func()

	input    *Reader
	existing []slot
	added    []addition
	// paths maps the normalised path of every live item to its owner: the
	// existing index, or -(i+1) for the i-th addition.
	paths map[string]int
}

// slot tracks the pending edit of an existing item.
type slot struct {
	path    string
	key     string
	deleted bool
	renamed string
	update  *Source
}

func (s *slot) pending() bool {
	return s.deleted || s.renamed != "" || s.update != nil
}

type addition struct {
	path string
	src  Source
}

// NewWriter creates a writer for target. With UpdateAppend or UpdateUpdate
// an existing target is opened and its items become editable. An empty
// target builds in memory, for WriteTo and Bytes only.
func (l *Library) NewWriter(h *Handler, target string, opts ...WriterOption) (*Writer, error) {
	if h == nil {
		h = NewHandler()
	}
	release, err := l.acquire("write")
	if err != nil {
		return nil, err
	}
	w := &Writer{lib: l, h: h, target: target, release: release, paths: make(map[string]int)}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.init(); err != nil {
		release()
		return nil, err
	}
	return w, nil
}

func (w *Writer) init() error {
	f := w.h.format
	if f.IsAuto() {
		if w.target == "" {
			return errs.New(errs.KindUnsupportedFormat, "write", "no format given for an in-memory archive")
		}
		detected, ok := format.DetectExtension(w.target)
		if !ok {
			return errs.New(errs.KindUnsupportedFormat, "write", "cannot tell the format from the name").WithArchive(w.target)
		}
		f = detected
	}
	out, ok := f.Writable()
	if !ok {
		return errs.Newf(errs.KindUnsupportedOperation, "write", "%s archives are read only", f.Name).WithArchive(w.target)
	}
	w.format = out
	existing := w.existingPath()
	if existing == "" {
		return nil
	}
	switch w.mode {
	case UpdateNone:
		return errs.New(errs.KindUnsupportedOperation, "write", "target already exists").WithArchive(w.target)
	case UpdateAppend, UpdateUpdate:
		return w.reopen()
	}
	return nil
}

// existingPath is the file the target currently lives in, its first
// volume when split, or "" when there is none.
func (w *Writer) existingPath() string {
	if w.target == "" {
		return ""
	}
	if w.lib.fs.Exists(w.target) {
		return w.target
	}
	if first := volumeName(w.target, 1); w.lib.fs.Exists(first) {
		return first
	}
	return ""
}

func volumeName(target string, n int) string {
	return fmt.Sprintf("%s.%03d", target, n)
}

// reopen loads the items of the target as the existing items.
func (w *Writer) reopen() error {
	r, err := w.lib.OpenReader(w.h.With(WithFormat(w.format.In())), w.existingPath())
	if err != nil {
		return err
	}
	w.input = r
	w.existing = make([]slot, r.count)
	w.added = nil
	w.paths = make(map[string]int, r.count)
	for i := range w.existing {
		it := Item{index: uint32(i), r: r}
		p := it.Path()
		w.existing[i] = slot{path: p, key: normPath(p)}
		w.paths[w.existing[i].key] = i
	}
	return nil
}

func (w *Writer) editable(op string) error {
	switch w.state {
	case Failed:
		return errs.New(errs.KindUnsupportedOperation, op, "writer failed").WithArchive(w.target)
	case Closed:
		return errs.New(errs.KindUnsupportedOperation, op, "writer is closed").WithArchive(w.target)
	case Committing:
		return errs.New(errs.KindUnsupportedOperation, op, "commit in progress").WithArchive(w.target)
	}
	return w.lib.check(op)
}

func (w *Writer) Target() string {
	return w.target
}

func (w *Writer) Format() *format.InOutFormat {
	return w.format
}

func (w *Writer) State() State {
	return w.state
}

func (w *Writer) Mode() UpdateMode {
	return w.mode
}

// AddFile adds a file under archivePath, or under its base name when
// archivePath is empty.
func (w *Writer) AddFile(src, archivePath string) error {
	if err := w.editable("add"); err != nil {
		return err
	}
	if archivePath == "" {
		archivePath = filepath.Base(src)
	}
	s, err := FromFile(src).resolve(w.lib.fs, w.settings.StoreSymlinks)
	if err != nil {
		return err
	}
	if s.isDir {
		return errs.Newf(errs.KindIsDirectory, "add", "%s is a directory", src)
	}
	return w.add(archivePath, s)
}

// AddFiles adds files under their base names; directories are added with
// their content below their base name.
func (w *Writer) AddFiles(paths []string) error {
	if err := w.editable("add"); err != nil {
		return err
	}
	entries, err := w.lib.fs.Entries(paths)
	if err != nil {
		return err
	}
	return w.AddItems(entries)
}

// AddDirectory adds dir and everything below it. Without retained
// directories only the files are added, under their base names.
func (w *Writer) AddDirectory(dir string) error {
	if err := w.editable("add"); err != nil {
		return err
	}
	entries, err := w.lib.fs.Index(dir)
	if err != nil {
		return err
	}
	if !w.h.retainDirs {
		flat := entries[:0]
		for _, e := range entries {
			if e.IsDir {
				continue
			}
			e.NameInArchive = stdpath.Base(e.NameInArchive)
			flat = append(flat, e)
		}
		entries = flat
	}
	return w.AddItems(entries)
}

func (w *Writer) AddBytes(data []byte, archivePath string) error {
	return w.AddSource(FromBytes(data), archivePath)
}

func (w *Writer) AddReader(r io.Reader, archivePath string) error {
	return w.AddSource(FromReader(r), archivePath)
}

// AddSource adds an item of any source kind.
func (w *Writer) AddSource(src Source, archivePath string) error {
	if err := w.editable("add"); err != nil {
		return err
	}
	s, err := src.resolve(w.lib.fs, w.settings.StoreSymlinks)
	if err != nil {
		return err
	}
	return w.add(archivePath, s)
}

// AddItems adds prepared entries. Paths are checked for duplicates
// among themselves before any is added.
func (w *Writer) AddItems(entries []model.Entry) error {
	if err := w.editable("add"); err != nil {
		return err
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, e := range entries {
		clean, err := fs.CleanArchivePath(e.NameInArchive)
		if err != nil {
			return err
		}
		if !seen.Add(normPath(clean)) {
			return errs.Newf(errs.KindDuplicateItemPath, "add", "%s given twice", clean).WithItem(-1, clean)
		}
	}
	for _, e := range entries {
		src := entrySource(e)
		if e.Mode&stdfs.ModeSymlink != 0 {
			var err error
			if src, err = FromFile(e.Path).resolve(w.lib.fs, w.settings.StoreSymlinks); err != nil {
				return err
			}
		}
		if err := w.add(e.NameInArchive, src); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) add(archivePath string, src Source) error {
	clean, err := fs.CleanArchivePath(archivePath)
	if err != nil {
		return err
	}
	key := normPath(clean)
	if owner, ok := w.paths[key]; ok {
		if owner >= 0 {
			switch w.mode {
			case UpdateUpdate:
				return w.setUpdate("add", uint32(owner), src)
			case UpdateAppend:
				same, err := w.sameContent(owner, src)
				if err != nil {
					return err
				}
				if same {
					log.Debugf("skip adding %s: identical item exists", clean)
					return nil
				}
			}
		}
		return errs.Newf(errs.KindDuplicateItemPath, "add", "%s already in archive", clean).
			WithArchive(w.target).WithItem(owner, clean)
	}
	w.added = append(w.added, addition{path: clean, src: src})
	w.paths[key] = -len(w.added)
	return nil
}

func (w *Writer) sameContent(index int, src Source) (bool, error) {
	it := Item{index: uint32(index), r: w.input}
	if it.IsDir() || src.isDir {
		return it.IsDir() && src.isDir, nil
	}
	if it.Size() != uint64(src.size) {
		return false, nil
	}
	rc, st, err := w.input.arc.OpenItem(uint32(index))
	if !st.OK() {
		return false, tool.Error("add", st, err).WithArchive(w.target).WithItem(index, it.Path())
	}
	defer rc.Close()
	sr, err := src.opener(w.lib.fs)()
	if err != nil {
		return false, err
	}
	defer sr.Close()
	return equalContent(rc, sr)
}

// slot returns the existing item at index, rejecting deleted ones. Existing
// items are read only in UpdateAppend mode.
func (w *Writer) slot(op string, index uint32) (*slot, error) {
	if err := w.editable(op); err != nil {
		return nil, err
	}
	if w.mode == UpdateAppend {
		return nil, errs.Newf(errs.KindUnsupportedOperation, op, "cannot %s existing items in %s mode", op, w.mode).
			WithArchive(w.target).WithItem(int(index), "")
	}
	if int(index) >= len(w.existing) {
		return nil, errs.Newf(errs.KindInvalidIndex, op, "index %d out of range [0, %d)", index, len(w.existing)).
			WithArchive(w.target).WithItem(int(index), "")
	}
	s := &w.existing[index]
	if s.deleted {
		return nil, errs.New(errs.KindInvalidIndex, op, "item marked as deleted").
			WithArchive(w.target).WithItem(int(index), s.path)
	}
	return s, nil
}

func (w *Writer) find(op, path string) (uint32, error) {
	if err := w.editable(op); err != nil {
		return 0, err
	}
	owner, ok := w.paths[normPath(path)]
	if !ok || owner < 0 {
		return 0, notFound(op, w.target, path)
	}
	return uint32(owner), nil
}

func busy(op string, s *slot, index uint32) error {
	return errs.New(errs.KindUnsupportedOperation, op, "item already has a pending edit").WithItem(int(index), s.path)
}

// UpdateItem replaces the content of an existing item. It may be combined
// with a rename of the same item.
func (w *Writer) UpdateItem(index uint32, src Source) error {
	return w.setUpdate("update", index, src)
}

func (w *Writer) setUpdate(op string, index uint32, src Source) error {
	s, err := w.slot(op, index)
	if err != nil {
		return err
	}
	if s.update != nil {
		return busy(op, s, index)
	}
	if src, err = src.resolve(w.lib.fs, w.settings.StoreSymlinks); err != nil {
		return err
	}
	s.update = &src
	return nil
}

func (w *Writer) UpdateItemByPath(path string, src Source) error {
	index, err := w.find("update", path)
	if err != nil {
		return err
	}
	return w.UpdateItem(index, src)
}

// RenameItem moves an existing item to newPath.
func (w *Writer) RenameItem(index uint32, newPath string) error {
	s, err := w.slot("rename", index)
	if err != nil {
		return err
	}
	if s.renamed != "" {
		return busy("rename", s, index)
	}
	clean, err := fs.CleanArchivePath(newPath)
	if err != nil {
		return err
	}
	key := normPath(clean)
	if owner, ok := w.paths[key]; ok && owner != int(index) {
		return errs.Newf(errs.KindDuplicateItemPath, "rename", "%s already in archive", clean).
			WithArchive(w.target).WithItem(int(index), s.path)
	}
	delete(w.paths, s.key)
	s.renamed, s.key = clean, key
	w.paths[key] = int(index)
	return nil
}

func (w *Writer) RenameItemByPath(oldPath, newPath string) error {
	index, err := w.find("rename", oldPath)
	if err != nil {
		return err
	}
	return w.RenameItem(index, newPath)
}

// DeleteItem removes an existing item.
func (w *Writer) DeleteItem(index uint32) error {
	s, err := w.slot("delete", index)
	if err != nil {
		return err
	}
	if s.pending() {
		return busy("delete", s, index)
	}
	s.deleted = true
	delete(w.paths, s.key)
	return nil
}

func (w *Writer) DeleteItemByPath(path string) error {
	index, err := w.find("delete", path)
	if err != nil {
		return err
	}
	return w.DeleteItem(index)
}

// PendingCount is the number of pending additions and edits.
func (w *Writer) PendingCount() int {
	n := len(w.added)
	for i := range w.existing {
		if w.existing[i].pending() {
			n++
		}
	}
	return n
}

// ItemsCount is the number of items the archive will hold once committed.
func (w *Writer) ItemsCount() uint32 {
	n := uint32(len(w.added))
	for i := range w.existing {
		if !w.existing[i].deleted {
			n++
		}
	}
	return n
}

// items lays out the output: kept existing items in their order, then the
// additions.
func (w *Writer) items() []tool.UpdateItem {
	ret := make([]tool.UpdateItem, 0, w.ItemsCount())
	for i := range w.existing {
		s := &w.existing[i]
		if s.deleted {
			continue
		}
		it := Item{index: uint32(i), r: w.input}
		mtime, _ := it.ModTime().AsFileTime()
		u := tool.UpdateItem{
			IndexInArchive: i,
			Path:           s.path,
			IsDir:          it.IsDir(),
			Size:           int64(it.Size()),
			ModTime:        mtime,
			Mode:           it.Mode().Perm(),
		}
		if s.renamed != "" {
			u.Path, u.NewProps = s.renamed, true
		}
		if s.update != nil {
			u.NewData, u.NewProps = true, true
			u.IsDir, u.Size, u.ModTime = s.update.isDir, s.update.size, s.update.mtime
			if s.update.mode != 0 {
				u.Mode = s.update.mode
			}
			u.LinkTarget = s.update.link
			u.Open = s.update.opener(w.lib.fs)
		} else if !u.IsDir {
			u.Open = w.existingOpener(uint32(i))
		}
		ret = append(ret, u)
	}
	for _, a := range w.added {
		ret = append(ret, tool.UpdateItem{
			IndexInArchive: -1,
			NewData:        true,
			NewProps:       true,
			Path:           a.path,
			IsDir:          a.src.isDir,
			Size:           a.src.size,
			ModTime:        a.src.mtime,
			Mode:           a.src.mode,
			LinkTarget:     a.src.link,
			Open:           a.src.opener(w.lib.fs),
		})
	}
	return ret
}

func (w *Writer) existingOpener(index uint32) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		rc, st, err := w.input.arc.OpenItem(index)
		if !st.OK() {
			return nil, tool.Error("commit", st, err).WithArchive(w.target).WithItem(int(index), "")
		}
		return rc, nil
	}
}

// prepare validates the pending set against the format and finds its
// writer.
func (w *Writer) prepare(op string) (tool.Updater, error) {
	if err := w.editable(op); err != nil {
		return nil, err
	}
	if err := w.settings.validate(w.format, w.h.password, w.ItemsCount()); err != nil {
		return nil, err
	}
	return w.lib.updater(w.format.In())
}

// ApplyChanges writes the pending set to a temporary file and swaps it in
// for the target. The target is never left half written: on failure the
// temporary output is removed and the writer refuses further edits. On
// success the committed archive is reopened, so indices run from 0 again,
// and the writer accepts new edits. Nothing pending is a no-op.
func (w *Writer) ApplyChanges(ctx context.Context) error {
	if err := w.editable("commit"); err != nil {
		return err
	}
	if w.target == "" {
		return errs.New(errs.KindUnsupportedOperation, "commit", "writer has no target; use WriteTo")
	}
	if w.input != nil && w.PendingCount() == 0 {
		log.Debugf("nothing to commit to %s", w.target)
		w.state = Committed
		return nil
	}
	u, err := w.prepare("commit")
	if err != nil {
		return err
	}
	w.state = Committing
	if err := w.commit(ctx, u); err != nil {
		w.state = Failed
		log.Warnf("commit to %s failed: %+v", w.target, err)
		return err
	}
	if w.mode == UpdateNone || w.mode == UpdateOverwrite {
		w.mode = UpdateAppend
	}
	if err := w.reopen(); err != nil {
		w.state = Failed
		return errors.WithMessagef(err, "failed to reopen %s", w.target)
	}
	w.state = Committed
	log.Debugf("committed %s with %d items", w.target, w.ItemsCount())
	return nil
}

func (w *Writer) commit(ctx context.Context, u tool.Updater) error {
	var temps, finals []string
	discard := func() {
		for _, t := range temps {
			w.lib.fs.Discard(t)
		}
	}
	create := func(final string) (io.WriteCloser, error) {
		tmp, err := w.lib.fs.TempFile(final, w.lib.tempDir)
		if err != nil {
			return nil, err
		}
		temps = append(temps, tmp.Name())
		finals = append(finals, final)
		return tmp, nil
	}
	var out io.WriteCloser
	if size := w.settings.VolumeSize; size > 0 {
		out = &stream.VolumeWriter{Size: size, Create: func(n int) (io.WriteCloser, error) {
			return create(volumeName(w.target, n))
		}}
	} else {
		var err error
		if out, err = create(w.target); err != nil {
			return err
		}
	}
	err := w.write(ctx, u, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.WithStack(cerr)
	}
	if err != nil {
		discard()
		return err
	}
	if w.input != nil {
		_ = w.input.Close()
		w.input = nil
	}
	if err := w.lib.fs.SwapAll(temps, finals); err != nil {
		return err
	}
	w.cleanup(len(finals))
	return nil
}

// cleanup removes what is left of the previous layout of the target: the
// plain file after a split commit, extra volumes otherwise.
func (w *Writer) cleanup(volumes int) {
	if w.settings.VolumeSize <= 0 {
		volumes = 0
	} else if w.lib.fs.Exists(w.target) {
		w.lib.fs.Discard(w.target)
	}
	for n := volumes + 1; ; n++ {
		name := volumeName(w.target, n)
		if !w.lib.fs.Exists(name) {
			break
		}
		w.lib.fs.Discard(name)
	}
}

// write runs the engine update into out.
func (w *Writer) write(ctx context.Context, u tool.Updater, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	counter := &stream.ProgressWriter{W: stream.LimitWriter(ctx, out, stream.ArchiveWriteLimit)}
	t := newTracker(ctx, w.h)
	args := tool.UpdateArgs{
		Format:   w.format.Name,
		Output:   counter,
		Items:    w.items(),
		Settings: w.settings.tool(w.format, w.h),
		Callback: &updateCallback{t: t, out: counter},
	}
	if w.input != nil {
		args.Input = w.input.arc
	}
	st, err := u.Update(ctx, args)
	switch {
	case st == tool.StatusCancelled || t.aborted:
		return errs.New(errs.KindOperationCancelled, "commit", "").WithArchive(w.target).WithCause(err)
	case !st.OK():
		return tool.Error("commit", st, err).WithArchive(w.target)
	case err != nil:
		return errs.New(errs.KindEngineFailure, "commit", "").WithArchive(w.target).WithCause(err)
	}
	return nil
}

// WriteTo writes the archive the pending set describes to dst without
// touching the target. The pending set is kept.
func (w *Writer) WriteTo(ctx context.Context, dst io.Writer) error {
	if w.settings.VolumeSize > 0 {
		return errs.New(errs.KindUnsupportedOperation, "write", "volumes need a target file")
	}
	u, err := w.prepare("write")
	if err != nil {
		return err
	}
	return w.write(ctx, u, dst)
}

// Bytes returns the archive the pending set describes.
func (w *Writer) Bytes(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.WriteTo(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close drops pending edits and releases the writer.
func (w *Writer) Close() error {
	if w.state == Closed {
		return nil
	}
	w.state = Closed
	var err error
	if w.input != nil {
		err = w.input.Close()
		w.input = nil
	}
	if w.release != nil {
		w.release()
	}
	return err
}

type updateCallback struct {
	t   *tracker
	out *stream.ProgressWriter
}

func (c *updateCallback) SetTotal(total uint64) {
	c.t.setTotal(total)
}

func (c *updateCallback) SetCompleted(done uint64) tool.Status {
	ok := c.t.progress(done)
	if ok {
		ok = c.t.ratio(done, uint64(c.out.Written()))
	}
	if !ok {
		return tool.StatusCancelled
	}
	return tool.StatusOK
}

func (c *updateCallback) FileName(name string) {
	c.t.fileName(name)
}
