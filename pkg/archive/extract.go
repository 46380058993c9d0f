package archive

import (
	"bytes"
	"context"
	"io"
	stdpath "path"
	"path/filepath"
	"sort"
	"time"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/fs"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/alist-org/arkit/pkg/errs"
	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// progressStep is how often progress is reported while an item streams.
const progressStep = 1 << 20

// sink receives the content of extracted items.
type sink interface {
	// open returns the writer for an item; a nil writer skips it.
	open(it Item) (io.Writer, error)
	// close ends an item. result is the outcome of decoding it; the
	// returned error is what gets reported for the item.
	close(it Item, result error) error
}

// Extract writes every item under dir.
func (r *Reader) Extract(ctx context.Context, dir string) error {
	if err := r.check("extract"); err != nil {
		return err
	}
	return r.extractDir(ctx, "extract", nil, dir)
}

// ExtractItems writes the selected items under dir. The indices must be
// unique and in range; nothing is written otherwise.
func (r *Reader) ExtractItems(ctx context.Context, indices []uint32, dir string) error {
	if err := r.check("extract"); err != nil {
		return err
	}
	if err := r.validateIndices("extract", indices); err != nil {
		return err
	}
	return r.extractDir(ctx, "extract", indices, dir)
}

// ExtractMatching writes the items whose path or name matches a glob
// pattern under dir.
func (r *Reader) ExtractMatching(ctx context.Context, pattern string, dir string) error {
	if err := r.check("extract"); err != nil {
		return err
	}
	if _, err := stdpath.Match(pattern, ""); err != nil {
		return errs.Newf(errs.KindUnsupportedOperation, "extract", "bad pattern %q", pattern).WithCause(err)
	}
	indices := make([]uint32, 0)
	for i, it := range r.All() {
		path := normPath(it.Path())
		if ok, _ := stdpath.Match(pattern, path); ok {
			indices = append(indices, uint32(i))
		} else if ok, _ = stdpath.Match(pattern, stdpath.Base(path)); ok {
			indices = append(indices, uint32(i))
		}
	}
	if len(indices) == 0 {
		return errs.Newf(errs.KindInvalidIndex, "extract", "no matching items for %q", pattern).WithArchive(r.path)
	}
	return r.extractDir(ctx, "extract", indices, dir)
}

// ExtractTo streams one file item into w.
func (r *Reader) ExtractTo(ctx context.Context, index uint32, w io.Writer) error {
	if err := r.checkFile("extract", index); err != nil {
		return err
	}
	return r.single(ctx, "extract", index, false, &writerSink{w: w})
}

// ExtractBytes returns the content of one file item.
func (r *Reader) ExtractBytes(ctx context.Context, index uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.ExtractTo(ctx, index, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExtractAllBytes returns the content of every file item keyed by path.
func (r *Reader) ExtractAllBytes(ctx context.Context) (map[string][]byte, error) {
	if err := r.check("extract"); err != nil {
		return nil, err
	}
	s := &memorySink{files: make(map[string][]byte)}
	failures, err := r.run(ctx, "extract", nil, false, s)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return s.files, r.partial("extract", failures)
	}
	return s.files, nil
}

// Test decodes every item and verifies its checksum without writing
// anything.
func (r *Reader) Test(ctx context.Context) error {
	if err := r.check("test"); err != nil {
		return err
	}
	failures, err := r.run(ctx, "test", nil, true, discardSink{})
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return r.partial("test", failures)
	}
	return nil
}

// TestItem decodes one item and verifies its checksum.
func (r *Reader) TestItem(ctx context.Context, index uint32) error {
	if err := r.check("test"); err != nil {
		return err
	}
	if err := r.checkIndex("test", index); err != nil {
		return err
	}
	return r.single(ctx, "test", index, true, discardSink{})
}

func (r *Reader) checkFile(op string, index uint32) error {
	if err := r.check(op); err != nil {
		return err
	}
	if err := r.checkIndex(op, index); err != nil {
		return err
	}
	it := Item{index: index, r: r}
	if it.IsDir() {
		return errs.New(errs.KindIsDirectory, op, "").WithArchive(r.path).WithItem(int(index), it.Path())
	}
	return nil
}

func (r *Reader) validateIndices(op string, indices []uint32) error {
	seen := mapset.NewThreadUnsafeSet[uint32]()
	for _, i := range indices {
		if err := r.checkIndex(op, i); err != nil {
			return err
		}
		if !seen.Add(i) {
			return errs.Newf(errs.KindInvalidIndex, op, "index %d given twice", i).
				WithArchive(r.path).WithItem(int(i), "")
		}
	}
	return nil
}

func (r *Reader) single(ctx context.Context, op string, index uint32, test bool, s sink) error {
	failures, err := r.run(ctx, op, []uint32{index}, test, s)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return failures[0].Err
	}
	return nil
}

func (r *Reader) extractDir(ctx context.Context, op string, indices []uint32, dir string) error {
	s := &dirSink{
		fs:         r.lib.fs,
		dir:        dir,
		policy:     r.h.overwrite,
		retainDirs: r.h.retainDirs,
		ctx:        ctx,
		files:      make(map[uint32]afero.File),
	}
	failures, err := r.run(ctx, op, indices, false, s)
	s.finish()
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return r.partial(op, failures)
	}
	return nil
}

func (r *Reader) partial(op string, failures []errs.ItemFailure) error {
	for _, f := range failures {
		log.Warnf("%s %s: %s: %+v", op, r.path, f.Path, f.Err)
	}
	total := int(r.count)
	return &errs.PartialFailure{Op: op, Archive: r.path, Total: total, Failures: failures}
}

// run drives one engine extraction. Item failures are collected unless the
// handler fails fast; the returned error is the operation level one.
func (r *Reader) run(ctx context.Context, op string, indices []uint32, test bool, s sink) ([]errs.ItemFailure, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cb := &extractCallback{r: r, op: op, sink: s, t: newTracker(ctx, r.h), items: make(map[uint32]Item)}
	st, err := r.arc.Extract(ctx, indices, test, cb)
	switch {
	case cb.err != nil:
		return nil, cb.err
	case st == tool.StatusCancelled || cb.t.aborted:
		return nil, errs.New(errs.KindOperationCancelled, op, "").WithArchive(r.path).WithCause(err)
	case !st.OK():
		return nil, tool.Error(op, st, err).WithArchive(r.path)
	case err != nil:
		return nil, errs.New(errs.KindEngineFailure, op, "").WithArchive(r.path).WithCause(err)
	}
	return cb.failures, nil
}

// extractCallback adapts a sink to the engine callback.
type extractCallback struct {
	r        *Reader
	op       string
	sink     sink
	t        *tracker
	items    map[uint32]Item
	done     uint64
	failures []errs.ItemFailure
	err      error
}

func (c *extractCallback) SetTotal(total uint64) {
	c.t.setTotal(total)
}

func (c *extractCallback) GetStream(index uint32) (io.Writer, tool.Status) {
	if c.t.cancelled() {
		return nil, tool.StatusCancelled
	}
	it := Item{index: index, r: c.r}
	c.t.fileName(it.Path())
	w, err := c.sink.open(it)
	if err != nil {
		return nil, c.fail(it, err)
	}
	if w == nil {
		c.done += it.Size()
		return nil, tool.StatusOK
	}
	c.items[index] = it
	base := c.done
	return &stream.ProgressWriter{
		W:    w,
		Step: progressStep,
		Report: func(written int64) bool {
			c.t.progress(base + uint64(written))
			return true
		},
	}, tool.StatusOK
}

func (c *extractCallback) SetOperationResult(index uint32, result tool.Status, err error) tool.Status {
	it, ok := c.items[index]
	if !ok {
		it = Item{index: index, r: c.r}
	}
	delete(c.items, index)
	var itemErr error
	if !result.OK() {
		itemErr = tool.Error(c.op, result, err).WithArchive(c.r.path).WithItem(int(index), it.Path())
	} else if err != nil {
		itemErr = errs.New(errs.KindEngineFailure, c.op, "").WithArchive(c.r.path).
			WithItem(int(index), it.Path()).WithCause(err)
	}
	if result == tool.StatusCancelled {
		_ = c.sink.close(it, itemErr)
		c.t.aborted = true
		return tool.StatusCancelled
	}
	if err := c.sink.close(it, itemErr); err != nil {
		if st := c.fail(it, err); !st.OK() {
			return st
		}
	}
	c.done += it.Size()
	if !c.t.progress(c.done) {
		return tool.StatusCancelled
	}
	return tool.StatusOK
}

// fail records an item failure and tells the engine whether to go on.
func (c *extractCallback) fail(it Item, err error) tool.Status {
	if c.r.h.failFast {
		c.err = err
		return tool.StatusFail
	}
	c.failures = append(c.failures, errs.ItemFailure{Index: int(it.index), Path: it.Path(), Err: err})
	return tool.StatusOK
}

// dirSink writes items below a destination directory.
type dirSink struct {
	fs         *fs.FS
	dir        string
	policy     Overwrite
	retainDirs bool
	ctx        context.Context
	files      map[uint32]afero.File
	targets    map[uint32]string
	dirs       []dirTime
}

type dirTime struct {
	path  string
	mtime time.Time
}

func (s *dirSink) target(it Item) (string, error) {
	clean, err := fs.CleanArchivePath(it.Path())
	if err != nil {
		return "", err
	}
	if !s.retainDirs {
		clean = stdpath.Base(clean)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *dirSink) open(it Item) (io.Writer, error) {
	target, err := s.target(it)
	if err != nil {
		return nil, err
	}
	mtime, _ := it.ModTime().AsFileTime()
	if it.IsDir() {
		if !s.retainDirs {
			return nil, nil
		}
		if err := s.fs.MkdirItem(target, it.Mode(), mtime); err != nil {
			return nil, err
		}
		s.dirs = append(s.dirs, dirTime{path: target, mtime: mtime})
		return nil, nil
	}
	file, skipped, err := s.fs.CreateFile(target, s.policy)
	if err != nil {
		return nil, err
	}
	if skipped {
		log.Warnf("skip extracting %s: %s exists", it.Path(), target)
		return nil, nil
	}
	if s.targets == nil {
		s.targets = make(map[uint32]string)
	}
	s.files[it.index] = file
	s.targets[it.index] = target
	return stream.LimitWriter(s.ctx, file, stream.ArchiveWriteLimit), nil
}

func (s *dirSink) close(it Item, result error) error {
	file, ok := s.files[it.index]
	if !ok {
		return result
	}
	target := s.targets[it.index]
	delete(s.files, it.index)
	delete(s.targets, it.index)
	err := file.Close()
	if result != nil {
		if rerr := s.fs.Remove(target); rerr != nil {
			log.Debugf("failed to remove partial file %s: %+v", target, rerr)
		}
		return result
	}
	if err != nil {
		return err
	}
	mtime, _ := it.ModTime().AsFileTime()
	s.fs.FinishFile(target, it.Mode(), mtime)
	return nil
}

// finish closes what the engine left open and restores directory times,
// deepest first so restoring a child does not touch its parent again.
func (s *dirSink) finish() {
	for i, file := range s.files {
		_ = file.Close()
		log.Debugf("closed unfinished item %d", i)
	}
	sort.SliceStable(s.dirs, func(i, j int) bool {
		return len(s.dirs[i].path) > len(s.dirs[j].path)
	})
	for _, d := range s.dirs {
		s.fs.SetDirTime(d.path, d.mtime)
	}
}

type writerSink struct {
	w io.Writer
}

func (s *writerSink) open(Item) (io.Writer, error) {
	return s.w, nil
}

func (s *writerSink) close(_ Item, result error) error {
	return result
}

type memorySink struct {
	files map[string][]byte
	cur   *bytes.Buffer
}

func (s *memorySink) open(it Item) (io.Writer, error) {
	if it.IsDir() {
		return nil, nil
	}
	s.cur = new(bytes.Buffer)
	return s.cur, nil
}

func (s *memorySink) close(it Item, result error) error {
	if result == nil && s.cur != nil {
		s.files[it.Path()] = s.cur.Bytes()
	}
	s.cur = nil
	return result
}

type discardSink struct{}

func (discardSink) open(Item) (io.Writer, error) {
	return io.Discard, nil
}

func (discardSink) close(_ Item, result error) error {
	return result
}
