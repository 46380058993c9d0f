package archive

import (
	"context"
	"io"
	"iter"
	stdpath "path"
	"path/filepath"
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// Reader is an opened input archive.
type Reader struct {
	lib      *Library
	h        *Handler
	path     string
	format   *format.InFormat
	password string
	arc      tool.InArchive
	files    []io.Closer
	release  func()
	count    uint32
	volumes  int
	props    map[prop.PropID]prop.Variant
	closed   bool
}

// source is what an archive is read from before the codec sees it.
type source struct {
	name    string
	path    string
	reader  io.ReaderAt
	size    int64
	volumes int
	files   []io.Closer
}

func (s *source) close() {
	for _, f := range s.files {
		_ = f.Close()
	}
}

// OpenReader opens the archive at path. Volumes of a spanned archive are
// found from the name of any of them.
func (l *Library) OpenReader(h *Handler, path string) (*Reader, error) {
	if err := l.check("open"); err != nil {
		return nil, err
	}
	src, err := l.openVolumes(path)
	if err != nil {
		return nil, err
	}
	r, err := l.open(h, src)
	if err != nil {
		src.close()
		return nil, err
	}
	return r, nil
}

// OpenReaderFrom opens an archive held by r. name is used for extension
// based detection and to name the item of single-stream formats.
func (l *Library) OpenReaderFrom(h *Handler, r io.ReaderAt, size int64, name string) (*Reader, error) {
	if err := l.check("open"); err != nil {
		return nil, err
	}
	return l.open(h, &source{name: name, reader: r, size: size, volumes: 1})
}

func (l *Library) openVolumes(path string) (*source, error) {
	names, err := tool.ResolveVolumes(path, l.fs.Exists)
	if err != nil {
		return nil, err
	}
	src := &source{name: names[0], volumes: len(names)}
	parts := make([]stream.SizedReaderAt, 0, len(names))
	for i, name := range names {
		f, size, err := l.fs.OpenReaderAt(name)
		if err != nil {
			src.close()
			if i > 0 {
				return nil, errs.Newf(errs.KindMultiVolumeIncomplete, "open", "cannot read volume %d", i+1).
					WithArchive(name).WithCause(err)
			}
			if errs.KindOf(err) == errs.KindIsDirectory {
				return nil, err
			}
			return nil, errors.WithMessagef(err, "failed to open %s", name)
		}
		src.files = append(src.files, f)
		parts = append(parts, io.NewSectionReader(f, 0, size))
	}
	if len(parts) == 1 {
		src.reader, src.size = parts[0], parts[0].Size()
	} else {
		m, err := stream.NewMultiReaderAt(parts)
		if err != nil {
			src.close()
			return nil, err
		}
		src.reader, src.size = m, m.Size()
		log.Debugf("archive %s spans %d volumes", path, len(names))
	}
	if l.osBacked() {
		src.path = names[0]
	}
	return src, nil
}

func (l *Library) open(h *Handler, src *source) (*Reader, error) {
	if h == nil {
		h = NewHandler()
	}
	f, err := format.Detect(h.format, src.name, src.reader)
	if err != nil {
		return nil, err
	}
	t, st := l.engine.Tool(f.Name)
	if !st.OK() {
		if st == tool.StatusUnsupported {
			return nil, errs.Newf(errs.KindUnsupportedFormat, "open", "no codec for %s", f.Name).WithArchive(src.name)
		}
		return nil, tool.Error("open", st, nil).WithArchive(src.name)
	}
	release, err := l.acquire("open")
	if err != nil {
		return nil, err
	}
	limiter := h.limiter
	if limiter == nil {
		limiter = stream.ArchiveReadLimit
	}
	r := &Reader{
		lib:      l,
		h:        h,
		path:     src.name,
		format:   f,
		password: h.password,
		files:    src.files,
		release:  release,
		volumes:  src.volumes,
	}
	args := tool.OpenArgs{
		Format:   f.Name,
		Name:     filepath.Base(src.name),
		Path:     src.path,
		Reader:   stream.LimitReaderAt(context.Background(), src.reader, limiter),
		Size:     src.size,
		Password: r.password,
		Volumes:  src.volumes,
	}
	arc, err := r.openArchive(t, args)
	if err != nil {
		release()
		return nil, err
	}
	r.arc = arc
	r.load()
	log.Debugf("opened %s archive %s with %d items", f.Name, src.name, r.count)
	return r, nil
}

// openArchive asks the codec to parse the archive, consulting the password
// callback once when a password turns out to be missing.
func (r *Reader) openArchive(t tool.Tool, args tool.OpenArgs) (tool.InArchive, error) {
	ctx := context.Background()
	arc, st, err := t.Open(ctx, args)
	if st == tool.StatusWrongPassword && args.Password == "" {
		pw, ok := r.requestPassword()
		if !ok {
			return nil, tool.Error("open", st, err).WithArchive(r.path)
		}
		args.Password = pw
		arc, st, err = t.Open(ctx, args)
	} else if st.OK() && args.Password == "" && arc.ArchiveProperty(prop.Encrypted) == true {
		if pw, ok := r.requestPassword(); ok {
			_ = arc.Close()
			args.Password = pw
			arc, st, err = t.Open(ctx, args)
		}
	}
	if !st.OK() {
		return nil, tool.Error("open", st, err).WithArchive(r.path)
	}
	if err != nil {
		return nil, errs.New(errs.KindEngineFailure, "open", "").WithArchive(r.path).WithCause(err)
	}
	r.password = args.Password
	return arc, nil
}

func (r *Reader) requestPassword() (string, bool) {
	if r.h.passwordRequest == nil {
		return "", false
	}
	pw, ok := r.h.passwordRequest()
	if !ok || pw == "" {
		return "", false
	}
	return pw, true
}

func (r *Reader) load() {
	r.count = r.arc.NumberOfItems()
	r.props = make(map[prop.PropID]prop.Variant)
	for _, id := range prop.ArchiveProps {
		v, err := prop.FromNative(r.arc.ArchiveProperty(id))
		if err != nil {
			log.Debugf("archive property %s of %s: %+v", id, r.path, err)
			continue
		}
		if !v.IsEmpty() {
			r.props[id] = v
		}
	}
	if _, ok := r.props[prop.NumVolumes]; !ok && r.volumes > 1 {
		r.props[prop.NumVolumes] = prop.Uint32(uint32(r.volumes))
	}
}

func (r *Reader) check(op string) error {
	if r.closed {
		return errs.New(errs.KindUnsupportedOperation, op, "archive is closed").WithArchive(r.path)
	}
	return r.lib.check(op)
}

func (r *Reader) checkIndex(op string, index uint32) error {
	if index >= r.count {
		return errs.Newf(errs.KindInvalidIndex, op, "index %d out of range [0, %d)", index, r.count).
			WithArchive(r.path).WithItem(int(index), "")
	}
	return nil
}

func (r *Reader) itemProperty(index uint32, id prop.PropID) (prop.Variant, error) {
	if err := r.check("property"); err != nil {
		return prop.Empty(), err
	}
	if err := r.checkIndex("property", index); err != nil {
		return prop.Empty(), err
	}
	v, err := prop.FromNative(r.arc.ItemProperty(index, id))
	if err != nil {
		return prop.Empty(), errors.WithMessagef(err, "item %d property %s", index, id)
	}
	return v, nil
}

// Path is the archive path, or its name when it was opened from a reader.
func (r *Reader) Path() string {
	return r.path
}

// Format is the detected or requested format.
func (r *Reader) Format() *format.InFormat {
	return r.format
}

func (r *Reader) Handler() *Handler {
	return r.h
}

// ItemsCount is the number of items, 0 once closed.
func (r *Reader) ItemsCount() uint32 {
	if r.closed {
		return 0
	}
	return r.count
}

// Item returns an offset item.
func (r *Reader) Item(index uint32) (Item, error) {
	if err := r.check("item"); err != nil {
		return Item{}, err
	}
	if err := r.checkIndex("item", index); err != nil {
		return Item{}, err
	}
	return Item{index: index, r: r}, nil
}

// ItemInfo returns a snapshot of every known property of an item.
func (r *Reader) ItemInfo(index uint32) (Item, error) {
	if err := r.check("item"); err != nil {
		return Item{}, err
	}
	if err := r.checkIndex("item", index); err != nil {
		return Item{}, err
	}
	props := make(map[prop.PropID]prop.Variant, len(prop.ItemProps)+2)
	for _, id := range append([]prop.PropID{prop.Name, prop.Extension}, prop.ItemProps...) {
		v, err := prop.FromNative(r.arc.ItemProperty(index, id))
		if err != nil {
			return Item{}, errors.WithMessagef(err, "item %d property %s", index, id)
		}
		props[id] = v
	}
	return Item{index: index, props: props}, nil
}

// Items returns an iterator over offset items.
func (r *Reader) Items() *ItemIterator {
	return &ItemIterator{r: r, next: 0}
}

// All yields every item with its index.
func (r *Reader) All() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		for i := uint32(0); i < r.ItemsCount(); i++ {
			if !yield(int(i), Item{index: i, r: r}) {
				return
			}
		}
	}
}

// Find returns the item stored under path. A missing path fails with
// errs.InvalidIndex wrapping errs.PathNotFound.
func (r *Reader) Find(path string) (Item, error) {
	if err := r.check("find"); err != nil {
		return Item{}, err
	}
	i, ok := r.indexOf(path)
	if !ok {
		return Item{}, notFound("find", r.path, path)
	}
	return Item{index: i, r: r}, nil
}

// Contains reports whether an item is stored under path.
func (r *Reader) Contains(path string) bool {
	if r.check("find") != nil {
		return false
	}
	_, ok := r.indexOf(path)
	return ok
}

func (r *Reader) indexOf(path string) (uint32, bool) {
	want := normPath(path)
	for i := uint32(0); i < r.count; i++ {
		p, _ := r.arc.ItemProperty(i, prop.Path).(string)
		if normPath(p) == want {
			return i, true
		}
	}
	return 0, false
}

func notFound(op, archive, path string) error {
	return errs.Newf(errs.KindInvalidIndex, op, "no item %q", path).
		WithArchive(archive).WithItem(-1, path).WithCause(errs.PathNotFound)
}

// normPath is the form archive paths are compared in: NFC, slash
// separated, cleaned and relative.
func normPath(p string) string {
	p = norm.NFC.String(strings.ReplaceAll(p, "\\", "/"))
	p = strings.Trim(stdpath.Clean("/"+p), "/")
	return p
}

// ArchiveProperties returns the archive level properties loaded on open.
func (r *Reader) ArchiveProperties() map[prop.PropID]prop.Variant {
	ret := make(map[prop.PropID]prop.Variant, len(r.props))
	for k, v := range r.props {
		ret[k] = v
	}
	return ret
}

// ArchiveProperty returns an archive property, Empty when unknown.
func (r *Reader) ArchiveProperty(id prop.PropID) prop.Variant {
	return r.props[id]
}

// UseFormatProperty queries the codec for a property by name.
func (r *Reader) UseFormatProperty(name string) (prop.Variant, error) {
	if err := r.check("property"); err != nil {
		return prop.Empty(), err
	}
	id, err := prop.ParsePropID(name)
	if err != nil {
		return prop.Empty(), err
	}
	return prop.FromNative(r.arc.ArchiveProperty(id))
}

func (r *Reader) flag(id prop.PropID) bool {
	b, _ := r.props[id].AsBool()
	return b
}

func (r *Reader) number(id prop.PropID) uint64 {
	n, _ := r.props[id].Uint()
	return n
}

func (r *Reader) IsSolid() bool {
	return r.flag(prop.Solid)
}

func (r *Reader) IsMultiVolume() bool {
	return r.VolumesCount() > 1
}

// VolumesCount is the number of volumes, 1 for a plain archive.
func (r *Reader) VolumesCount() uint32 {
	if n := r.number(prop.NumVolumes); n > 0 {
		return uint32(n)
	}
	return 1
}

func (r *Reader) HasEncryptedItems() bool {
	return r.flag(prop.Encrypted)
}

func (r *Reader) IsHeaderEncrypted() bool {
	return r.flag(prop.HeaderEncrypted)
}

// IsEncrypted reports whether the headers or any item are encrypted.
func (r *Reader) IsEncrypted() bool {
	return r.IsHeaderEncrypted() || r.HasEncryptedItems()
}

func (r *Reader) FilesCount() uint32 {
	return uint32(r.number(prop.NumFiles))
}

func (r *Reader) FoldersCount() uint32 {
	return uint32(r.number(prop.NumDirs))
}

// Size is the total unpacked size of the items.
func (r *Reader) Size() uint64 {
	return r.number(prop.UnpackSize)
}

// PackSize is the total packed size of the items.
func (r *Reader) PackSize() uint64 {
	var n uint64
	for _, it := range r.All() {
		n += it.PackSize()
	}
	return n
}

// Close releases the archive. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	if r.arc != nil {
		err = r.arc.Close()
	}
	for _, f := range r.files {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if r.release != nil {
		r.release()
	}
	return errors.WithStack(err)
}

// ItemIterator walks the items of a reader lazily. It can be restarted
// with Reset.
type ItemIterator struct {
	r    *Reader
	next uint32
	cur  Item
}

func (it *ItemIterator) Next() bool {
	if it.next >= it.r.ItemsCount() {
		return false
	}
	it.cur = Item{index: it.next, r: it.r}
	it.next++
	return true
}

func (it *ItemIterator) Item() Item {
	return it.cur
}

func (it *ItemIterator) Reset() {
	it.next = 0
	it.cur = Item{}
}
