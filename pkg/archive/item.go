package archive

import (
	stdfs "io/fs"
	stdpath "path"
	"strings"

	"github.com/alist-org/arkit/pkg/prop"
)

const (
	posixTypeMask = 0o170000
	posixDir      = 0o040000
	posixSymlink  = 0o120000
	winReadOnly   = 0x1
	winDirectory  = 0x10
)

// Item is one entry of an archive. An offset item queries the owning reader
// on every access and fails once it is closed; an info item carries a
// snapshot of its properties and stays usable after the reader is gone.
type Item struct {
	index uint32
	r     *Reader
	props map[prop.PropID]prop.Variant
}

// Index is the position of the item in the archive.
func (it Item) Index() uint32 {
	return it.index
}

// IsInfo reports whether it is a detached snapshot.
func (it Item) IsInfo() bool {
	return it.props != nil
}

// Property returns a property of the item, Empty when the format does not
// record it.
func (it Item) Property(id prop.PropID) (prop.Variant, error) {
	if it.props != nil {
		return it.props[id], nil
	}
	if it.r == nil {
		return prop.Empty(), nil
	}
	return it.r.itemProperty(it.index, id)
}

// Snapshot detaches the item from its reader.
func (it Item) Snapshot() (Item, error) {
	if it.props != nil {
		return it, nil
	}
	if it.r == nil {
		return Item{index: it.index, props: map[prop.PropID]prop.Variant{}}, nil
	}
	return it.r.ItemInfo(it.index)
}

func (it Item) value(id prop.PropID) prop.Variant {
	v, _ := it.Property(id)
	return v
}

func (it Item) Path() string {
	s, _ := it.value(prop.Path).AsString()
	return s
}

func (it Item) Name() string {
	if s, err := it.value(prop.Name).AsString(); err == nil {
		return s
	}
	return stdpath.Base(strings.TrimSuffix(it.Path(), "/"))
}

// Extension is the file extension without the dot, empty for directories.
func (it Item) Extension() string {
	if it.IsDir() {
		return ""
	}
	if s, err := it.value(prop.Extension).AsString(); err == nil {
		return s
	}
	return strings.TrimPrefix(stdpath.Ext(it.Name()), ".")
}

func (it Item) IsDir() bool {
	if b, err := it.value(prop.IsDir).AsBool(); err == nil {
		return b
	}
	return it.posix()&posixTypeMask == posixDir || it.Attributes()&winDirectory != 0
}

func (it Item) Size() uint64 {
	n, _ := it.value(prop.Size).Uint()
	return n
}

func (it Item) PackSize() uint64 {
	n, _ := it.value(prop.PackSize).Uint()
	return n
}

// Attributes are the Windows attribute bits of the item.
func (it Item) Attributes() uint32 {
	n, _ := it.value(prop.Attrib).Uint()
	return uint32(n)
}

func (it Item) posix() uint32 {
	n, _ := it.value(prop.PosixAttrib).Uint()
	return uint32(n)
}

// CRC is Empty when the format keeps no checksum for the item.
func (it Item) CRC() prop.Variant {
	return it.value(prop.CRC)
}

func (it Item) CreationTime() prop.Variant {
	return it.value(prop.CTime)
}

func (it Item) AccessTime() prop.Variant {
	return it.value(prop.ATime)
}

func (it Item) ModTime() prop.Variant {
	return it.value(prop.MTime)
}

func (it Item) IsEncrypted() bool {
	b, _ := it.value(prop.Encrypted).AsBool()
	return b
}

func (it Item) IsSymlink() bool {
	if !it.value(prop.SymLink).IsEmpty() {
		return true
	}
	return it.posix()&posixTypeMask == posixSymlink
}

// Mode derives file mode bits from the POSIX attributes when present, or
// from the Windows read-only flag otherwise.
func (it Item) Mode() stdfs.FileMode {
	var mode stdfs.FileMode
	if p := it.posix(); p != 0 {
		mode = stdfs.FileMode(p & 0o777)
	} else if it.Attributes()&winReadOnly != 0 {
		mode = 0o444
	}
	if it.IsDir() {
		mode |= stdfs.ModeDir
	}
	if it.IsSymlink() {
		mode |= stdfs.ModeSymlink
	}
	return mode
}
