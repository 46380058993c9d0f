package prop

import (
	"strings"

	"github.com/alist-org/arkit/pkg/errs"
)

// PropID names a property the engine can report for an item or for the
// archive as a whole.
type PropID uint32

const (
	NoProperty PropID = iota
	Path
	Name
	Extension
	IsDir
	Size
	PackSize
	Attrib
	CTime
	ATime
	MTime
	Solid
	Commented
	Encrypted
	CRC
	Method
	HostOS
	Comment
	NumVolumes
	IsVolume
	PhySize
	HeadersSize
	TotalSize
	UnpackSize
	VolumeIndex
	SymLink
	PosixAttrib
	NumFiles
	NumDirs
	HeaderEncrypted
)

var propNames = [...]string{
	NoProperty:      "NoProperty",
	Path:            "Path",
	Name:            "Name",
	Extension:       "Extension",
	IsDir:           "IsDir",
	Size:            "Size",
	PackSize:        "PackSize",
	Attrib:          "Attrib",
	CTime:           "CTime",
	ATime:           "ATime",
	MTime:           "MTime",
	Solid:           "Solid",
	Commented:       "Commented",
	Encrypted:       "Encrypted",
	CRC:             "CRC",
	Method:          "Method",
	HostOS:          "HostOS",
	Comment:         "Comment",
	NumVolumes:      "NumVolumes",
	IsVolume:        "IsVolume",
	PhySize:         "PhySize",
	HeadersSize:     "HeadersSize",
	TotalSize:       "TotalSize",
	UnpackSize:      "UnpackSize",
	VolumeIndex:     "VolumeIndex",
	SymLink:         "SymLink",
	PosixAttrib:     "PosixAttrib",
	NumFiles:        "NumFiles",
	NumDirs:         "NumDirs",
	HeaderEncrypted: "HeaderEncrypted",
}

func (p PropID) String() string {
	if int(p) < len(propNames) {
		return propNames[p]
	}
	return "Unknown"
}

// ItemProps lists the item properties captured by an item snapshot.
var ItemProps = []PropID{
	Path, IsDir, Size, PackSize, Attrib, CTime, ATime, MTime,
	Encrypted, CRC, Method, HostOS, Comment, SymLink, PosixAttrib,
}

// ArchiveProps lists the archive-level properties loaded on open.
var ArchiveProps = []PropID{
	Solid, Commented, Comment, Encrypted, HeaderEncrypted, Method,
	NumVolumes, IsVolume, PhySize, HeadersSize, TotalSize, UnpackSize, NumFiles, NumDirs,
}

// ParsePropID resolves a property name case-insensitively.
func ParsePropID(name string) (PropID, error) {
	for i, n := range propNames {
		if i != int(NoProperty) && strings.EqualFold(n, name) {
			return PropID(i), nil
		}
	}
	return NoProperty, errs.Newf(errs.KindUnsupportedOperation, "property", "unknown property %q", name)
}
