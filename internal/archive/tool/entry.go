package tool

import (
	stdpath "path"
	"strings"
	"time"

	"github.com/alist-org/arkit/pkg/prop"
)

// Entry is the codec-side record of one item.
type Entry struct {
	Path        string
	IsDir       bool
	Size        uint64
	PackSize    uint64
	Attrib      uint32
	PosixAttrib uint32
	CTime       time.Time
	ATime       time.Time
	MTime       time.Time
	CRC         uint32
	HasCRC      bool
	Encrypted   bool
	Method      string
	HostOS      string
	Comment     string
	SymLink     string
}

func optTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Property returns the native value of a property, nil when absent.
func (e *Entry) Property(id prop.PropID) any {
	switch id {
	case prop.Path:
		return e.Path
	case prop.Name:
		return stdpath.Base(strings.TrimSuffix(e.Path, "/"))
	case prop.Extension:
		if e.IsDir {
			return nil
		}
		return optString(strings.TrimPrefix(stdpath.Ext(e.Path), "."))
	case prop.IsDir:
		return e.IsDir
	case prop.Size:
		return e.Size
	case prop.PackSize:
		return e.PackSize
	case prop.Attrib:
		return e.Attrib
	case prop.PosixAttrib:
		if e.PosixAttrib == 0 {
			return nil
		}
		return e.PosixAttrib
	case prop.CTime:
		return optTime(e.CTime)
	case prop.ATime:
		return optTime(e.ATime)
	case prop.MTime:
		return optTime(e.MTime)
	case prop.CRC:
		if !e.HasCRC {
			return nil
		}
		return e.CRC
	case prop.Encrypted:
		return e.Encrypted
	case prop.Method:
		return optString(e.Method)
	case prop.HostOS:
		return optString(e.HostOS)
	case prop.Comment:
		return optString(e.Comment)
	case prop.SymLink:
		return optString(e.SymLink)
	}
	return nil
}

// Entries implements the property side of InArchive over a flat item list.
type Entries struct {
	Items []Entry
	Props map[prop.PropID]any
}

func (a *Entries) NumberOfItems() uint32 {
	return uint32(len(a.Items))
}

func (a *Entries) ItemProperty(index uint32, id prop.PropID) any {
	if int(index) >= len(a.Items) {
		return nil
	}
	return a.Items[index].Property(id)
}

// ArchiveProperty answers the stored archive properties and derives the
// aggregate ones from the item list.
func (a *Entries) ArchiveProperty(id prop.PropID) any {
	if v, ok := a.Props[id]; ok {
		return v
	}
	switch id {
	case prop.NumFiles, prop.NumDirs:
		var files, dirs uint32
		for i := range a.Items {
			if a.Items[i].IsDir {
				dirs++
			} else {
				files++
			}
		}
		if id == prop.NumDirs {
			return dirs
		}
		return files
	case prop.UnpackSize:
		var n uint64
		for i := range a.Items {
			n += a.Items[i].Size
		}
		return n
	case prop.Encrypted:
		for i := range a.Items {
			if a.Items[i].Encrypted {
				return true
			}
		}
		return false
	}
	return nil
}

// SetProp stores an archive property.
func (a *Entries) SetProp(id prop.PropID, v any) {
	if a.Props == nil {
		a.Props = make(map[prop.PropID]any)
	}
	a.Props[id] = v
}
