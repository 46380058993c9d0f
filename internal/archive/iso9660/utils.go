package iso9660

import (
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/kdomanski/iso9660"
)

// decodeName drops the ";1" version suffix and the trailing dot plain
// ISO 9660 identifiers carry.
func decodeName(name string) string {
	if i := strings.LastIndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, ".")
}

func toEntry(path string, f *iso9660.File) tool.Entry {
	e := tool.Entry{
		Path:        path,
		IsDir:       f.IsDir(),
		MTime:       f.ModTime(),
		PosixAttrib: uint32(f.Mode().Perm()),
	}
	if !e.IsDir {
		e.Size = uint64(f.Size())
		e.PackSize = e.Size
	}
	return e
}
