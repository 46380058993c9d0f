// Package op turns opened archives into the listing models shared by the
// command line tool and the HTTP server.
package op

import (
	"fmt"
	"os"
	"sort"
	stdpath "path"
	"strings"

	"github.com/alist-org/arkit/internal/model"
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/maruel/natural"
	"github.com/pkg/errors"
)

// ArchiveMeta summarises r.
func ArchiveMeta(r *archive.Reader) model.ArchiveMeta {
	comment, _ := r.ArchiveProperty(prop.Comment).AsString()
	meta := model.ArchiveMeta{
		Name:      stdpath.Base(utils.FixAndCleanPath(r.Path())),
		Format:    r.Format().Name,
		Comment:   comment,
		Encrypted: r.IsEncrypted(),
		Solid:     r.IsSolid(),
		Volumes:   r.VolumesCount(),
		Items:     r.ItemsCount(),
		Files:     r.FilesCount(),
		Folders:   r.FoldersCount(),
		Size:      model.Size(r.Size()),
		PackSize:  model.Size(r.PackSize()),
	}
	if info, err := os.Stat(r.Path()); err == nil {
		meta.Modified = info.ModTime()
	}
	return meta
}

// ToObj describes one item.
func ToObj(it archive.Item) model.ArchiveObj {
	obj := model.ArchiveObj{
		Index:     int(it.Index()),
		Path:      it.Path(),
		Name:      it.Name(),
		IsDir:     it.IsDir(),
		Size:      model.Size(it.Size()),
		PackSize:  model.Size(it.PackSize()),
		Encrypted: it.IsEncrypted(),
	}
	obj.Modified, _ = it.ModTime().AsFileTime()
	if crc, err := it.CRC().AsUint32(); err == nil {
		obj.CRC = fmt.Sprintf("%08X", crc)
	}
	return obj
}

// ArchiveList describes every item, in archive order or, with sorted set,
// in natural path order.
func ArchiveList(r *archive.Reader, sorted bool) []model.ArchiveObj {
	objs := make([]model.ArchiveObj, 0, r.ItemsCount())
	for _, it := range r.All() {
		objs = append(objs, ToObj(it))
	}
	if sorted {
		sort.SliceStable(objs, func(i, j int) bool {
			return natural.Less(objs[i].Path, objs[j].Path)
		})
	}
	return objs
}

// ArchiveDir lists the direct children of dir inside r. Parent directories
// that have no item of their own are synthesised.
func ArchiveDir(r *archive.Reader, dir string) ([]model.ArchiveObj, error) {
	dir = utils.FixAndCleanPath(dir)
	seen := make(map[string]bool)
	var ret []model.ArchiveObj
	found := dir == "/"
	for _, obj := range ArchiveList(r, true) {
		p := utils.FixAndCleanPath(obj.Path)
		if p == dir {
			found = true
			if !obj.IsDir {
				return nil, errors.Errorf("%s is not a directory", dir)
			}
			continue
		}
		rel, ok := childOf(dir, p)
		if !ok {
			continue
		}
		found = true
		name, nested := firstSegment(rel)
		if seen[name] {
			continue
		}
		seen[name] = true
		if nested {
			ret = append(ret, model.ArchiveObj{Index: -1, Path: stdpath.Join(dir, name)[1:], Name: name, IsDir: true})
			continue
		}
		ret = append(ret, obj)
	}
	if !found {
		return nil, errors.Errorf("%s not found in archive", dir)
	}
	return ret, nil
}

func childOf(dir, p string) (string, bool) {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	if len(p) <= len(prefix) || !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return p[len(prefix):], true
}

func firstSegment(rel string) (string, bool) {
	first, _, nested := strings.Cut(rel, "/")
	return first, nested
}
