package tool

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alist-org/arkit/pkg/errs"
)

// maxVolumes bounds volume enumeration.
const maxVolumes = 9999

var (
	laterOrdinal = regexp.MustCompile(`(?i)^(.*)\.(\d{3})$`)
	laterPart    = regexp.MustCompile(`(?i)^(.*)\.part(\d+)\.rar$`)
	zipSpan      = regexp.MustCompile(`(?i)^(.*)\.z(\d{2})$`)
	rarOld       = regexp.MustCompile(`(?i)^(.*)\.r(\d{2})$`)
)

// ResolveVolumes lists the files making up the archive at path, in order.
// A path that does not follow a volume naming convention resolves to
// itself. Naming a later volume whose first volume is missing fails with
// errs.MultiVolumeIncomplete, as does a zip span without its final .zip.
func ResolveVolumes(path string, exists func(string) bool) ([]string, error) {
	if base, pattern, ok := GetMultipartPattern(path); ok {
		if ret := collect(base, pattern, exists); len(ret) > 0 {
			return ret, nil
		}
		return []string{path}, nil
	}
	if m := laterOrdinal.FindStringSubmatch(path); m != nil {
		return resolveLater(path, m[1], m[2], "."+digitsPattern(m[2]), exists)
	}
	if m := laterPart.FindStringSubmatch(path); m != nil {
		return resolveLater(path, m[1], m[2], ".part"+digitsPattern(m[2])+".rar", exists)
	}
	if m := zipSpan.FindStringSubmatch(path); m != nil {
		return resolveZip(m[1], path[len(m[1]):len(m[1])+2], exists)
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".zip") {
		base := path[:len(path)-4]
		if exists(base + ".z01") {
			return resolveZip(base, path[len(base):len(base)+2], exists)
		}
	}
	if strings.HasSuffix(lower, ".rar") {
		base := path[:len(path)-4]
		ret := []string{path}
		for i := 0; i < 100; i++ {
			next := fmt.Sprintf("%s.r%02d", base, i)
			if !exists(next) {
				break
			}
			ret = append(ret, next)
		}
		return ret, nil
	}
	if m := rarOld.FindStringSubmatch(path); m != nil {
		first := m[1] + ".rar"
		if !exists(first) {
			return nil, missingVolume(path, first)
		}
		return ResolveVolumes(first, exists)
	}
	return []string{path}, nil
}

// IsVolumeName reports whether path follows one of the volume naming
// conventions.
func IsVolumeName(path string) bool {
	if _, _, ok := GetMultipartPattern(path); ok {
		return true
	}
	return laterOrdinal.MatchString(path) || laterPart.MatchString(path) ||
		zipSpan.MatchString(path) || rarOld.MatchString(path)
}

func digitsPattern(digits string) string {
	return "%." + strconv.Itoa(len(digits)) + "d"
}

func collect(base, pattern string, exists func(string) bool) []string {
	var ret []string
	for i := 1; i <= maxVolumes; i++ {
		name := base + fmt.Sprintf(pattern, i)
		if !exists(name) {
			break
		}
		ret = append(ret, name)
	}
	return ret
}

func resolveLater(path, base, digits, pattern string, exists func(string) bool) ([]string, error) {
	n, _ := strconv.Atoi(digits)
	if n <= 1 {
		if ret := collect(base, pattern, exists); len(ret) > 0 {
			return ret, nil
		}
		return []string{path}, nil
	}
	first := base + fmt.Sprintf(pattern, 1)
	if !exists(first) {
		return nil, missingVolume(path, first)
	}
	return collect(base, pattern, exists), nil
}

// zip spans are name.z01, name.z02, ... followed by name.zip
func resolveZip(base, dotZ string, exists func(string) bool) ([]string, error) {
	var ret []string
	for i := 1; i < 100; i++ {
		name := fmt.Sprintf("%s%s%02d", base, dotZ, i)
		if !exists(name) {
			break
		}
		ret = append(ret, name)
	}
	last := base + ".zip"
	if !exists(last) {
		return nil, missingVolume(base+dotZ+"01", last)
	}
	return append(ret, last), nil
}

func missingVolume(path, missing string) error {
	return errs.Newf(errs.KindMultiVolumeIncomplete, "open", "volume %s not found", missing).WithArchive(path)
}
