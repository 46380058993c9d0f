package format

import (
	"bytes"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alist-org/arkit/pkg/errs"
)

// HeadSize is how many leading bytes Detect reads for signature matching.
// It covers the deepest fixed-offset signature (the ISO volume descriptor).
const HeadSize = 0x8001 + 5

const (
	isoDescriptorSize = 0x800
	isoMaxDescriptors = 16
)

var (
	rarVolumeExt = regexp.MustCompile(`^\.r\d{2}$`)
	zipVolumeExt = regexp.MustCompile(`^\.z\d{2}$`)
	ordinalExt   = regexp.MustCompile(`^\.\d{3}$`)
)

// Detect resolves the format of an archive. An explicit non-Auto format is
// returned as is. Otherwise the leading bytes read from head are matched
// against the known signatures, then the extension of name is consulted.
// head may be nil when only the name is known.
func Detect(explicit *InFormat, name string, head io.ReaderAt) (*InFormat, error) {
	if !explicit.IsAuto() {
		return explicit, nil
	}
	if head != nil {
		buf := make([]byte, HeadSize)
		n, err := head.ReadAt(buf, 0)
		if err != nil && err != io.EOF {
			return nil, errs.New(errs.KindInvalidArchiveHeader, "detect", "reading signature").
				WithArchive(name).WithCause(err)
		}
		if f, ok := DetectBytes(buf[:n]); ok {
			return f, nil
		}
	}
	if f, ok := DetectExtension(name); ok {
		return f, nil
	}
	return nil, errs.New(errs.KindUnsupportedFormat, "detect", "no matching signature or extension").WithArchive(name)
}

// DetectBytes matches b against every known signature, preferring the longest
// magic and, between equally long ones, the lowest offset.
func DetectBytes(b []byte) (*InFormat, bool) {
	for _, e := range bySig {
		if e.sig.end() > int64(len(b)) {
			continue
		}
		if !bytes.Equal(b[e.sig.Offset:e.sig.end()], e.sig.Magic) {
			continue
		}
		if e.format == Iso && isUdf(b) {
			return Udf, true
		}
		return e.format, true
	}
	return nil, false
}

// an ISO 9660 image whose volume descriptor sequence carries an NSR
// descriptor is UDF
func isUdf(b []byte) bool {
	for i := 1; i <= isoMaxDescriptors; i++ {
		off := 0x8001 + i*isoDescriptorSize
		if off+4 > len(b) {
			return false
		}
		if bytes.Equal(b[off:off+4], []byte("NSR0")) {
			return true
		}
	}
	return false
}

// DetectExtension looks the format up by file name. Volume suffixes are
// understood: name.rNN is Rar, name.zNN is Zip and name.<fmt>.001 is the
// inner format, or Split when the inner suffix is unknown.
func DetectExtension(name string) (*InFormat, bool) {
	base := strings.ToLower(filepath.Base(name))
	ext := filepath.Ext(base)
	if ext == "" {
		return nil, false
	}
	switch {
	case rarVolumeExt.MatchString(ext):
		return Rar, true
	case zipVolumeExt.MatchString(ext):
		return Zip.In(), true
	case ordinalExt.MatchString(ext):
		if f, ok := byExt[filepath.Ext(strings.TrimSuffix(base, ext))]; ok {
			return f, true
		}
		return Split, true
	}
	f, ok := byExt[ext]
	return f, ok
}

// ByExtension looks the format up by extension, with or without the leading
// dot. Multi-suffix extensions such as ".tar.gz" resolve to the outer format.
func ByExtension(ext string) (*InFormat, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return DetectExtension("x" + ext)
}
