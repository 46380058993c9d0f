package format

import (
	"strings"

	"github.com/alist-org/arkit/pkg/errs"
)

// Method is a compression method identifier.
type Method uint8

const (
	MethodDefault Method = iota
	MethodCopy
	MethodDeflate
	MethodDeflate64
	MethodBZip2
	MethodLzma
	MethodLzma2
	MethodPpmd
	MethodZstd
	MethodLz4
)

var methodNames = [...]string{
	MethodDefault:   "Default",
	MethodCopy:      "Copy",
	MethodDeflate:   "Deflate",
	MethodDeflate64: "Deflate64",
	MethodBZip2:     "BZip2",
	MethodLzma:      "LZMA",
	MethodLzma2:     "LZMA2",
	MethodPpmd:      "PPMd",
	MethodZstd:      "Zstd",
	MethodLz4:       "LZ4",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "Unknown"
}

// ParseMethod resolves a method name case-insensitively.
func ParseMethod(name string) (Method, error) {
	for i, n := range methodNames {
		if strings.EqualFold(n, name) {
			return Method(i), nil
		}
	}
	return MethodDefault, errs.Newf(errs.KindUnsupportedOperation, "method", "unknown compression method %q", name)
}

// Level is the six point compression level scale.
type Level uint8

const (
	LevelNone    Level = 0
	LevelFastest Level = 1
	LevelFast    Level = 3
	LevelNormal  Level = 5
	LevelMax     Level = 7
	LevelUltra   Level = 9
)

var levels = []struct {
	l    Level
	name string
}{
	{LevelNone, "None"},
	{LevelFastest, "Fastest"},
	{LevelFast, "Fast"},
	{LevelNormal, "Normal"},
	{LevelMax, "Max"},
	{LevelUltra, "Ultra"},
}

func (l Level) String() string {
	for _, x := range levels {
		if x.l == l {
			return x.name
		}
	}
	return "Unknown"
}

// Valid reports whether l is one of the six defined points.
func (l Level) Valid() bool {
	return l.String() != "Unknown"
}

// ParseLevel resolves a level name case-insensitively.
func ParseLevel(name string) (Level, error) {
	for _, x := range levels {
		if strings.EqualFold(x.name, name) {
			return x.l, nil
		}
	}
	return LevelNormal, errs.Newf(errs.KindUnsupportedOperation, "level", "unknown compression level %q", name)
}
