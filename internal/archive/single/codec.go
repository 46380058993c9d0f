package single

import (
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mholt/archives"
)

// codec binds a stream format to its compressor. writer is nil for formats
// that can only be read.
type codec struct {
	name   string
	ext    string
	reader archives.Decompressor
	writer func(s tool.Settings) archives.Compressor
}

var codecs = map[string]*codec{
	"gzip": {
		name:   "GZip",
		ext:    ".gz",
		reader: archives.Gz{},
		writer: func(s tool.Settings) archives.Compressor {
			level := s.Level
			if level == 0 {
				level = gzip.HuffmanOnly
			}
			return archives.Gz{CompressionLevel: level, Multithreaded: s.Threads > 1}
		},
	},
	"bzip2": {
		name:   "BZip2",
		ext:    ".bz2",
		reader: archives.Bz2{},
		writer: func(s tool.Settings) archives.Compressor {
			return archives.Bz2{CompressionLevel: max(s.Level, 1)}
		},
	},
	"xz": {
		name:   "Xz",
		ext:    ".xz",
		reader: archives.Xz{},
		writer: func(tool.Settings) archives.Compressor {
			return archives.Xz{}
		},
	},
	"zstd": {
		name:   "Zstd",
		ext:    ".zst",
		reader: archives.Zstd{},
		writer: func(s tool.Settings) archives.Compressor {
			opts := []zstd.EOption{zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(zstdLevel(s.Level)))}
			if s.Threads > 0 {
				opts = append(opts, zstd.WithEncoderConcurrency(s.Threads))
			}
			return archives.Zstd{EncoderOptions: opts}
		},
	},
	"lz4": {
		name:   "Lz4",
		ext:    ".lz4",
		reader: archives.Lz4{},
		writer: func(s tool.Settings) archives.Compressor {
			return archives.Lz4{CompressionLevel: lz4Level(s.Level)}
		},
	},
	"split": {
		name: "Split",
		ext:  ".001",
	},
}

// zstdLevel spreads the 0-9 scale over zstd's 1-22.
func zstdLevel(level int) int {
	if level <= 0 {
		return 1
	}
	return min(level*2+1, 22)
}

// lz4Level maps 1-9 onto the values the lz4 encoder accepts; 0 is its
// fast mode.
func lz4Level(level int) int {
	if level <= 0 {
		return 0
	}
	return 1 << (8 + min(level, 9))
}

func lookup(format string) (*codec, bool) {
	c, ok := codecs[strings.ToLower(format)]
	return c, ok
}

// itemName derives the name of the only item from the archive name:
// data.txt.gz holds data.txt.
func itemName(archive, ext string) string {
	base := archive
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if strings.HasSuffix(strings.ToLower(base), ext) {
		base = base[:len(base)-len(ext)]
	}
	if lower := strings.ToLower(base); strings.HasSuffix(lower, ".tgz") || strings.HasSuffix(lower, ".tbz2") {
		base = base[:strings.LastIndexByte(base, '.')] + ".tar"
	}
	if base == "" {
		base = "data"
	}
	return base
}
