package zip

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/pkg/errors"
	"github.com/saintfish/chardet"
	log "github.com/sirupsen/logrus"
	"github.com/yeka/zip"
	"golang.org/x/text/encoding/htmlindex"
)

const flagUTF8 = 0x800

var hostOS = map[uint16]string{
	0:  "FAT",
	3:  "Unix",
	7:  "Macintosh",
	10: "NTFS",
	19: "OS X",
}

var methodNames = map[uint16]string{
	zip.Store:   "Copy",
	zip.Deflate: "Deflate",
	9:           "Deflate64",
	12:          "BZip2",
	14:          "LZMA",
	93:          "Zstd",
	98:          "PPMd",
	99:          "AES",
}

// charset names chardet reports that the WHATWG index spells differently
var charsetAliases = map[string]string{
	"GB-18030":    "gb18030",
	"ISO-2022-JP": "iso-2022-jp",
}

// decodeNames converts names stored in a legacy code page to UTF-8. The
// charset is detected once over all of them.
func decodeNames(files []*zip.File) []string {
	names := make([]string, len(files))
	var sample []byte
	for i, f := range files {
		names[i] = f.Name
		if f.Flags&flagUTF8 == 0 && !utf8.ValidString(f.Name) {
			sample = append(sample, f.Name...)
			sample = append(sample, '\n')
		}
	}
	if len(sample) == 0 {
		return names
	}
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		log.Debugf("failed to detect zip name charset: %+v", err)
		return names
	}
	charset := res.Charset
	if alias, ok := charsetAliases[charset]; ok {
		charset = alias
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		log.Debugf("unknown zip name charset %s", res.Charset)
		return names
	}
	dec := enc.NewDecoder()
	for i, f := range files {
		if f.Flags&flagUTF8 != 0 || utf8.ValidString(f.Name) {
			continue
		}
		if s, err := dec.String(f.Name); err == nil {
			names[i] = s
		}
	}
	return names
}

func toEntry(f *zip.File, name string) tool.Entry {
	isDir := strings.HasSuffix(name, "/")
	e := tool.Entry{
		Path:      strings.TrimSuffix(name, "/"),
		IsDir:     isDir,
		Size:      f.UncompressedSize64,
		PackSize:  f.CompressedSize64,
		MTime:     f.ModTime(),
		CRC:       f.CRC32,
		HasCRC:    !isDir && !(f.IsEncrypted() && f.CRC32 == 0),
		Encrypted: f.IsEncrypted(),
		Method:    methodNames[f.Method],
		Comment:   f.Comment,
	}
	creator := f.CreatorVersion >> 8
	e.HostOS = hostOS[creator]
	switch creator {
	case 3, 19:
		e.PosixAttrib = f.ExternalAttrs >> 16
	default:
		e.Attrib = f.ExternalAttrs & 0xFFFF
	}
	return e
}

func filterPassword(err error) tool.Status {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password") || strings.Contains(msg, "authentication") {
		return tool.StatusWrongPassword
	}
	return tool.Classify(err)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func createEntry(zw *zip.Writer, it tool.UpdateItem, s tool.Settings) (io.Writer, error) {
	name := strings.TrimSuffix(it.Path, "/")
	if it.IsDir {
		name += "/"
	}
	fh := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if it.IsDir || s.Level == 0 || strings.EqualFold(s.Method, "Copy") {
		fh.Method = zip.Store
	}
	if !isASCII(name) {
		fh.Flags |= flagUTF8
	}
	if !it.ModTime.IsZero() {
		fh.SetModTime(it.ModTime)
	}
	mode := it.Mode
	if it.IsDir {
		mode |= os.ModeDir
		if mode.Perm() == 0 {
			mode |= 0o755
		}
	} else if mode.Perm() == 0 {
		mode |= 0o644
	}
	fh.SetMode(mode)
	if s.Password != "" && !it.IsDir {
		fh.SetPassword(s.Password)
		fh.SetEncryptionMethod(zip.AES256Encryption)
	}
	return zw.CreateHeader(fh)
}

// writeItem copies the content of one item, reporting the running total.
func writeItem(w io.Writer, it tool.UpdateItem, done uint64, cb tool.UpdateCallback) (int64, error) {
	if it.IsDir || it.Open == nil {
		return 0, nil
	}
	rc, err := it.Open()
	if err != nil {
		return 0, errors.WithMessagef(err, "failed to open %s", it.Path)
	}
	defer rc.Close()
	pw := &stream.ProgressWriter{W: w, Step: 1 << 20}
	if cb != nil {
		pw.Report = func(n int64) bool {
			return cb.SetCompleted(done + uint64(n)).OK()
		}
	}
	_, err = io.Copy(pw, rc)
	return pw.Written(), err
}
