package sevenzip

import (
	"encoding/binary"
	"errors"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/bodgit/sevenzip"
)

const (
	// unixExtension marks attributes whose high word holds POSIX mode bits.
	unixExtension = 0x8000
	// startHeaderSize is the signature header that locates the next header.
	startHeaderSize = 32
)

func toEntry(file *sevenzip.File, encrypted bool) tool.Entry {
	info := file.FileInfo()
	e := tool.Entry{
		Path:      strings.TrimSuffix(file.Name, "/"),
		IsDir:     info.IsDir(),
		Size:      file.UncompressedSize,
		Attrib:    file.Attributes & 0xFFFF,
		CTime:     file.Created,
		ATime:     file.Accessed,
		MTime:     file.Modified,
		CRC:       file.CRC32,
		HasCRC:    !info.IsDir() && file.CRC32 != 0,
		Encrypted: encrypted && !info.IsDir(),
	}
	if file.Attributes&unixExtension != 0 {
		e.PosixAttrib = file.Attributes >> 16
	}
	return e
}

func filterPassword(err error) tool.Status {
	if err != nil {
		var e *sevenzip.ReadError
		if errors.As(err, &e) && e.Encrypted {
			return tool.StatusWrongPassword
		}
	}
	return tool.Classify(err)
}

// isSolid reports whether any compressed stream holds more than one file.
func isSolid(files []*sevenzip.File) bool {
	seen := make(map[int]int)
	for _, f := range files {
		if f.UncompressedSize == 0 {
			continue
		}
		seen[f.Stream]++
		if seen[f.Stream] > 1 {
			return true
		}
	}
	return false
}

var errChecksum = errors.New("sevenzip: checksum error")

// checkedReader verifies the stored CRC once the item is fully read.
type checkedReader struct {
	rc   io.ReadCloser
	hash hash.Hash32
	want uint32
	size uint64
	read uint64
}

func newCheckedReader(rc io.ReadCloser, file *sevenzip.File) io.ReadCloser {
	if file.CRC32 == 0 {
		return &checkedReader{rc: rc}
	}
	return &checkedReader{rc: rc, hash: crc32.NewIEEE(), want: file.CRC32, size: file.UncompressedSize}
}

func (r *checkedReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if r.hash != nil {
		r.hash.Write(p[:n])
		r.read += uint64(n)
	}
	if err == io.EOF && r.hash != nil && r.read == r.size && r.hash.Sum32() != r.want {
		return n, tool.Error("read", tool.StatusCRCError, errChecksum)
	}
	if err != nil && err != io.EOF {
		if st := filterPassword(err); st == tool.StatusWrongPassword {
			return n, tool.Error("read", st, err)
		}
	}
	return n, err
}

func (r *checkedReader) Close() error {
	return r.rc.Close()
}

// truncated reports whether the header could not be read because the data
// ends early: the read hit EOF or the start header points past size.
func truncated(r io.ReaderAt, size int64, err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var start [startHeaderSize]byte
	if _, err := r.ReadAt(start[:], 0); err != nil {
		return false
	}
	offset := binary.LittleEndian.Uint64(start[12:20])
	length := binary.LittleEndian.Uint64(start[20:28])
	end := uint64(startHeaderSize) + offset + length
	return end < offset || end > uint64(size)
}
