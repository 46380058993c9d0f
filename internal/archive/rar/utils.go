package rar

import (
	"io"
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/nwaples/rardecode/v2"
)

var hostOS = []string{"MS-DOS", "OS/2", "Windows", "Unix", "Mac OS", "BeOS"}

func toEntry(hdr *rardecode.FileHeader) tool.Entry {
	e := tool.Entry{
		Path:  strings.TrimSuffix(strings.ReplaceAll(hdr.Name, "\\", "/"), "/"),
		IsDir: hdr.IsDir,
		MTime: hdr.ModificationTime,
		CTime: hdr.CreationTime,
		ATime: hdr.AccessTime,
	}
	if hdr.UnPackedSize > 0 {
		e.Size = uint64(hdr.UnPackedSize)
	}
	if hdr.PackedSize > 0 {
		e.PackSize = uint64(hdr.PackedSize)
	}
	if int(hdr.HostOS) < len(hostOS) {
		e.HostOS = hostOS[hdr.HostOS]
	}
	if e.HostOS == "Unix" {
		e.PosixAttrib = uint32(hdr.Attributes)
	} else {
		e.Attrib = uint32(hdr.Attributes)
	}
	return e
}

func filterError(err error) tool.Status {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"), strings.Contains(msg, "encrypted"):
		return tool.StatusWrongPassword
	case strings.Contains(msg, "volume"):
		return tool.StatusMissingVolume
	case strings.Contains(msg, "signature not found"):
		return tool.StatusBadHeader
	}
	return tool.Classify(err)
}

type item struct {
	io.Reader
	io.Closer
}
