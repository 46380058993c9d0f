package archive

import (
	"strings"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
)

// UpdateMode decides how a writer treats an existing target.
type UpdateMode int

const (
	// UpdateNone only creates archives; an existing target is an error.
	UpdateNone UpdateMode = iota
	// UpdateAppend keeps the existing items and adds new ones.
	UpdateAppend
	// UpdateUpdate also replaces existing items added again under the same
	// path.
	UpdateUpdate
	// UpdateOverwrite ignores the existing target and replaces it.
	UpdateOverwrite
)

var updateModeNames = [...]string{"none", "append", "update", "overwrite"}

func (m UpdateMode) String() string {
	if m < 0 || int(m) >= len(updateModeNames) {
		return "unknown"
	}
	return updateModeNames[m]
}

// ParseUpdateMode resolves a mode name case-insensitively.
func ParseUpdateMode(name string) (UpdateMode, error) {
	for i, n := range updateModeNames {
		if strings.EqualFold(n, name) {
			return UpdateMode(i), nil
		}
	}
	return UpdateNone, errs.Newf(errs.KindUnsupportedOperation, "write", "unknown update mode %q", name)
}

// Settings are the compression parameters of a writer.
type Settings struct {
	Level          format.Level
	Method         format.Method
	DictionarySize uint32
	WordSize       uint32
	Solid          bool
	// VolumeSize splits the output in volumes of this many bytes when
	// positive.
	VolumeSize     int64
	Threads        int
	EncryptHeaders bool
	StoreSymlinks  bool

	levelSet bool
}

type WriterOption func(w *Writer)

func WithUpdateMode(mode UpdateMode) WriterOption {
	return func(w *Writer) {
		w.mode = mode
	}
}

func WithLevel(level format.Level) WriterOption {
	return func(w *Writer) {
		w.settings.Level = level
		w.settings.levelSet = true
	}
}

func WithMethod(method format.Method) WriterOption {
	return func(w *Writer) {
		w.settings.Method = method
	}
}

func WithDictionarySize(size uint32) WriterOption {
	return func(w *Writer) {
		w.settings.DictionarySize = size
	}
}

func WithWordSize(size uint32) WriterOption {
	return func(w *Writer) {
		w.settings.WordSize = size
	}
}

func WithSolid(solid bool) WriterOption {
	return func(w *Writer) {
		w.settings.Solid = solid
	}
}

func WithVolumeSize(size int64) WriterOption {
	return func(w *Writer) {
		w.settings.VolumeSize = size
	}
}

func WithEncryptHeaders(encrypt bool) WriterOption {
	return func(w *Writer) {
		w.settings.EncryptHeaders = encrypt
	}
}

func WithStoreSymlinks(store bool) WriterOption {
	return func(w *Writer) {
		w.settings.StoreSymlinks = store
	}
}

// WithSettings replaces every compression setting at once. A zero Level
// keeps the format default.
func WithSettings(s Settings) WriterOption {
	return func(w *Writer) {
		s.levelSet = s.Level != format.LevelNone
		w.settings = s
	}
}

// validate checks the settings against what the format supports.
func (s *Settings) validate(f *format.InOutFormat, password string, items uint32) error {
	unsupported := func(msg string, args ...any) error {
		return errs.Newf(errs.KindUnsupportedOperation, "commit", msg, args...)
	}
	if s.levelSet && !s.Level.Valid() {
		return unsupported("invalid compression level %d", s.Level)
	}
	if s.levelSet && s.Level != format.LevelNone && !f.Has(format.CompressionLevel) {
		return unsupported("%s has no compression levels", f.Name)
	}
	if s.Method != format.MethodDefault && !f.SupportsMethod(s.Method) {
		return unsupported("%s cannot use method %s", f.Name, s.Method)
	}
	if password != "" && !f.Has(format.Encryption) {
		return unsupported("%s does not support encryption", f.Name)
	}
	if s.EncryptHeaders {
		if !f.Has(format.HeaderEncryption) {
			return unsupported("%s does not support header encryption", f.Name)
		}
		if password == "" {
			return unsupported("header encryption needs a password")
		}
	}
	if s.Solid && !f.Has(format.SolidArchive) {
		return unsupported("%s does not support solid archives", f.Name)
	}
	if items > 1 && !f.Has(format.MultipleFiles) {
		return unsupported("%s holds a single item, got %d", f.Name, items)
	}
	if s.VolumeSize < 0 {
		return unsupported("negative volume size")
	}
	return nil
}

// level is the effective level: the format default unless set.
func (s *Settings) level(f *format.InOutFormat) format.Level {
	if s.levelSet {
		return s.Level
	}
	if f.Has(format.CompressionLevel) {
		return format.LevelNormal
	}
	return format.LevelNone
}

func (s *Settings) tool(f *format.InOutFormat, h *Handler) tool.Settings {
	method := ""
	if s.Method != format.MethodDefault {
		method = s.Method.String()
	}
	threads := s.Threads
	if threads == 0 {
		threads = h.threads
	}
	return tool.Settings{
		Level:          int(s.level(f)),
		Method:         method,
		DictionarySize: s.DictionarySize,
		WordSize:       s.WordSize,
		Solid:          s.Solid,
		Threads:        threads,
		Password:       h.password,
		EncryptHeaders: s.EncryptHeaders,
	}
}
