package errs

import (
	"errors"
)

// Kind classifies errors so callers can branch on intent rather than text.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedFormat
	KindInvalidArchiveHeader
	KindWrongPassword
	KindMultiVolumeIncomplete
	KindInvalidVariantType
	KindInvalidIndex
	KindDuplicateItemPath
	KindIsDirectory
	KindUnsafeArchivePath
	KindUnsupportedOperation
	KindOperationCancelled
	KindExtractionPartialFailure
	KindEngineFailure
)

var kindNames = [...]string{
	KindUnknown:                  "unknown",
	KindUnsupportedFormat:        "unsupported format",
	KindInvalidArchiveHeader:     "invalid archive header",
	KindWrongPassword:            "wrong password",
	KindMultiVolumeIncomplete:    "multi-volume archive incomplete",
	KindInvalidVariantType:       "invalid variant type",
	KindInvalidIndex:             "invalid index",
	KindDuplicateItemPath:        "duplicate item path",
	KindIsDirectory:              "item is a directory",
	KindUnsafeArchivePath:        "unsafe archive path",
	KindUnsupportedOperation:     "unsupported operation",
	KindOperationCancelled:       "operation cancelled",
	KindExtractionPartialFailure: "extraction partially failed",
	KindEngineFailure:            "engine failure",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Sentinel returns the sentinel error of the kind.
func (k Kind) Sentinel() error {
	if s, ok := sentinels[k]; ok {
		return s
	}
	return Unknown
}

type kindError struct {
	kind Kind
}

func (e *kindError) Error() string {
	return e.kind.String()
}

var (
	Unknown                  error = &kindError{KindUnknown}
	UnsupportedFormat        error = &kindError{KindUnsupportedFormat}
	InvalidArchiveHeader     error = &kindError{KindInvalidArchiveHeader}
	WrongPassword            error = &kindError{KindWrongPassword}
	MultiVolumeIncomplete    error = &kindError{KindMultiVolumeIncomplete}
	InvalidVariantType       error = &kindError{KindInvalidVariantType}
	InvalidIndex             error = &kindError{KindInvalidIndex}
	DuplicateItemPath        error = &kindError{KindDuplicateItemPath}
	IsDirectory              error = &kindError{KindIsDirectory}
	UnsafeArchivePath        error = &kindError{KindUnsafeArchivePath}
	UnsupportedOperation     error = &kindError{KindUnsupportedOperation}
	OperationCancelled       error = &kindError{KindOperationCancelled}
	ExtractionPartialFailure error = &kindError{KindExtractionPartialFailure}
	EngineFailure            error = &kindError{KindEngineFailure}

	// PathNotFound is reported (wrapped under InvalidIndex) when a path-addressed
	// operation names an item the archive does not contain.
	PathNotFound = errors.New("path not found in archive")
)

var sentinels = map[Kind]error{
	KindUnknown:                  Unknown,
	KindUnsupportedFormat:        UnsupportedFormat,
	KindInvalidArchiveHeader:     InvalidArchiveHeader,
	KindWrongPassword:            WrongPassword,
	KindMultiVolumeIncomplete:    MultiVolumeIncomplete,
	KindInvalidVariantType:       InvalidVariantType,
	KindInvalidIndex:             InvalidIndex,
	KindDuplicateItemPath:        DuplicateItemPath,
	KindIsDirectory:              IsDirectory,
	KindUnsafeArchivePath:        UnsafeArchivePath,
	KindUnsupportedOperation:     UnsupportedOperation,
	KindOperationCancelled:       OperationCancelled,
	KindExtractionPartialFailure: ExtractionPartialFailure,
	KindEngineFailure:            EngineFailure,
}

// KindOf reports the kind of err, looking through single-error wrapping. A
// PartialFailure reports its own kind rather than that of an item.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case *PartialFailure:
			return KindExtractionPartialFailure
		case *kindError:
			return e.kind
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}
