package tool

import (
	"context"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/alist-org/arkit/pkg/errs"
	"github.com/pkg/errors"
)

// Status is the signed result code every engine entry point returns.
// Zero is success; failures are negative.
type Status int32

const (
	StatusOK            Status = 0
	StatusFail          Status = -1
	StatusUnsupported   Status = -2
	StatusBadHeader     Status = -3
	StatusWrongPassword Status = -4
	StatusMissingVolume Status = -5
	StatusDataError     Status = -6
	StatusCRCError      Status = -7
	StatusCancelled     Status = -8
	StatusReleased      Status = -9
	StatusUnavailable   Status = -10
)

var statusNames = map[Status]string{
	StatusOK:            "ok",
	StatusFail:          "failure",
	StatusUnsupported:   "unsupported",
	StatusBadHeader:     "bad header",
	StatusWrongPassword: "wrong password",
	StatusMissingVolume: "missing volume",
	StatusDataError:     "data error",
	StatusCRCError:      "crc error",
	StatusCancelled:     "cancelled",
	StatusReleased:      "engine released",
	StatusUnavailable:   "engine unavailable",
}

func (s Status) OK() bool {
	return s == StatusOK
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "status " + strconv.Itoa(int(s))
}

// Kind maps the status onto the error taxonomy.
func (s Status) Kind() errs.Kind {
	switch s {
	case StatusUnsupported:
		return errs.KindUnsupportedOperation
	case StatusBadHeader:
		return errs.KindInvalidArchiveHeader
	case StatusWrongPassword:
		return errs.KindWrongPassword
	case StatusMissingVolume:
		return errs.KindMultiVolumeIncomplete
	case StatusCancelled:
		return errs.KindOperationCancelled
	default:
		return errs.KindEngineFailure
	}
}

// Error converts a failed status into a typed error carrying the code.
func Error(op string, s Status, cause error) *errs.Error {
	e := errs.New(s.Kind(), op, s.String()).WithCause(cause)
	e.Status = int32(s)
	return e
}

// Classify derives a status from an error returned by a codec library.
func Classify(err error) Status {
	if err == nil {
		return StatusOK
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, errs.OperationCancelled):
		return StatusCancelled
	case errors.Is(err, errs.WrongPassword):
		return StatusWrongPassword
	case errors.Is(err, errs.InvalidArchiveHeader):
		return StatusBadHeader
	case errors.Is(err, errs.MultiVolumeIncomplete), errors.Is(err, fs.ErrNotExist):
		return StatusMissingVolume
	case errors.Is(err, io.ErrUnexpectedEOF):
		return StatusDataError
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password"):
		return StatusWrongPassword
	case strings.Contains(msg, "checksum"), strings.Contains(msg, "crc"):
		return StatusCRCError
	case strings.Contains(msg, "not a valid"), strings.Contains(msg, "invalid header"), strings.Contains(msg, "bad header"):
		return StatusBadHeader
	case strings.Contains(msg, "corrupt"), strings.Contains(msg, "invalid"):
		return StatusDataError
	}
	return StatusFail
}
