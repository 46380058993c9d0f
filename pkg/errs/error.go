package errs

import (
	"fmt"
	"strings"
)

// Error is a typed error carrying the context needed to log or retry a
// failed archive operation.
type Error struct {
	Kind    Kind
	Op      string // operation, e.g. "open", "extract", "commit"
	Archive string // archive path or name, if known
	Item    string // item path inside the archive, if any
	Index   int    // item index, -1 when not item specific
	Status  int32  // underlying engine status, 0 when not engine related
	Msg     string
	Err     error // optional underlying cause
}

// New builds an Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Index: -1}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// WithArchive sets the archive context and returns e.
func (e *Error) WithArchive(path string) *Error {
	e.Archive = path
	return e
}

// WithItem sets the item context and returns e.
func (e *Error) WithItem(index int, path string) *Error {
	e.Index = index
	e.Item = path
	return e
}

// WithCause sets the underlying cause and returns e.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Archive != "" {
		b.WriteString(e.Archive)
		b.WriteString(": ")
	}
	if e.Item != "" {
		b.WriteString(e.Item)
		b.WriteString(": ")
	} else if e.Index >= 0 {
		fmt.Fprintf(&b, "item %d: ", e.Index)
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(" (")
		b.WriteString(e.Msg)
		b.WriteString(")")
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " [status %d]", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// ItemFailure records one item that could not be processed during a bulk
// operation.
type ItemFailure struct {
	Index int
	Path  string
	Err   error
}

// PartialFailure aggregates the per-item failures of a bulk extraction or
// test. It matches ExtractionPartialFailure, and errors.Is also sees through
// to every item error.
type PartialFailure struct {
	Op       string
	Archive  string
	Total    int
	Failures []ItemFailure
}

func (p *PartialFailure) Error() string {
	var b strings.Builder
	if p.Op != "" {
		b.WriteString(p.Op)
		b.WriteString(": ")
	}
	if p.Archive != "" {
		b.WriteString(p.Archive)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s: %d of %d items failed", KindExtractionPartialFailure, len(p.Failures), p.Total)
	for i, f := range p.Failures {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(p.Failures)-i)
			break
		}
		fmt.Fprintf(&b, "; %s: %v", f.Path, f.Err)
	}
	return b.String()
}

func (p *PartialFailure) Is(target error) bool {
	return target == ExtractionPartialFailure
}

func (p *PartialFailure) Unwrap() []error {
	ret := make([]error, 0, len(p.Failures))
	for _, f := range p.Failures {
		ret = append(ret, f.Err)
	}
	return ret
}
