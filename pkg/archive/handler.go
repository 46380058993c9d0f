package archive

import (
	"context"
	"strings"

	"github.com/alist-org/arkit/internal/fs"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
	"golang.org/x/time/rate"
)

// Overwrite is the policy for extracted files that already exist.
type Overwrite = fs.Overwrite

const (
	OverwriteAll  = fs.OverwriteAll
	OverwriteSkip = fs.OverwriteSkip
	OverwriteFail = fs.OverwriteFail
)

type (
	// TotalFunc receives the number of bytes an operation will process.
	TotalFunc func(total uint64)
	// ProgressFunc receives the bytes processed so far. Returning false
	// cancels the operation.
	ProgressFunc func(done uint64) bool
	// RatioFunc receives the bytes read and written by a compression.
	// Returning false cancels the operation.
	RatioFunc func(in, out uint64) bool
	// FileNameFunc is called before each item.
	FileNameFunc func(name string)
	// PasswordRequestFunc is asked for a password when an encrypted archive
	// was opened without one. ok false leaves the archive locked.
	PasswordRequestFunc func() (password string, ok bool)
)

// Handler holds the settings and callbacks shared by the operations of a
// session. It is immutable once built.
type Handler struct {
	format          *format.InFormat
	password        string
	total           TotalFunc
	progress        ProgressFunc
	ratio           RatioFunc
	fileName        FileNameFunc
	passwordRequest PasswordRequestFunc
	threads         int
	retainDirs      bool
	overwrite       Overwrite
	failFast        bool
	limiter         *rate.Limiter
}

type Option func(h *Handler)

// NewHandler builds a handler detecting the format and retaining directory
// structure on extraction.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{format: format.Auto, retainDirs: true}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// With returns a copy of h with opts applied.
func (h *Handler) With(opts ...Option) *Handler {
	c := *h
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func WithFormat(f *format.InFormat) Option {
	return func(h *Handler) {
		if f == nil {
			f = format.Auto
		}
		h.format = f
	}
}

func WithPassword(password string) Option {
	return func(h *Handler) {
		h.password = password
	}
}

func WithTotal(fn TotalFunc) Option {
	return func(h *Handler) {
		h.total = fn
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(h *Handler) {
		h.progress = fn
	}
}

func WithRatio(fn RatioFunc) Option {
	return func(h *Handler) {
		h.ratio = fn
	}
}

func WithFileName(fn FileNameFunc) Option {
	return func(h *Handler) {
		h.fileName = fn
	}
}

func WithPasswordRequest(fn PasswordRequestFunc) Option {
	return func(h *Handler) {
		h.passwordRequest = fn
	}
}

// WithThreads hints how many threads codecs may use; 0 lets them decide.
func WithThreads(n int) Option {
	return func(h *Handler) {
		h.threads = max(n, 0)
	}
}

// WithRetainDirectories controls whether extraction recreates the
// directory structure of the archive and whether added directories keep
// their layout. When false every file lands directly in the destination.
func WithRetainDirectories(retain bool) Option {
	return func(h *Handler) {
		h.retainDirs = retain
	}
}

func WithOverwrite(policy Overwrite) Option {
	return func(h *Handler) {
		h.overwrite = policy
	}
}

// WithFailFast stops bulk extraction at the first failed item instead of
// collecting failures.
func WithFailFast(failFast bool) Option {
	return func(h *Handler) {
		h.failFast = failFast
	}
}

// WithRateLimit throttles the bytes the engine reads from archives.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

func (h *Handler) Format() *format.InFormat { return h.format }

func (h *Handler) Password() string { return h.password }

func (h *Handler) IsPasswordDefined() bool { return h.password != "" }

func (h *Handler) Threads() int { return h.threads }

func (h *Handler) RetainDirectories() bool { return h.retainDirs }

func (h *Handler) OverwritePolicy() Overwrite { return h.overwrite }

func (h *Handler) FailFast() bool { return h.failFast }

// tracker routes engine progress to the handler callbacks and remembers
// whether the operation was aborted.
type tracker struct {
	h       *Handler
	ctx     context.Context
	total   uint64
	done    uint64
	aborted bool
}

func newTracker(ctx context.Context, h *Handler) *tracker {
	return &tracker{h: h, ctx: ctx}
}

func (t *tracker) setTotal(n uint64) {
	t.total = n
	if t.h.total != nil {
		t.h.total(n)
	}
}

func (t *tracker) fileName(name string) {
	if t.h.fileName != nil {
		t.h.fileName(name)
	}
}

// progress reports done bytes and returns false once the operation must
// stop.
func (t *tracker) progress(done uint64) bool {
	t.done = done
	if t.h.progress != nil && !t.aborted && !t.h.progress(done) {
		t.aborted = true
	}
	return !t.cancelled()
}

func (t *tracker) ratio(in, out uint64) bool {
	if t.h.ratio != nil && !t.aborted && !t.h.ratio(in, out) {
		t.aborted = true
	}
	return !t.cancelled()
}

func (t *tracker) cancelled() bool {
	if !t.aborted && t.ctx.Err() != nil {
		t.aborted = true
	}
	return t.aborted
}

// ParseOverwrite resolves a policy name: "overwrite", "skip" or "fail".
func ParseOverwrite(name string) (Overwrite, error) {
	switch strings.ToLower(name) {
	case "", "overwrite", "all":
		return OverwriteAll, nil
	case "skip":
		return OverwriteSkip, nil
	case "fail":
		return OverwriteFail, nil
	}
	return OverwriteAll, errs.Newf(errs.KindUnsupportedOperation, "overwrite", "unknown overwrite policy %q", name)
}
