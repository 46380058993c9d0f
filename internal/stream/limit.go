package stream

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

var (
	// ArchiveReadLimit throttles bytes read from archives by the engine.
	ArchiveReadLimit *rate.Limiter
	// ArchiveWriteLimit throttles bytes written to archives and extracted files.
	ArchiveWriteLimit *rate.Limiter
	// ServerDownloadLimit throttles HTTP responses of the inspection server.
	ServerDownloadLimit *rate.Limiter
)

// wait blocks until n tokens are available, in bursts the limiter accepts.
func wait(ctx context.Context, limiter *rate.Limiter, n int) error {
	if limiter == nil || limiter.Limit() == rate.Inf {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	burst := limiter.Burst()
	if burst <= 0 {
		return nil
	}
	for n > 0 {
		chunk := min(n, burst)
		if err := limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

type RateLimitReader struct {
	io.Reader
	Limiter *rate.Limiter
	Ctx     context.Context
}

func (r RateLimitReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	if n > 0 {
		if werr := wait(r.Ctx, r.Limiter, n); werr != nil {
			return n, werr
		}
	}
	return
}

type RateLimitWriter struct {
	io.Writer
	Limiter *rate.Limiter
	Ctx     context.Context
}

func (w RateLimitWriter) Write(p []byte) (n int, err error) {
	n, err = w.Writer.Write(p)
	if err != nil {
		return
	}
	err = wait(w.Ctx, w.Limiter, n)
	return
}

// RateLimitReaderAt throttles random access reads, which is how codecs
// consume an archive.
type RateLimitReaderAt struct {
	io.ReaderAt
	Limiter *rate.Limiter
	Ctx     context.Context
}

func (r RateLimitReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	n, err = r.ReaderAt.ReadAt(p, off)
	if n > 0 {
		if werr := wait(r.Ctx, r.Limiter, n); werr != nil {
			return n, werr
		}
	}
	return
}

// LimitReaderAt wraps ra when limiter is set.
func LimitReaderAt(ctx context.Context, ra io.ReaderAt, limiter *rate.Limiter) io.ReaderAt {
	if limiter == nil {
		return ra
	}
	return RateLimitReaderAt{ReaderAt: ra, Limiter: limiter, Ctx: ctx}
}

// LimitWriter wraps w when limiter is set.
func LimitWriter(ctx context.Context, w io.Writer, limiter *rate.Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return RateLimitWriter{Writer: w, Limiter: limiter, Ctx: ctx}
}
