package middlewares

import (
	"io"

	"github.com/alist-org/arkit/internal/stream"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// MaxAllowed bounds the number of requests served at once.
func MaxAllowed(n int) gin.HandlerFunc {
	sem := make(chan struct{}, n)
	acquire := func() { sem <- struct{}{} }
	release := func() { <-sem }
	return func(c *gin.Context) {
		acquire()
		defer release()
		c.Next()
	}
}

type ResponseWriterWrapper struct {
	gin.ResponseWriter
	WrapWriter io.Writer
}

func (w *ResponseWriterWrapper) Write(p []byte) (n int, err error) {
	return w.WrapWriter.Write(p)
}

// DownloadRateLimiter throttles the response body. limiter is read per
// request so a limiter installed after startup takes effect.
func DownloadRateLimiter(limiter **rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l := *limiter; l != nil {
			c.Writer = &ResponseWriterWrapper{
				ResponseWriter: c.Writer,
				WrapWriter:     stream.LimitWriter(c, c.Writer, l),
			}
		}
		c.Next()
	}
}
