package bootstrap

import (
	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/internal/stream"
	"golang.org/x/time/rate"
)

func filterNegative(limit int) (rate.Limit, int) {
	if limit < 0 {
		return rate.Inf, 0
	}
	return rate.Limit(limit), limit
}

func initLimiter(limiter **rate.Limiter, limit int) {
	l, burst := filterNegative(limit)
	if *limiter == nil {
		*limiter = rate.NewLimiter(l, burst)
		return
	}
	(*limiter).SetLimit(l)
	(*limiter).SetBurst(burst)
}

// InitStreamLimit applies the configured byte rates. Calling it again after
// the config changed updates the live limiters.
func InitStreamLimit() {
	limits := conf.Conf.Limit
	initLimiter(&stream.ArchiveReadLimit, limits.ArchiveRead)
	initLimiter(&stream.ArchiveWriteLimit, limits.ArchiveWrite)
	initLimiter(&stream.ServerDownloadLimit, limits.ServerDownload)
}
