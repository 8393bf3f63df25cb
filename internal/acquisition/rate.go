package acquisition

import (
	"time"

	"go.uber.org/zap"
)

// rateLogger reports the datagram rate once per interval.
type rateLogger struct {
	log      *zap.Logger
	interval time.Duration
	count    int
	since    time.Time
}

func newRateLogger(log *zap.Logger, interval time.Duration) *rateLogger {
	return &rateLogger{log: log, interval: interval, since: time.Now()}
}

func (r *rateLogger) tick(now time.Time) {
	r.count++
	elapsed := now.Sub(r.since)
	if elapsed < r.interval {
		return
	}
	perSecond := float64(r.count) / elapsed.Seconds()
	r.log.Info("Sample rate", zap.Float64("samples_per_second", perSecond), zap.Int("samples", r.count))
	r.count = 0
	r.since = now
}
