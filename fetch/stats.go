package fetch

import (
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// Stats accumulates network-level counters across every Ensure call a
// Fetcher has served, for the run's Report.
type Stats struct {
	Attempts int
	Retries  int
	BytesIn  int64
}

// Stats returns the counters accumulated since this Fetcher was
// constructed. Safe to call while Ensure calls are still in flight.
func (f *Fetcher) Stats() Stats {
	return Stats{
		Attempts: int(f.attempts.Load()),
		Retries:  int(f.retries.Load()),
		BytesIn:  f.bytesIn.Load(),
	}
}

// countingRequestLogHook is installed as the retryablehttp.Client's
// RequestLogHook so every attempt (including the first) increments
// attempts, and every attempt beyond the first increments retries.
func (f *Fetcher) countingRequestLogHook(_ retryablehttp.Logger, _ *http.Request, attempt int) {
	f.attempts.Add(1)
	if attempt > 0 {
		f.retries.Add(1)
	}
}
