package ratelimit

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/application"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         logrus.FieldLogger
}

// ConcurrencyMiddleware caps in-flight requests at Max. Max <= 0 disables it.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	pool := infra.NewChanPool(opts.Max)
	svc := application.ConcurrencyService{
		Pool:           pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				opts.Logger.WithFields(logrus.Fields{
					"path":   r.URL.Path,
					"in_use": pool.InUse(),
					"max":    pool.Cap(),
				}).Warn("no free slot for request")
				reject(w, opts.RejectStatus, CodeBusy)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
