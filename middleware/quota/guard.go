package quota

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/application"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/domain"
)

// Outcomes reported to the Observer.
const (
	OutcomeConsumed      = "consumed"
	OutcomeExhausted     = "exhausted"
	OutcomeNotConsumed   = "not_consumed"
	OutcomeCheckFailed   = "check_failed"
	OutcomeConsumeFailed = "consume_failed"
)

type KeyFunc func(r *http.Request) string

// Observer receives one outcome per guarded request (e.g. a Prometheus counter).
type Observer interface {
	ObserveTrial(outcome string)
}

type Options struct {
	Tracker  application.Tracker
	KeyFn    KeyFunc
	Logger   logrus.FieldLogger
	Observer Observer
}

type errorBody struct {
	Error string `json:"error"`
	Used  int    `json:"used,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Guard lets each client run next successfully at most Limit times.
//
// next writes into a buffer. Only a 2xx result is recorded, and the
// response is released only after Consume succeeded; if recording fails
// the result is dropped and the client gets 503, so a store outage costs
// the client a retry instead of granting an unrecorded free use.
func Guard(opts Options) func(next http.Handler) http.Handler {
	if opts.Tracker == nil {
		opts.Tracker = application.FailOpenTracker{}
	}
	if opts.KeyFn == nil {
		opts.KeyFn = RemoteHost
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	observe := func(outcome string) {
		if opts.Observer != nil {
			opts.Observer.ObserveTrial(outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.ClientKey(opts.KeyFn(r))
			log := opts.Logger.WithFields(logrus.Fields{"client": string(key), "path": r.URL.Path})

			usage, err := opts.Tracker.Check(r.Context(), key)
			if err != nil {
				observe(OutcomeCheckFailed)
				log.WithError(err).Error("free trial check failed")
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "quota_unavailable"})
				return
			}

			setUsageHeaders(w.Header(), usage)
			if err := usage.Err(); err != nil {
				observe(OutcomeExhausted)
				log.WithError(err).WithField("used", usage.Used).Info("request blocked")
				writeJSON(w, http.StatusForbidden, errorBody{
					Error: "free_trial_used",
					Used:  usage.Used,
					Limit: usage.Limit,
				})
				return
			}

			buf := newBufferedWriter()
			next.ServeHTTP(buf, r)

			if buf.status < 200 || buf.status >= 300 {
				observe(OutcomeNotConsumed)
				buf.flushTo(w)
				return
			}

			if err := opts.Tracker.Consume(r.Context(), key); err != nil {
				observe(OutcomeConsumeFailed)
				log.WithError(err).Error("free trial consume failed, dropping response")
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "quota_unavailable"})
				return
			}

			usage.Used++
			usage.Allowed = usage.Used < usage.Limit
			setUsageHeaders(w.Header(), usage)

			observe(OutcomeConsumed)
			log.WithField("used", usage.Used).Info("free trial consumed")
			buf.flushTo(w)
		})
	}
}

// StatusHandler answers with the caller's current usage. It never consumes.
func StatusHandler(tracker application.Tracker, keyFn KeyFunc, logger logrus.FieldLogger) http.Handler {
	if tracker == nil {
		tracker = application.FailOpenTracker{}
	}
	if keyFn == nil {
		keyFn = RemoteHost
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyFn(r)
		usage, err := tracker.Check(r.Context(), domain.ClientKey(key))
		if err != nil {
			logger.WithError(err).WithField("client", key).Error("free trial status failed")
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "quota_unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, usage)
	})
}

func setUsageHeaders(h http.Header, u domain.Usage) {
	h.Set("X-Trial-Limit", formatInt(u.Limit))
	h.Set("X-Trial-Used", formatInt(u.Used))
	h.Set("X-Trial-Remaining", formatInt(u.Remaining()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// bufferedWriter holds the gated handler's response until the use is recorded.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.wrote {
		return
	}
	b.wrote = true
	b.status = status
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wrote = true
	return b.body.Write(p)
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}
