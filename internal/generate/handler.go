package generate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

const maxRequestBody = 256 << 10

// Observer counts generator results ("ok", "invalid", "upstream_error",
// "unavailable").
type Observer interface {
	ObserveGeneration(result string)
}

type response struct {
	Application string `json:"application,omitempty"`
	Error       string `json:"error,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Handler serves POST /api/generate-application. A nil gen answers 503.
func Handler(gen Generator, logger logrus.FieldLogger, obs Observer) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	observe := func(result string) {
		if obs != nil {
			obs.ObserveGeneration(result)
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gen == nil {
			observe("unavailable")
			writeJSON(w, http.StatusServiceUnavailable, response{Error: "generator_unavailable"})
			return
		}

		var req Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err := dec.Decode(&req); err != nil {
			observe("invalid")
			writeJSON(w, http.StatusBadRequest, response{Error: "invalid_json", Detail: err.Error()})
			return
		}
		if err := req.Normalize(); err != nil {
			observe("invalid")
			writeJSON(w, http.StatusBadRequest, response{Error: "invalid_request", Detail: err.Error()})
			return
		}

		text, err := gen.Generate(r.Context(), req)
		if err != nil {
			observe("upstream_error")
			entry := logger.WithError(err).WithField("job_title", req.JobTitle)
			var ue *UpstreamError
			if errors.As(err, &ue) {
				entry = entry.WithField("upstream_status", ue.Status)
			}
			entry.Error("application generation failed")
			writeJSON(w, http.StatusBadGateway, response{Error: "generation_failed"})
			return
		}

		observe("ok")
		writeJSON(w, http.StatusOK, response{Application: text})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
