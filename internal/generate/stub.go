package generate

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// StubUpstream answers POST /chat/completions like an OpenAI-compatible
// gateway, echoing the first line of the user prompt back as the
// application text. It is meant for local development and tests.
func StubUpstream(logger logrus.FieldLogger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, stubError("method not allowed"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseSize))
		if err != nil || !gjson.ValidBytes(body) {
			writeJSON(w, http.StatusBadRequest, stubError("invalid json"))
			return
		}
		model := gjson.GetBytes(body, "model").String()
		prompt := gjson.GetBytes(body, `messages.#(role=="user").content`).String()
		if prompt == "" {
			writeJSON(w, http.StatusBadRequest, stubError("no user message"))
			return
		}
		first, _, _ := strings.Cut(prompt, "\n")

		logger.WithField("model", model).Info("stub completion")
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    "assistant",
					"content": fmt.Sprintf("[stub] %s", first),
				},
			}},
		})
	})
}

func stubError(msg string) map[string]any {
	return map[string]any{"error": map[string]string{"message": msg}}
}
