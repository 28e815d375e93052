// Package generate writes job applications through an OpenAI-compatible
// chat completions gateway. It is the action behind the free-trial guard.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	maxFieldLen     = 20000
	maxResponseSize = 1 << 20
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyCompletion = errors.New("llm returned no content")
)

// Request is what the client sends to /api/generate-application.
type Request struct {
	JobTitle       string `json:"jobTitle"`
	Company        string `json:"company"`
	JobDescription string `json:"jobDescription"`
	CV             string `json:"cv"`
	Language       string `json:"language"`
}

// Normalize trims fields, defaults Language to "no" and validates.
func (r *Request) Normalize() error {
	r.JobTitle = strings.TrimSpace(r.JobTitle)
	r.Company = strings.TrimSpace(r.Company)
	r.JobDescription = strings.TrimSpace(r.JobDescription)
	r.CV = strings.TrimSpace(r.CV)
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))

	switch r.Language {
	case "", "no", "nb", "nn":
		r.Language = "no"
	case "en":
	default:
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, r.Language)
	}

	if r.JobTitle == "" {
		return fmt.Errorf("%w: jobTitle is required", ErrInvalidRequest)
	}
	if r.JobDescription == "" {
		return fmt.Errorf("%w: jobDescription is required", ErrInvalidRequest)
	}
	for name, v := range map[string]string{
		"jobTitle": r.JobTitle, "company": r.Company,
		"jobDescription": r.JobDescription, "cv": r.CV,
	} {
		if len(v) > maxFieldLen {
			return fmt.Errorf("%w: %s is longer than %d bytes", ErrInvalidRequest, name, maxFieldLen)
		}
	}
	return nil
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// UpstreamError is a non-200 answer from the gateway.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm gateway: status %d", e.Status)
	}
	return fmt.Sprintf("llm gateway: status %d: %s", e.Status, e.Message)
}

// Client talks to <baseURL>/chat/completions.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	system, user := Prompt(req)
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("llm gateway: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(body, "error.message").String(),
		}
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(content.String()), nil
}

// Prompt builds the system and user messages for req.
func Prompt(req Request) (system, user string) {
	var b strings.Builder
	if req.Language == "en" {
		system = "You are an experienced career advisor. Write concise, specific and professional job applications. Never invent experience that is not in the CV."
		fmt.Fprintf(&b, "Write a job application for the position %q", req.JobTitle)
		if req.Company != "" {
			fmt.Fprintf(&b, " at %s", req.Company)
		}
		fmt.Fprintf(&b, ".\n\nJob description:\n%s\n", req.JobDescription)
		if req.CV != "" {
			fmt.Fprintf(&b, "\nCV:\n%s\n", req.CV)
		}
		return system, b.String()
	}

	system = "Du er en erfaren norsk karriereveileder. Skriv konkrete, profesjonelle jobbsøknader på norsk bokmål. Ikke dikt opp erfaring som ikke står i CV-en."
	fmt.Fprintf(&b, "Skriv en jobbsøknad til stillingen %q", req.JobTitle)
	if req.Company != "" {
		fmt.Fprintf(&b, " hos %s", req.Company)
	}
	fmt.Fprintf(&b, ".\n\nStillingsbeskrivelse:\n%s\n", req.JobDescription)
	if req.CV != "" {
		fmt.Fprintf(&b, "\nCV:\n%s\n", req.CV)
	}
	return system, b.String()
}
