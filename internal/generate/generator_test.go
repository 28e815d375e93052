package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequest_Normalize(t *testing.T) {
	r := Request{JobTitle: "  Utvikler ", JobDescription: " Go ", Language: "NB"}
	if err := r.Normalize(); err != nil {
		t.Fatal(err)
	}
	if r.JobTitle != "Utvikler" || r.Language != "no" {
		t.Fatalf("unexpected normalized request %+v", r)
	}

	bad := []Request{
		{JobDescription: "x"},
		{JobTitle: "x"},
		{JobTitle: "x", JobDescription: "x", Language: "de"},
		{JobTitle: "x", JobDescription: strings.Repeat("a", maxFieldLen+1)},
	}
	for i, b := range bad {
		if err := b.Normalize(); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestPrompt_Language(t *testing.T) {
	sys, user := Prompt(Request{JobTitle: "Sykepleier", Company: "Ahus", JobDescription: "Turnus", Language: "no"})
	if !strings.Contains(sys, "norsk") || !strings.Contains(user, "hos Ahus") {
		t.Fatalf("expected Norwegian prompt, got %q / %q", sys, user)
	}

	_, user = Prompt(Request{JobTitle: "Nurse", JobDescription: "Shifts", CV: "10 years", Language: "en"})
	if !strings.Contains(user, "CV:\n10 years") || strings.Contains(user, " at ") {
		t.Fatalf("unexpected English prompt %q", user)
	}
}

func TestClient_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  Hei, jeg søker stillingen.  "}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "sk-test", "gpt-4o-mini", time.Second)
	text, err := c.Generate(context.Background(), Request{JobTitle: "Utvikler", JobDescription: "Go", Language: "no"})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hei, jeg søker stillingen." {
		t.Fatalf("text = %q", text)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected upstream request %+v", got)
	}
}

func TestClient_GenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exhausted"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "m", time.Second).Generate(context.Background(), Request{JobTitle: "x", JobDescription: "y"})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusTooManyRequests || ue.Message != "quota exhausted" {
		t.Fatalf("unexpected %+v", ue)
	}
}

func TestClient_GenerateEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "m", time.Second).Generate(context.Background(), Request{JobTitle: "x", JobDescription: "y"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
