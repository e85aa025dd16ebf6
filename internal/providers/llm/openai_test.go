package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func chatResponse(t *testing.T, content string) *http.Response {
	t.Helper()
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal chat response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(raw)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestOpenAIProviderFallsBackOnTransportError(t *testing.T) {
	t.Parallel()
	var capturedReason string
	provider, err := NewOpenAIProvider(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
		Fallback: NewStaticProvider(),
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider returned error: %v", err)
	}

	res, err := provider.Summarize(context.Background(), SummaryRequest{Title: "Cells", DocumentText: "Mitochondria are organelles. They produce energy."})
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if res.Provider != staticProviderName {
		t.Fatalf("Provider = %q, want %q", res.Provider, staticProviderName)
	}
	if capturedReason != "http_request" {
		t.Fatalf("captured reason = %q, want %q", capturedReason, "http_request")
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	t.Parallel()
	// Callers must branch to the static provider before constructing the
	// client; an empty key is a configuration error, not a fallback trigger.
	if _, err := NewOpenAIProvider(OpenAIOptions{}); err == nil {
		t.Fatal("NewOpenAIProvider accepted an empty api key")
	}
}

func TestOpenAIProviderErrorsWithoutFallback(t *testing.T) {
	t.Parallel()
	provider, err := NewOpenAIProvider(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(bytes.NewReader(nil))}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider returned error: %v", err)
	}
	if _, err := provider.Summarize(context.Background(), SummaryRequest{Title: "Cells"}); err == nil {
		t.Fatal("Summarize succeeded, want error")
	}
}

func TestOpenAIProviderQuizTruncatesToRequestedCount(t *testing.T) {
	t.Parallel()
	payload := `{"questions":[
		{"question":"Q1?","choices":["a","b","c","d"],"answer":0},
		{"question":"Q2?","choices":["a","b","c","d"],"answer":1},
		{"question":"Q3?","choices":["a","b","c","d"],"answer":2}
	]}`
	provider, err := NewOpenAIProvider(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return chatResponse(t, "```json\n"+payload+"\n```"), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider returned error: %v", err)
	}

	res, err := provider.GenerateQuiz(context.Background(), QuizRequest{Title: "Cells", QuestionCount: 2})
	if err != nil {
		t.Fatalf("GenerateQuiz returned error: %v", err)
	}
	if len(res.Questions) != 2 {
		t.Fatalf("question count = %d, want 2", len(res.Questions))
	}
	if res.Provider != openAIProviderName {
		t.Fatalf("Provider = %q, want %q", res.Provider, openAIProviderName)
	}
}

func TestOpenAIProviderWriteComputesRealizedWordCount(t *testing.T) {
	t.Parallel()
	provider, err := NewOpenAIProvider(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return chatResponse(t, `{"content":"one two three four five"}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider returned error: %v", err)
	}

	res, err := provider.Write(context.Background(), WriterRequest{Title: "Essay", WordCount: 500})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if res.WordCount != 5 {
		t.Fatalf("WordCount = %d, want 5", res.WordCount)
	}
}

func TestNormalizeOpenAIModel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		model  string
		reason string
	}{
		{name: "exact_default", input: "gpt-4o-mini", model: "gpt-4o-mini", reason: ""},
		{name: "exact_large", input: "gpt-4o", model: "gpt-4o", reason: ""},
		{name: "alias_short", input: "gpt-3.5", model: "gpt-3.5-turbo", reason: "alias"},
		{name: "alias_spaces", input: "GPT4o Mini", model: "gpt-4o-mini", reason: "alias"},
		{name: "unsupported", input: "gpt-4.1", model: "gpt-4o-mini", reason: "defaulted"},
		{name: "empty", input: "", model: "gpt-4o-mini", reason: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotModel, gotReason := normalizeOpenAIModel(tc.input)
			if gotModel != tc.model {
				t.Fatalf("model = %q, want %q", gotModel, tc.model)
			}
			if gotReason != tc.reason {
				t.Fatalf("reason = %q, want %q", gotReason, tc.reason)
			}
		})
	}
}
