package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAIOptions configures an OpenAIProvider.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Fallback     Provider
	OnFallback   func(reason string, err error)
	OnWarning    func(reason, detail string)
}

// OpenAIProvider generates study aids through the OpenAI chat-completions
// API. When a call fails and a fallback provider is configured, the operation
// is delegated to it so requests degrade instead of erroring out.
type OpenAIProvider struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	fallback     Provider
	onFallback   func(reason string, err error)
}

const openAIDefaultTimeout = 90 * time.Second

const defaultOpenAIModel = "gpt-4o-mini"

var openAIModelCanonical = map[string]string{
	"gpt-3.5-turbo": "gpt-3.5-turbo",
	"gpt-4o":        "gpt-4o",
	"gpt-4o-mini":   "gpt-4o-mini",
}

var openAIModelAliases = map[string]string{
	"gpt-3.5":                "gpt-3.5-turbo",
	"gpt3.5":                 "gpt-3.5-turbo",
	"gpt-35-turbo":           "gpt-3.5-turbo",
	"gpt4o":                  "gpt-4o",
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const openAISystemPrompt = "You are a study assistant that converts documents into study aids and only responds with valid JSON."

// NewOpenAIProvider validates options and constructs an OpenAIProvider.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	modelInput := strings.TrimSpace(opts.Model)
	normalizedModel, normalizationReason := normalizeOpenAIModel(modelInput)
	if normalizationReason != "" && opts.OnWarning != nil {
		detail := fmt.Sprintf("requested=%s resolved=%s", modelInput, normalizedModel)
		opts.OnWarning("model_"+normalizationReason, detail)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIProvider{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        normalizedModel,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		fallback:     opts.Fallback,
		onFallback:   opts.OnFallback,
	}, nil
}

func (o *OpenAIProvider) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	content, reason, err := o.chat(ctx, buildSummaryPrompt(req), 0.3)
	if err != nil {
		if o.fallback != nil {
			o.emitFallback(reason, err)
			return o.fallback.Summarize(ctx, req)
		}
		return nil, err
	}
	parsed, err := parseModelPayload[SummaryResult](content)
	if err != nil {
		if o.fallback != nil {
			o.emitFallback("parse_payload", err)
			return o.fallback.Summarize(ctx, req)
		}
		return nil, fmt.Errorf("openai: parse summary payload: %w", err)
	}
	parsed.Provider = openAIProviderName
	return &parsed, nil
}

func (o *OpenAIProvider) GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResult, error) {
	content, reason, err := o.chat(ctx, buildQuizPrompt(req), 0.5)
	if err != nil {
		if o.fallback != nil {
			o.emitFallback(reason, err)
			return o.fallback.GenerateQuiz(ctx, req)
		}
		return nil, err
	}
	parsed, err := parseModelPayload[QuizResult](content)
	if err != nil || len(parsed.Questions) == 0 {
		if err == nil {
			err = errors.New("no questions produced")
		}
		if o.fallback != nil {
			o.emitFallback("parse_payload", err)
			return o.fallback.GenerateQuiz(ctx, req)
		}
		return nil, fmt.Errorf("openai: parse quiz payload: %w", err)
	}
	// The model may return fewer questions than asked; never more than
	// requested so billing cannot exceed the pre-flight estimate.
	if len(parsed.Questions) > req.QuestionCount {
		parsed.Questions = parsed.Questions[:req.QuestionCount]
	}
	parsed.Provider = openAIProviderName
	return &parsed, nil
}

func (o *OpenAIProvider) GenerateFlashcards(ctx context.Context, req FlashcardRequest) (*FlashcardResult, error) {
	content, reason, err := o.chat(ctx, buildFlashcardPrompt(req), 0.5)
	if err != nil {
		if o.fallback != nil {
			o.emitFallback(reason, err)
			return o.fallback.GenerateFlashcards(ctx, req)
		}
		return nil, err
	}
	parsed, err := parseModelPayload[FlashcardResult](content)
	if err != nil || len(parsed.Cards) == 0 {
		if err == nil {
			err = errors.New("no cards produced")
		}
		if o.fallback != nil {
			o.emitFallback("parse_payload", err)
			return o.fallback.GenerateFlashcards(ctx, req)
		}
		return nil, fmt.Errorf("openai: parse flashcard payload: %w", err)
	}
	if len(parsed.Cards) > req.CardCount {
		parsed.Cards = parsed.Cards[:req.CardCount]
	}
	parsed.Provider = openAIProviderName
	return &parsed, nil
}

func (o *OpenAIProvider) Write(ctx context.Context, req WriterRequest) (*WriterResult, error) {
	content, reason, err := o.chat(ctx, buildWriterPrompt(req), 0.7)
	if err != nil {
		if o.fallback != nil {
			o.emitFallback(reason, err)
			return o.fallback.Write(ctx, req)
		}
		return nil, err
	}
	parsed, err := parseModelPayload[WriterResult](content)
	if err != nil || strings.TrimSpace(parsed.Content) == "" {
		if err == nil {
			err = errors.New("empty draft")
		}
		if o.fallback != nil {
			o.emitFallback("parse_payload", err)
			return o.fallback.Write(ctx, req)
		}
		return nil, fmt.Errorf("openai: parse writer payload: %w", err)
	}
	parsed.WordCount = countWords(parsed.Content)
	parsed.Provider = openAIProviderName
	return &parsed, nil
}

func (o *OpenAIProvider) Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	content, reason, err := o.chat(ctx, buildTranslationPrompt(req), 0.2)
	if err != nil {
		if o.fallback != nil {
			o.emitFallback(reason, err)
			return o.fallback.Translate(ctx, req)
		}
		return nil, err
	}
	parsed, err := parseModelPayload[TranslationResult](content)
	if err != nil || strings.TrimSpace(parsed.Translation) == "" {
		if err == nil {
			err = errors.New("empty translation")
		}
		if o.fallback != nil {
			o.emitFallback("parse_payload", err)
			return o.fallback.Translate(ctx, req)
		}
		return nil, fmt.Errorf("openai: parse translation payload: %w", err)
	}
	parsed.TargetLanguage = req.TargetLanguage
	parsed.Provider = openAIProviderName
	return &parsed, nil
}

// chat issues one chat-completions call and returns the raw message content.
// The second return names the failure stage for fallback telemetry.
func (o *OpenAIProvider) chat(ctx context.Context, userPrompt string, temperature float64) (string, string, error) {
	payload := openAIChatRequest{
		Model:          o.model,
		Temperature:    temperature,
		ResponseFormat: &openAIFormat{Type: "json_object"},
		Messages: []openAIMessage{
			{Role: "system", Content: openAISystemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", "encode_request", err
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", "build_request", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", "http_request", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", fmt.Sprintf("http_%d", resp.StatusCode), fmt.Errorf("openai status %d", resp.StatusCode)
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "decode_response", err
	}
	if len(out.Choices) == 0 {
		return "", "empty_choices", errors.New("no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", "empty_response", errors.New("empty response")
	}
	return text, "", nil
}

func (o *OpenAIProvider) emitFallback(reason string, err error) {
	if o.onFallback != nil {
		o.onFallback(reason, err)
	}
}

var _ Provider = (*OpenAIProvider)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
