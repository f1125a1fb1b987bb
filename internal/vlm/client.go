// Package vlm talks to vision-language model services to turn frame batches
// into structured workflow descriptions. Three providers are supported:
// a local ollama server, the OpenAI chat completions API, and the Gemini
// generateContent API.
package vlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Provider names a supported VLM backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Config carries the connection and sampling settings for a client.
type Config struct {
	Provider    Provider
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client describes a batch of frames with a prompt and returns the raw model
// text. Implementations are safe for concurrent use.
type Client interface {
	Describe(ctx context.Context, images [][]byte, prompt string) (string, error)
}

// New builds a client for the configured provider.
func New(cfg Config) (Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case ProviderOllama:
		return &ollamaClient{cfg: cfg, http: hc}, nil
	case ProviderOpenAI:
		return &openaiClient{cfg: cfg, http: hc}, nil
	case ProviderGemini:
		return &geminiClient{cfg: cfg, http: hc}, nil
	default:
		return nil, fmt.Errorf("unknown vlm provider: %s", cfg.Provider)
	}
}

func postJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type ollamaClient struct {
	cfg  Config
	http *http.Client
}

func (c *ollamaClient) Describe(ctx context.Context, images [][]byte, prompt string) (string, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	payload := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"images": encoded,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	data, err := postJSON(ctx, c.http, strings.TrimRight(c.cfg.BaseURL, "/")+"/api/generate", nil, payload)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return out.Response, nil
}

type openaiClient struct {
	cfg  Config
	http *http.Client
}

func (c *openaiClient) Describe(ctx context.Context, images [][]byte, prompt string) (string, error) {
	content := []map[string]any{
		{"type": "text", "text": prompt},
	}
	for _, img := range images {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	payload := map[string]any{
		"model":       c.cfg.Model,
		"messages":    []map[string]any{{"role": "user", "content": content}},
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}

	base := c.cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	data, err := postJSON(ctx, c.http, strings.TrimRight(base, "/")+"/chat/completions", headers, payload)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type geminiClient struct {
	cfg  Config
	http *http.Client
}

func (c *geminiClient) Describe(ctx context.Context, images [][]byte, prompt string) (string, error) {
	parts := []map[string]any{
		{"text": prompt},
	}
	for _, img := range images {
		parts = append(parts, map[string]any{
			"inline_data": map[string]any{
				"mime_type": "image/jpeg",
				"data":      base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	payload := map[string]any{
		"contents": []map[string]any{{"parts": parts}},
		"generationConfig": map[string]any{
			"temperature":     c.cfg.Temperature,
			"maxOutputTokens": c.cfg.MaxTokens,
		},
	}

	base := c.cfg.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(base, "/"), c.cfg.Model, c.cfg.APIKey)

	data, err := postJSON(ctx, c.http, url, nil, payload)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls a JSON object out of model text. It prefers a fenced
// code block, then falls back to the first balanced top-level object, and
// returns an empty object when neither parses. Models pad their JSON with
// prose often enough that this cannot be strict.
func ExtractJSON(text string) map[string]any {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if obj := tryParse(m[1]); obj != nil {
			return obj
		}
	}

	start := strings.Index(text, "{")
	if start != -1 {
		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					if obj := tryParse(text[start : i+1]); obj != nil {
						return obj
					}
					i = len(text)
				}
			}
		}
	}
	return map[string]any{}
}

func tryParse(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}
