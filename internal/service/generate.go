package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/theelderemo/vrsa/internal/config"
	"github.com/theelderemo/vrsa/internal/domain"
)

// Generator is the opaque completion function: a prompt plus its surrounding
// context in, one or more response variants out. The memory layer does not
// care who implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []domain.Message, settings json.RawMessage) ([]string, error)
}

// OpenRouterGenerator implements Generator against the OpenRouter
// chat-completions API.
type OpenRouterGenerator struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

func NewOpenRouterGenerator(apiKey, defaultModel string) *OpenRouterGenerator {
	return &OpenRouterGenerator{
		apiKey:       apiKey,
		baseURL:      "https://openrouter.ai/api/v1",
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: config.GenerateTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	N           int           `json:"n,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// generationSettings are the keys the generator understands inside the
// otherwise opaque session settings.
type generationSettings struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
}

func (g *OpenRouterGenerator) Generate(ctx context.Context, prompt string, history []domain.Message, settings json.RawMessage) ([]string, error) {
	var gen generationSettings
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &gen); err != nil {
			return nil, fmt.Errorf("parse generation settings: %w", err)
		}
	}
	model := gen.Model
	if model == "" {
		model = g.defaultModel
	}

	messages := make([]chatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: domain.RoleUser, Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: gen.Temperature,
		N:           config.GenerateVariants,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generate completion: status %d: %s", resp.StatusCode, payload)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("generate completion: empty response")
	}

	variants := make([]string, 0, len(parsed.Choices))
	for _, c := range parsed.Choices {
		variants = append(variants, c.Message.Content)
	}
	return variants, nil
}
