package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/docgate/internal/application/chat"
	domain "github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/infra/ai/prompt"
)

const maxTokens = 4096

// Client wraps an OpenAI-compatible API for vision extraction and chat.
type Client struct {
	*openai.Client
	VisionModel string
	ChatModel   string
}

// NewClient fails with ErrVisionUnavailable when no API key is configured,
// so callers can mark vision-routed files as failed at startup instead of
// retrying a dead endpoint per request.
func NewClient(apiKey, baseURL, visionModel, chatModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.ErrVisionUnavailable
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		Client:      openai.NewClientWithConfig(cfg),
		VisionModel: visionModel,
		ChatModel:   chatModel,
	}, nil
}

// visionPayload mirrors the JSON contract in the system prompt.
type visionPayload struct {
	Summary  string `json:"summary"`
	FullText string `json:"full_text"`
	Tables   []struct {
		Title   *string    `json:"title"`
		Headers []string   `json:"headers"`
		Rows    [][]string `json:"rows"`
	} `json:"tables"`
}

// Extract sends the document bytes to the vision model and decodes its
// strict JSON response. No retry happens here; retry policy belongs to the
// ingestion gateway.
func (c *Client) Extract(ctx context.Context, name string, data []byte) (*domain.ExtractionResult, error) {
	model := c.VisionModel
	if model == "" {
		model = "gpt-4o"
	}
	dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data)
	req := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.VisionSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.VisionUserPrompt(name)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	}

	start := time.Now()
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision completion: %w", err)
	}
	elapsed := time.Since(start)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: model %s returned no content", domain.ErrEmptyVisionResponse, model)
	}
	return decodeVisionResponse(resp.Choices[0].Message.Content, model, elapsed)
}

// decodeVisionResponse enforces the JSON contract from the system prompt.
// full_text falls back to summary; tables are taken verbatim.
func decodeVisionResponse(content, model string, elapsed time.Duration) (*domain.ExtractionResult, error) {
	var payload visionPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidVisionJSON, err)
	}

	fullText := payload.FullText
	if strings.TrimSpace(fullText) == "" {
		fullText = payload.Summary
	}
	if strings.TrimSpace(fullText) == "" {
		return nil, fmt.Errorf("%w: response carried neither full_text nor summary", domain.ErrEmptyVisionResponse)
	}

	tables := make([]domain.Table, 0, len(payload.Tables))
	for _, t := range payload.Tables {
		table := domain.Table{Headers: t.Headers, Rows: t.Rows}
		if t.Title != nil {
			table.Title = *t.Title
		}
		tables = append(tables, table)
	}

	return &domain.ExtractionResult{
		FullText: fullText,
		Tables:   tables,
		Provenance: domain.Provenance{
			Model:      model,
			Route:      domain.RouteVision,
			DurationMS: elapsed.Milliseconds(),
		},
	}, nil
}

// Complete answers a gated chat turn using the assembled context as the
// system message.
func (c *Client) Complete(ctx context.Context, system string, turns []chat.Turn, message string) (string, error) {
	model := c.ChatModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty chat choices")
	}
	return resp.Choices[0].Message.Content, nil
}
