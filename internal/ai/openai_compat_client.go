package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// OpenAICompatClient отправляет тот же Request через OpenAI-совместимый эндпоинт Gemini.
// topK и safetySettings в этом API не поддерживаются и не передаются.
type OpenAICompatClient struct {
	client *openai.Client
	model  string
	logger *zap.SugaredLogger
}

func NewOpenAICompatClient(g config.GeminiConfig, timeout time.Duration, logger *zap.SugaredLogger) *OpenAICompatClient {
	oClient := openai.NewClient(
		option.WithBaseURL(g.OpenAIEndpoint),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	)
	return &OpenAICompatClient{client: &oClient, model: g.Model, logger: logger}
}

func (c *OpenAICompatClient) SendRequest(ctx context.Context, req *Request, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", ErrNoCredential
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Contents))
	for _, content := range req.Contents {
		text := joinParts(content.Parts)
		if content.Role == string(localconversation.RoleModel) {
			messages = append(messages, openai.AssistantMessage(text))
		} else {
			messages = append(messages, openai.UserMessage(text))
		}
	}

	gen := req.GenerationConfig
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(gen.Temperature),
		TopP:        openai.Float(gen.TopP),
		MaxTokens:   openai.Int(int64(gen.MaxOutputTokens)),
		N:           openai.Int(1),
	}

	started := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params, option.WithAPIKey(credential))
	dur := time.Since(started)
	if err != nil {
		c.logger.Errorw("Ошибка ответа OpenAI-совместимого API", "duration", dur.String(), "error", err)
		return "", mapOpenAIError(err)
	}
	c.logger.Infow("Ответ OpenAI-совместимого API получен", "duration", dur.String())

	if len(resp.Choices) == 0 {
		return "", &APIError{Message: msgUnexpectedFormat, Err: errors.New("no choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = fallbackMessage(apiErr.StatusCode)
		}
		return &APIError{Status: apiErr.StatusCode, Message: msg, Err: err}
	}
	return transportError(err)
}

func joinParts(parts []Part) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}
