package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"GeminiChat/internal/config"

	"go.uber.org/zap"
)

// Client интерфейс для взаимодействия с AI. Все реализации должны быть взаимозаменяемыми.
// Ошибки удалённой стороны возвращаются как *APIError.
type Client interface {
	SendRequest(ctx context.Context, req *Request, credential string) (string, error)
}

// SettingsFromConfig собирает статическую часть запроса из конфигурации.
func SettingsFromConfig(g config.GeminiConfig, acknowledgment string) Settings {
	return Settings{
		Generation: GenerationConfig{
			Temperature:     g.Temperature,
			MaxOutputTokens: g.MaxOutputTokens,
			TopP:            g.TopP,
			TopK:            g.TopK,
			CandidateCount:  1,
			StopSequences:   []string{},
		},
		Safety:         SafetySettings(g.SafetyThreshold),
		Acknowledgment: acknowledgment,
	}
}

// NewClient выбирает реализацию по cfg.APIMode.
func NewClient(cfg *config.Config, logger *zap.SugaredLogger) (Client, error) {
	switch strings.ToLower(cfg.APIMode) {
	case config.APIModeGemini, "":
		return NewGeminiClient(cfg.Gemini.GenerateContentURL(), cfg.RequestTimeout, logger), nil
	case config.APIModeOpenAI:
		return NewOpenAICompatClient(cfg.Gemini, cfg.RequestTimeout, logger), nil
	case config.APIModeStub:
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown api mode %q", cfg.APIMode)
	}
}

// PingPrompt — сообщение для проверки подключения.
const PingPrompt = "Привет! Это тест подключения."

// Ping отправляет короткий запрос без истории и возвращает ответ модели.
func Ping(ctx context.Context, c Client, credential string, preamble string, s Settings) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", ErrNoCredential
	}
	reply, err := c.SendRequest(ctx, BuildRequest(nil, preamble, PingPrompt, s), credential)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errors.New("empty reply")
	}
	return reply, nil
}
