package main

import (
	"context"
	"fmt"
	"os"

	"GeminiChat/internal/ai"
	"GeminiChat/internal/app/setup"
	"GeminiChat/internal/config"
)

// Проверка подключения к API: один короткий запрос без истории.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.NewConfig()

	logger, err := setup.NewLogger(cfg, false)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	app, err := setup.Build(cfg, sugar)
	if err != nil {
		sugar.Errorw("Не удалось запустить приложение", "error", err)
		return 1
	}
	defer app.Close()

	credential, ok := app.State.Credential()
	if !ok {
		sugar.Errorw("Ключ API не задан: укажите GEMINI_API_KEY или -api-key")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	p := app.State.StoredPersona()
	reply, err := ai.Ping(ctx, app.Client, credential, p.Preamble, app.Settings)
	if err != nil {
		sugar.Errorw("Проверка подключения не прошла", "api_mode", cfg.APIMode, "model", cfg.Gemini.Model, "error", err)
		return 1
	}
	sugar.Infow("Подключение работает", "api_mode", cfg.APIMode, "model", cfg.Gemini.Model)
	fmt.Println(reply)
	return 0
}
