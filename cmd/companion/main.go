package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"GeminiChat/internal/adapter/render/terminal"
	"GeminiChat/internal/app/console"
	"GeminiChat/internal/app/setup"
	"GeminiChat/internal/config"
)

// Терминальный чат с Gemini.
func main() {
	cfg := config.NewConfig()

	logger, err := setup.NewLogger(cfg, true)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() { _ = logger.Sync() }()

	app, err := setup.Build(cfg, sugar)
	if err != nil {
		sugar.Errorw("Не удалось запустить приложение", "error", err)
		return
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	term := terminal.New(os.Stdout, terminal.Options{Markdown: true})
	comp := app.NewCompanion(term)

	if err := console.New(comp, term, console.DefaultHistoryFile(), sugar).Run(ctx); err != nil {
		sugar.Errorw("Консоль завершилась с ошибкой", "error", err)
	}
}
