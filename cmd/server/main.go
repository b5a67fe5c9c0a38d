package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"GeminiChat/internal/adapter/web"
	"GeminiChat/internal/app/setup"
	"GeminiChat/internal/config"
)

// Веб-интерфейс чата: страница на WEB_BIND_ADDR, обмен через websocket.
func main() {
	cfg := config.NewConfig()

	logger, err := setup.NewLogger(cfg, false)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	app, err := setup.Build(cfg, sugar)
	if err != nil {
		sugar.Errorw("Не удалось запустить приложение", "error", err)
		return
	}
	defer app.Close()

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := web.NewHub(sugar)
	comp := app.NewCompanion(hub)
	comp.Start()

	srv := web.NewServer(cfg.WebBindAddr, hub, comp, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("Не удалось запустить веб-сервер", "error", err)
		return
	}

	<-ctx.Done()
	_ = srv.Stop(context.Background())
	sugar.Infow("server stopped")
}
