package setup

import (
	"fmt"

	"GeminiChat/internal/adapter/storage"
	"GeminiChat/internal/ai"
	"GeminiChat/internal/config"
	"GeminiChat/internal/persona"
	"GeminiChat/internal/service/companion"
	"GeminiChat/internal/service/notify"
	"GeminiChat/internal/service/state"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger создаёт логгер по конфигурации.
// quiet поднимает уровень до Warn, чтобы логи не мешали интерактивному вводу.
func NewLogger(cfg *config.Config, quiet bool) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.LogJSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	switch {
	case cfg.DebugMode:
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quiet:
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return zc.Build()
}

// App — собранные зависимости, общие для всех точек входа.
type App struct {
	Config   *config.Config
	Logger   *zap.SugaredLogger
	Store    storage.Store
	Journal  storage.Journal
	Catalog  *persona.Catalog
	State    *state.Manager
	Client   ai.Client
	Settings ai.Settings
}

// Build открывает хранилище, загружает персоны и создаёт клиента API.
func Build(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	catalog := persona.NewCatalog()
	if cfg.PersonasFile != "" {
		ignored, err := catalog.LoadOverrides(cfg.PersonasFile)
		if err != nil {
			return nil, fmt.Errorf("personas file: %w", err)
		}
		if len(ignored) > 0 {
			logger.Warnw("В файле персон есть неизвестные id, они пропущены", "ids", ignored)
		}
	}

	client, err := ai.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Catalog:  catalog,
		State:    state.New(store, catalog, cfg.MaxHistory, logger),
		Client:   client,
		Settings: ai.SettingsFromConfig(cfg.Gemini, catalog.Acknowledgment()),
	}
	if j, ok := store.(storage.Journal); ok {
		app.Journal = j
	}

	// Ключ из окружения/флага только заполняет пустое хранилище
	if cfg.APIKey != "" {
		if _, ok := app.State.Credential(); !ok {
			if err := app.State.SetCredential(cfg.APIKey); err != nil {
				logger.Warnw("Не удалось сохранить ключ API из конфигурации", "error", err)
			} else {
				logger.Infow("Ключ API взят из конфигурации")
			}
		}
	}

	logger.Infow("Приложение собрано",
		"api_mode", cfg.APIMode,
		"model", cfg.Gemini.Model,
		"store", cfg.Store.Kind,
		"max_history", cfg.MaxHistory,
		"journal", app.Journal != nil,
	)
	return app, nil
}

// NewCompanion создаёт контроллер диалога с указанным получателем отрисовки.
func (a *App) NewCompanion(r notify.Renderer) *companion.Companion {
	return companion.New(a.State, a.Client, a.Catalog, a.Settings, r, companion.Options{
		MaxMessageLength: a.Config.MaxMessageLength,
		RateLimit:        a.Config.RateLimit,
		BlockedKeywords:  a.Config.BlockedKeywords,
		Journal:          a.Journal,
	}, a.Logger)
}

func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Warnw("Ошибка закрытия хранилища", "error", err)
	}
}
