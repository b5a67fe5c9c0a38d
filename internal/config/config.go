package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Режимы клиента API
const (
	APIModeGemini = "gemini" // нативный generateContent
	APIModeOpenAI = "openai" // OpenAI-совместимый эндпоинт Gemini
	APIModeStub   = "stub"   // без сети, для отладки
)

// Виды хранилища
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	DebugMode bool   `env:"DEBUG_MODE"` // Режим дебага
	LogJSON   bool   `env:"LOG_JSON"`   // Логи в JSON (production-логгер zap)
	APIKey    string `env:"GEMINI_API_KEY"`
	APIMode   string `env:"API_MODE"` // gemini|openai|stub

	Gemini GeminiConfig

	MaxHistory       int           `env:"MAX_HISTORY"`        // Сколько последних реплик хранить и отправлять
	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH"` // Максимальная длина сообщения пользователя в символах
	RateLimit        float64       `env:"RATE_LIMIT"`         // Сообщений в секунду; 0 — без ограничения
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"`    // Таймаут HTTP-запроса к API

	BlockedKeywords []string `env:"BLOCKED_KEYWORDS" envSeparator:";"` // Сообщения с этими словами не отправляются

	Store StoreConfig

	PersonasFile string `env:"PERSONAS_FILE"` // TOML с переопределением текстов персон
	WebBindAddr  string `env:"WEB_BIND_ADDR"` // Адрес веб-интерфейса
}

// GeminiConfig — параметры генерации, одинаковые для всех запросов.
type GeminiConfig struct {
	Model           string  `env:"GEMINI_MODEL"`
	Endpoint        string  `env:"GEMINI_ENDPOINT"`        // Пусто — собирается из модели
	OpenAIEndpoint  string  `env:"OPENAI_COMPAT_ENDPOINT"` // База для API_MODE=openai
	Temperature     float64 `env:"GEMINI_TEMPERATURE"`
	MaxOutputTokens int     `env:"GEMINI_MAX_TOKENS"`
	TopP            float64 `env:"GEMINI_TOP_P"`
	TopK            int     `env:"GEMINI_TOP_K"`
	SafetyThreshold string  `env:"SAFETY_THRESHOLD"` // Порог для всех четырёх категорий
}

// StoreConfig — где лежат ключ и снимок диалога.
type StoreConfig struct {
	Kind string `env:"STORE"`      // file|sqlite|memory
	Path string `env:"STORE_PATH"` // Файл JSON или база SQLite
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GenerateContentURL возвращает адрес generateContent без ключа.
func (g GeminiConfig) GenerateContentURL() string {
	if ep := strings.TrimSpace(g.Endpoint); ep != "" {
		return ep
	}
	return fmt.Sprintf("%s/models/%s:generateContent", geminiBaseURL, g.Model)
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		APIMode:   APIModeGemini,
		Gemini: GeminiConfig{
			Model:           "gemini-1.5-flash",
			OpenAIEndpoint:  geminiBaseURL + "/openai/",
			Temperature:     0.7,
			MaxOutputTokens: 2048,
			TopP:            0.8,
			TopK:            40,
			SafetyThreshold: "BLOCK_MEDIUM_AND_ABOVE",
		},
		MaxHistory:       20,
		MaxMessageLength: 4096,
		RateLimit:        3,
		RequestTimeout:   30 * time.Second,
		BlockedKeywords: []string{
			"спам", "реклама", "порно", "насилие", "терроризм",
			"наркотики", "взрыв", "убийство",
		},
		Store: StoreConfig{
			Kind: StoreFile,
			Path: "chat_state.json",
		},
		WebBindAddr: "127.0.0.1:8080",
	}
}

// NewConfig загружает конфигурацию приложения.
// Ошибки конфигурации на старте фатальны.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	BindFlags(flag.CommandLine, cfg)
	flag.Parse()

	if err := cfg.Normalize(); err != nil {
		panic(err)
	}
	return cfg
}

// BindFlags регистрирует флаги поверх уже загруженных значений.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "писать логи в JSON")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API ключ Gemini (если в хранилище ключа ещё нет)")
	fs.StringVar(&cfg.APIMode, "api-mode", cfg.APIMode, "клиент API: gemini|openai|stub")
	// Gemini
	fs.StringVar(&cfg.Gemini.Model, "model", cfg.Gemini.Model, "модель, напр. gemini-1.5-flash")
	fs.StringVar(&cfg.Gemini.Endpoint, "endpoint", cfg.Gemini.Endpoint, "полный URL generateContent (перекрывает -model)")
	fs.StringVar(&cfg.Gemini.OpenAIEndpoint, "openai-endpoint", cfg.Gemini.OpenAIEndpoint, "базовый URL OpenAI-совместимого API")
	fs.Float64Var(&cfg.Gemini.Temperature, "temperature", cfg.Gemini.Temperature, "температура генерации")
	fs.IntVar(&cfg.Gemini.MaxOutputTokens, "max-tokens", cfg.Gemini.MaxOutputTokens, "максимум токенов ответа")
	fs.Float64Var(&cfg.Gemini.TopP, "top-p", cfg.Gemini.TopP, "nucleus sampling top-p")
	fs.IntVar(&cfg.Gemini.TopK, "top-k", cfg.Gemini.TopK, "top-k")
	fs.StringVar(&cfg.Gemini.SafetyThreshold, "safety-threshold", cfg.Gemini.SafetyThreshold, "порог фильтров безопасности")
	// Диалог
	fs.IntVar(&cfg.MaxHistory, "max-history", cfg.MaxHistory, "сколько последних реплик хранить")
	fs.IntVar(&cfg.MaxMessageLength, "max-message-length", cfg.MaxMessageLength, "максимальная длина сообщения")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "сообщений в секунду, 0 — без ограничения")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "таймаут запроса к API, напр. 30s")
	fs.Func("blocked-keywords", "запрещённые слова через ';', пусто — без фильтра", func(v string) error {
		cfg.BlockedKeywords = strings.Split(v, ";")
		return nil
	})
	// Хранилище
	fs.StringVar(&cfg.Store.Kind, "store", cfg.Store.Kind, "хранилище: file|sqlite|memory")
	fs.StringVar(&cfg.Store.Path, "store-path", cfg.Store.Path, "путь к файлу хранилища")
	fs.StringVar(&cfg.PersonasFile, "personas-file", cfg.PersonasFile, "TOML с текстами персон")
	fs.StringVar(&cfg.WebBindAddr, "web-bind-addr", cfg.WebBindAddr, "адрес веб-интерфейса")
}

// Normalize приводит значения к допустимым и проверяет перечисления.
func (c *Config) Normalize() error {
	def := Defaults()

	c.APIMode = strings.ToLower(strings.TrimSpace(c.APIMode))
	switch c.APIMode {
	case "":
		c.APIMode = APIModeGemini
	case APIModeGemini, APIModeOpenAI, APIModeStub:
	default:
		return fmt.Errorf("config: неизвестный api-mode %q (gemini|openai|stub)", c.APIMode)
	}

	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	switch c.Store.Kind {
	case "":
		c.Store.Kind = StoreFile
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("config: неизвестное хранилище %q (file|sqlite|memory)", c.Store.Kind)
	}
	if c.Store.Kind != StoreMemory && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("config: не задан store-path для хранилища %s", c.Store.Kind)
	}

	if strings.TrimSpace(c.Gemini.Model) == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if strings.TrimSpace(c.Gemini.SafetyThreshold) == "" {
		c.Gemini.SafetyThreshold = def.Gemini.SafetyThreshold
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = def.MaxHistory
	}
	// История хранится парами вопрос/ответ
	if c.MaxHistory%2 != 0 {
		c.MaxHistory++
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = def.MaxMessageLength
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	keywords := c.BlockedKeywords[:0:0]
	for _, k := range c.BlockedKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	c.BlockedKeywords = keywords
	c.APIKey = strings.TrimSpace(c.APIKey)
	return nil
}
