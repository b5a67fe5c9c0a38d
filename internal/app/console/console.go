package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"GeminiChat/internal/adapter/render/terminal"
	"GeminiChat/internal/service/companion"

	"github.com/peterh/liner"
	"go.uber.org/zap"
)

const helpText = `Команды:
  /help              эта справка
  /clear             очистить историю
  /persona <id>      сменить стиль (default, poet, teacher, friend, professional)
  /personas          список стилей
  /key [ключ]        сохранить API ключ (без аргумента спросит скрыто)
  /forget            удалить сохранённый ключ
  /info              текущее состояние
  /stats             статистика журнала (только для sqlite)
  /quit              выход`

// Console — интерактивный REPL поверх контроллера диалога.
type Console struct {
	comp        *companion.Companion
	term        *terminal.Renderer
	line        *liner.State
	historyFile string
	logger      *zap.SugaredLogger
}

func New(comp *companion.Companion, term *terminal.Renderer, historyFile string, logger *zap.SugaredLogger) *Console {
	return &Console{comp: comp, term: term, historyFile: historyFile, logger: logger}
}

// DefaultHistoryFile — файл истории ввода в каталоге конфигурации пользователя.
func DefaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gemini-chat", "input_history")
}

// Run читает строки до /quit, Ctrl+C, Ctrl+D или отмены контекста.
func (c *Console) Run(ctx context.Context) error {
	c.line = liner.NewLiner()
	c.line.SetCtrlCAborts(true)
	defer c.close()
	c.loadHistory()

	c.comp.Start()
	c.term.Println(`Введите сообщение или /help. Выход: /quit`)
	c.askCredentialIfRequested()

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := c.line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			// EOF или закрытый терминал
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if keepInHistory(input) {
			c.line.AppendHistory(input)
		}

		if quit := c.execute(ctx, input); quit {
			return nil
		}
		c.askCredentialIfRequested()
	}
}

// execute выполняет одну строку ввода. Возвращает true для выхода.
func (c *Console) execute(ctx context.Context, input string) bool {
	if !strings.HasPrefix(input, "/") {
		if err := c.comp.Send(ctx, input); err != nil && !errors.Is(err, companion.ErrEmptyMessage) {
			c.logger.Debugw("Сообщение не отправлено", "error", err)
		}
		return false
	}

	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "/quit", "/exit":
		return true
	case "/help":
		c.term.Println(helpText)
	case "/clear":
		_ = c.comp.Clear()
	case "/persona":
		if arg == "" {
			c.term.Println("Укажите стиль: /persona <id>. Список: /personas")
			return false
		}
		_, _ = c.comp.SetPersona(arg)
	case "/personas":
		active := c.comp.Info().Persona.ID
		for _, p := range c.comp.Personas() {
			mark := "  "
			if p.ID == active {
				mark = "* "
			}
			c.term.Println(fmt.Sprintf("%s%-13s %s — %s", mark, p.ID, p.Label(), p.Description))
		}
	case "/key":
		if arg == "" {
			c.promptCredential()
			return false
		}
		_ = c.comp.SetCredential(arg)
	case "/forget":
		_ = c.comp.SetCredential("")
	case "/info":
		info := c.comp.Info()
		key := "не задан"
		if info.HasCredential {
			key = "сохранён"
		}
		c.term.Println(fmt.Sprintf("Стиль: %s\nИстория: %d/%d\nКлюч API: %s", info.Persona.Label(), info.HistoryLen, info.HistoryMax, key))
	case "/stats":
		st, err := c.comp.Stats(ctx)
		if errors.Is(err, companion.ErrNoJournal) {
			c.term.Println("Журнал недоступен: запустите с -store sqlite.")
			return false
		}
		if err != nil {
			c.logger.Warnw("Не удалось получить статистику", "error", err)
			c.term.Println("Ошибка получения статистики.")
			return false
		}
		c.term.Println(fmt.Sprintf("Всего обменов: %d\nСегодня: %d\nСреднее время ответа: %.2fс", st.Total, st.Today, st.AvgDuration.Seconds()))
	default:
		c.term.Println("Неизвестная команда " + cmd + ". Справка: /help")
	}
	return false
}

// keepInHistory отсекает строки с ключом API: история ввода пишется на диск открытым текстом.
func keepInHistory(input string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(input), " ")
	return !strings.EqualFold(cmd, "/key")
}

func (c *Console) askCredentialIfRequested() {
	if c.term.TakeCredentialRequest() {
		c.promptCredential()
	}
}

func (c *Console) promptCredential() {
	if c.line == nil {
		return
	}
	key, err := c.line.PasswordPrompt("API ключ Gemini (пусто — пропустить): ")
	if err != nil {
		return
	}
	if key = strings.TrimSpace(key); key != "" {
		_ = c.comp.SetCredential(key)
	}
}

func (c *Console) loadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

func (c *Console) close() {
	if c.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.historyFile), 0o700); err == nil {
			if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				_, _ = c.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	_ = c.line.Close()
}
