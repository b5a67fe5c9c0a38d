package companion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/adapter/storage"
	"GeminiChat/internal/ai"
	"GeminiChat/internal/persona"
	"GeminiChat/internal/service/notify"
	"GeminiChat/internal/service/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrTooLong      = errors.New("message is too long")
	ErrBlocked      = errors.New("message contains blocked keywords")
	ErrBusy         = errors.New("previous request is still in progress")
	ErrRateLimited  = errors.New("rate limited")
	ErrNoJournal    = errors.New("exchange journal is not available")
)

// Options — необязательные настройки контроллера.
type Options struct {
	MaxMessageLength int             // В символах; 0 — без ограничения
	RateLimit        float64         // Сообщений в секунду; 0 — без ограничения
	BlockedKeywords  []string        // Подстроки без учёта регистра
	Journal          storage.Journal // nil — журнал не ведётся
}

// Info — сводка для команды /info.
type Info struct {
	Persona       persona.Persona
	HistoryLen    int
	HistoryMax    int
	HasCredential bool
	HasJournal    bool
}

// Companion проводит один обмен за раз: проверки, запрос к модели, обновление состояния, отрисовка.
type Companion struct {
	state    *state.Manager
	client   ai.Client
	catalog  *persona.Catalog
	settings ai.Settings
	renderer notify.Renderer
	journal  storage.Journal
	limiter  *rate.Limiter
	maxLen   int
	blocked  []string
	logger   *zap.SugaredLogger

	busy atomic.Bool
}

func New(st *state.Manager, client ai.Client, catalog *persona.Catalog, settings ai.Settings, renderer notify.Renderer, opts Options, logger *zap.SugaredLogger) *Companion {
	if renderer == nil {
		renderer = notify.Nop{}
	}
	c := &Companion{
		state:    st,
		client:   client,
		catalog:  catalog,
		settings: settings,
		renderer: renderer,
		journal:  opts.Journal,
		maxLen:   opts.MaxMessageLength,
		blocked:  lowerAll(opts.BlockedKeywords),
		logger:   logger,
	}
	if opts.RateLimit > 0 {
		burst := max(1, int(opts.RateLimit))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Start восстанавливает состояние из хранилища и показывает его.
func (c *Companion) Start() {
	c.state.Load()
	c.Replay(c.renderer)
}

// Replay показывает текущую историю указанному получателю: пары, счётчик, персону и запрос ключа.
func (c *Companion) Replay(r notify.Renderer) {
	r.ClearView()
	history := c.state.History()
	for i := 0; i+1 < len(history); i += 2 {
		r.RenderTurn(history[i].Role, history[i].Text)
		r.RenderTurn(history[i+1].Role, history[i+1].Text)
	}
	r.UpdateHistoryGauge(len(history), c.state.Max())
	r.ShowNotification("Активный стиль: "+c.state.Persona().Label(), notify.Info)
	if _, ok := c.state.Credential(); !ok {
		r.RequestCredential()
	}
	r.SetBusyIndicator(c.busy.Load())
	r.SetInputEnabled(!c.busy.Load())
}

// Busy сообщает, есть ли запрос в полёте.
func (c *Companion) Busy() bool { return c.busy.Load() }

// Send отправляет сообщение пользователя модели и показывает ответ.
// Одновременно выполняется не больше одного обмена: второй вызов получает ErrBusy.
func (c *Companion) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.maxLen > 0 && utf8.RuneCountInString(text) > c.maxLen {
		c.renderer.ShowNotification(fmt.Sprintf("Слишком длинное сообщение. Максимум %d символов.", c.maxLen), notify.Warning)
		return ErrTooLong
	}
	if kw, ok := c.blockedKeyword(text); ok {
		c.logger.Infow("Сообщение отклонено фильтром", "keyword", kw)
		c.renderer.ShowNotification("Сообщение содержит запрещённый контент.", notify.Warning)
		return ErrBlocked
	}

	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Warnw("Запрос отклонён: предыдущий ещё выполняется")
		return ErrBusy
	}

	credential, ok := c.state.Credential()
	if !ok {
		c.busy.Store(false)
		c.renderer.ShowNotification("Сначала укажите API ключ Gemini.", notify.Warning)
		c.renderer.RequestCredential()
		return ai.ErrNoCredential
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.busy.Store(false)
		c.renderer.ShowNotification("Слишком много сообщений. Подождите немного.", notify.Warning)
		return ErrRateLimited
	}

	c.renderer.SetInputEnabled(false)
	c.renderer.SetBusyIndicator(true)
	defer func() {
		c.busy.Store(false)
		c.renderer.SetBusyIndicator(false)
		c.renderer.SetInputEnabled(true)
	}()

	exchangeID := uuid.NewString()
	p := c.state.Persona()
	c.renderer.RenderTurn(localconversation.RoleUser, text)

	req := ai.BuildRequest(c.state.History(), p.Preamble, text, c.settings)

	started := time.Now()
	reply, err := c.client.SendRequest(ctx, req, credential)
	took := time.Since(started)
	if err != nil {
		c.logger.Errorw("Обмен не удался", "exchange", exchangeID, "persona", p.ID, "took", took.String(), "error", err)
		c.renderer.ShowNotification(userMessage(err), notify.Error)
		return err
	}

	c.state.AppendExchange(text, reply)
	c.renderer.RenderTurn(localconversation.RoleModel, reply)
	c.renderer.UpdateHistoryGauge(c.state.Len(), c.state.Max())
	c.logger.Infow("Обмен завершён", "exchange", exchangeID, "persona", p.ID, "took", took.String(), "turns", c.state.Len())

	if c.journal != nil {
		rec := storage.Exchange{
			ID:        exchangeID,
			Persona:   string(p.ID),
			UserText:  text,
			ModelText: reply,
			Duration:  took,
			CreatedAt: started,
		}
		if jerr := c.journal.RecordExchange(context.WithoutCancel(ctx), rec); jerr != nil {
			c.logger.Warnw("Не удалось записать обмен в журнал", "exchange", exchangeID, "error", jerr)
		}
	}
	return nil
}

func (c *Companion) blockedKeyword(text string) (string, bool) {
	if len(c.blocked) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range c.blocked {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// SetPersona переключает стиль и возвращает выбранную персону (неизвестный id даёт default).
// Пока обмен в полёте, стиль не меняется: ответ должен лечь в историю той персоны, что его получила.
func (c *Companion) SetPersona(id string) (persona.Persona, error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Warnw("Смена стиля отклонена: идёт запрос", "persona", id)
		return c.state.Persona(), ErrBusy
	}
	defer c.busy.Store(false)

	c.state.SetPersona(id)
	p := c.state.Persona()
	if !c.catalog.Known(id) {
		c.renderer.ShowNotification(fmt.Sprintf("Неизвестный стиль %q, выбран %s.", id, p.Label()), notify.Warning)
	} else {
		c.renderer.ShowNotification("Стиль изменён: "+p.Label(), notify.Success)
	}
	c.logger.Infow("Персона переключена", "persona", p.ID)
	return p, nil
}

// Clear очищает историю и экран. Во время обмена возвращает ErrBusy.
func (c *Companion) Clear() error {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Warnw("Очистка отклонена: идёт запрос")
		return ErrBusy
	}
	defer c.busy.Store(false)

	c.state.Clear()
	c.renderer.ClearView()
	c.renderer.UpdateHistoryGauge(0, c.state.Max())
	c.renderer.ShowNotification("История диалога очищена.", notify.Success)
	c.logger.Infow("История очищена")
	return nil
}

// SetCredential сохраняет ключ API. Пустой ключ удаляет сохранённый.
func (c *Companion) SetCredential(key string) error {
	key = strings.TrimSpace(key)
	if err := c.state.SetCredential(key); err != nil {
		c.logger.Warnw("Не удалось сохранить ключ API", "error", err)
		c.renderer.ShowNotification("Не удалось сохранить ключ API.", notify.Error)
		return fmt.Errorf("save credential: %w", err)
	}
	if key == "" {
		c.renderer.ShowNotification("Ключ API удалён.", notify.Info)
		c.renderer.RequestCredential()
		return nil
	}
	c.renderer.ShowNotification("Ключ API сохранён.", notify.Success)
	return nil
}

func (c *Companion) Personas() []persona.Persona { return c.catalog.List() }

func (c *Companion) Info() Info {
	_, hasKey := c.state.Credential()
	return Info{
		Persona:       c.state.Persona(),
		HistoryLen:    c.state.Len(),
		HistoryMax:    c.state.Max(),
		HasCredential: hasKey,
		HasJournal:    c.journal != nil,
	}
}

// Stats возвращает сводку журнала; без журнала — ErrNoJournal.
func (c *Companion) Stats(ctx context.Context) (storage.Stats, error) {
	if c.journal == nil {
		return storage.Stats{}, ErrNoJournal
	}
	return c.journal.Stats(ctx)
}

func userMessage(err error) string {
	if apiErr, ok := ai.AsAPIError(err); ok {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ai.ErrNoCredential):
		return "Сначала укажите API ключ Gemini."
	case errors.Is(err, context.Canceled):
		return "Запрос отменён."
	case errors.Is(err, context.DeadlineExceeded):
		return "Запрос занял слишком много времени. Попробуйте снова."
	default:
		return "Произошла ошибка при обработке сообщения. Попробуйте позже."
	}
}
