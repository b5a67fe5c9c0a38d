package state

import (
	"encoding/json"
	"strings"
	"sync"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/adapter/storage"
	"GeminiChat/internal/persona"

	"go.uber.org/zap"
)

// Ключи в хранилище
const (
	CredentialKey = "gemini_api_key"
	SnapshotKey   = "chat_state"
)

// snapshot — то, что лежит под SnapshotKey. Ключ API сюда не попадает.
type snapshot struct {
	History   []localconversation.Turn `json:"history"`
	PersonaID string                   `json:"personaId"`
}

// Manager — потокобезопасное состояние диалога: история, активная персона и ключ.
// Любое изменение сразу сохраняется; ошибки записи только логируются.
type Manager struct {
	mu      sync.Mutex
	store   storage.Store
	catalog *persona.Catalog
	conv    *localconversation.LocalConversation
	persona persona.ID
	logger  *zap.SugaredLogger
}

func New(store storage.Store, catalog *persona.Catalog, maxHistory int, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		store:   store,
		catalog: catalog,
		conv:    localconversation.New(maxHistory),
		persona: persona.Default,
		logger:  logger,
	}
}

// AppendExchange добавляет реплику пользователя и ответ модели.
func (m *Manager) AppendExchange(userText, modelText string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv.Append(localconversation.UserTurn(userText), localconversation.ModelTurn(modelText))
	m.saveLocked()
}

// SetPersona переключает персону; неизвестный id даёт default. Возвращает отображаемое имя.
func (m *Manager) SetPersona(id string) string {
	p := m.catalog.Resolve(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.persona = p.ID
	m.saveLocked()
	return p.Name
}

// Clear очищает историю. Персона и ключ не трогаются.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv.Reset()
	m.saveLocked()
}

// Load восстанавливает состояние из хранилища и возвращает пары для повторного показа.
// Отсутствующий или битый снимок даёт пустую историю и default.
func (m *Manager) Load() [][2]localconversation.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conv.Reset()
	m.persona = persona.Default

	snap, ok := m.readSnapshot()
	if !ok {
		return nil
	}

	p := m.catalog.Resolve(snap.PersonaID)
	if snap.PersonaID != "" && !m.catalog.Known(snap.PersonaID) {
		m.logger.Warnw("Неизвестная персона в сохранённом состоянии", "persona", snap.PersonaID)
	}
	m.persona = p.ID

	// Хвост без пары срезаем до окна, иначе окно сдвинет пары на одну реплику.
	history := snap.History
	dropped := false
	if len(history)%2 != 0 {
		history = history[:len(history)-1]
		dropped = true
	}
	m.conv.Replace(history)
	if m.conv.DropIncompleteTail() {
		dropped = true
	}

	if dropped {
		m.logger.Warnw("В истории была реплика без пары, она отброшена", "turns", m.conv.Len())
		m.saveLocked()
	}

	m.logger.Infow("Состояние диалога восстановлено", "turns", m.conv.Len(), "persona", m.persona)
	return m.conv.Pairs()
}

// StoredPersona возвращает персону из сохранённого снимка, ничего не меняя и не записывая.
func (m *Manager) StoredPersona() persona.Persona {
	snap, ok := m.readSnapshot()
	if !ok {
		return m.catalog.Resolve(string(persona.Default))
	}
	return m.catalog.Resolve(snap.PersonaID)
}

func (m *Manager) readSnapshot() (snapshot, bool) {
	raw, ok, err := m.store.Get(SnapshotKey)
	if err != nil {
		m.logger.Warnw("Не удалось прочитать состояние диалога", "error", err)
		return snapshot{}, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return snapshot{}, false
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		m.logger.Warnw("Сохранённое состояние повреждено, начинаем с чистого листа", "error", err)
		return snapshot{}, false
	}
	return snap, true
}

// Save записывает текущее состояние.
func (m *Manager) Save() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLocked()
}

func (m *Manager) saveLocked() {
	data, err := json.Marshal(snapshot{History: m.conv.Turns(), PersonaID: string(m.persona)})
	if err != nil {
		m.logger.Warnw("Не удалось сериализовать состояние", "error", err)
		return
	}
	if err := m.store.Set(SnapshotKey, string(data)); err != nil {
		m.logger.Warnw("Не удалось сохранить состояние", "error", err)
	}
}

// History возвращает копию истории.
func (m *Manager) History() []localconversation.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv.Turns()
}

func (m *Manager) Persona() persona.Persona {
	m.mu.Lock()
	id := m.persona
	m.mu.Unlock()
	return m.catalog.Resolve(string(id))
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv.Len()
}

func (m *Manager) Max() int { return m.conv.Max() }

// Credential возвращает сохранённый ключ API.
func (m *Manager) Credential() (string, bool) {
	v, ok, err := m.store.Get(CredentialKey)
	if err != nil {
		m.logger.Warnw("Не удалось прочитать ключ API", "error", err)
		return "", false
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// SetCredential сохраняет ключ. Пустой ключ равносилен ForgetCredential.
func (m *Manager) SetCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return m.ForgetCredential()
	}
	return m.store.Set(CredentialKey, key)
}

func (m *Manager) ForgetCredential() error {
	return m.store.Remove(CredentialKey)
}
