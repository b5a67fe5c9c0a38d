package web

import (
	"sync"
	"time"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/persona"
	"GeminiChat/internal/service/notify"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Типы сообщений сервер → браузер
const (
	outTurn         = "turn"
	outNotification = "notification"
	outInput        = "input"
	outBusy         = "busy"
	outGauge        = "gauge"
	outClear        = "clear"
	outCredential   = "credential"
	outPersonas     = "personas"
)

type gauge struct {
	Count int `json:"count"`
	Max   int `json:"max"`
}

type personaView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Active      bool   `json:"active"`
}

type outbound struct {
	Type     string        `json:"type"`
	Role     string        `json:"role,omitempty"`
	Text     string        `json:"text,omitempty"`
	Severity string        `json:"severity,omitempty"`
	Value    *bool         `json:"value,omitempty"`
	Gauge    *gauge        `json:"gauge,omitempty"`
	Personas []personaView `json:"personas,omitempty"`
}

func boolPtr(v bool) *bool { return &v }

// client — одно websocket-соединение. Реализует notify.Renderer только для себя.
type client struct {
	id     string
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

func newClient(conn *websocket.Conn, logger *zap.SugaredLogger) *client {
	return &client{id: uuid.NewString(), conn: conn, logger: logger}
}

func (c *client) write(msg outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debugw("Не удалось отправить сообщение клиенту", "client", c.id, "type", msg.Type, "error", err)
	}
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *client) RenderTurn(role localconversation.Role, text string) {
	c.write(outbound{Type: outTurn, Role: string(role), Text: text})
}

func (c *client) ShowNotification(text string, severity notify.Severity) {
	c.write(outbound{Type: outNotification, Text: text, Severity: string(severity)})
}

func (c *client) SetInputEnabled(enabled bool) {
	c.write(outbound{Type: outInput, Value: boolPtr(enabled)})
}

func (c *client) SetBusyIndicator(busy bool) {
	c.write(outbound{Type: outBusy, Value: boolPtr(busy)})
}

func (c *client) UpdateHistoryGauge(count, max int) {
	c.write(outbound{Type: outGauge, Gauge: &gauge{Count: count, Max: max}})
}

func (c *client) ClearView()         { c.write(outbound{Type: outClear}) }
func (c *client) RequestCredential() { c.write(outbound{Type: outCredential}) }

func (c *client) sendPersonas(list []persona.Persona, active persona.ID) {
	c.write(outbound{Type: outPersonas, Personas: personaViews(list, active)})
}

func personaViews(list []persona.Persona, active persona.ID) []personaView {
	out := make([]personaView, 0, len(list))
	for _, p := range list {
		out = append(out, personaView{
			ID:          string(p.ID),
			Name:        p.Name,
			Description: p.Description,
			Icon:        p.Icon,
			Active:      p.ID == active,
		})
	}
	return out
}

// Hub рассылает всё, что показывает контроллер, всем открытым вкладкам.
// Все вкладки видят один и тот же диалог.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{clients: make(map[string]*client), logger: logger}
}

var _ notify.Renderer = (*Hub)(nil)

func (h *Hub) add(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	return len(h.clients)
}

func (h *Hub) remove(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	return len(h.clients)
}

// Len — число подключённых клиентов.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) each(fn func(c *client)) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		fn(c)
	}
}

func (h *Hub) RenderTurn(role localconversation.Role, text string) {
	h.each(func(c *client) { c.RenderTurn(role, text) })
}

func (h *Hub) ShowNotification(text string, severity notify.Severity) {
	h.each(func(c *client) { c.ShowNotification(text, severity) })
}

func (h *Hub) SetInputEnabled(enabled bool) {
	h.each(func(c *client) { c.SetInputEnabled(enabled) })
}

func (h *Hub) SetBusyIndicator(busy bool) {
	h.each(func(c *client) { c.SetBusyIndicator(busy) })
}

func (h *Hub) UpdateHistoryGauge(count, max int) {
	h.each(func(c *client) { c.UpdateHistoryGauge(count, max) })
}

func (h *Hub) ClearView()         { h.each(func(c *client) { c.ClearView() }) }
func (h *Hub) RequestCredential() { h.each(func(c *client) { c.RequestCredential() }) }

func (h *Hub) broadcastPersonas(list []persona.Persona, active persona.ID) {
	h.each(func(c *client) { c.sendPersonas(list, active) })
}
