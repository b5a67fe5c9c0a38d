package notify

import "GeminiChat/internal/adapter/localconversation"

// Severity — уровень уведомления.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Renderer — всё, что контроллер диалога умеет показать пользователю.
// Реализации: терминал и веб-страница через websocket.
type Renderer interface {
	RenderTurn(role localconversation.Role, text string)
	ShowNotification(text string, severity Severity)
	SetInputEnabled(enabled bool)
	SetBusyIndicator(busy bool)
	UpdateHistoryGauge(count, max int)
	ClearView()
	RequestCredential()
}

// Nop ничего не показывает. Нужен для cmd/ping и тестов.
type Nop struct{}

func (Nop) RenderTurn(localconversation.Role, string) {}
func (Nop) ShowNotification(string, Severity)         {}
func (Nop) SetInputEnabled(bool)                      {}
func (Nop) SetBusyIndicator(bool)                     {}
func (Nop) UpdateHistoryGauge(int, int)               {}
func (Nop) ClearView()                                {}
func (Nop) RequestCredential()                        {}
