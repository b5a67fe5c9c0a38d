package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError — удалённый вызов завершился неуспешно либо ответ не удалось разобрать.
// Message предназначено для показа пользователю.
type APIError struct {
	Status  int // HTTP статус; 0 — сетевой сбой или ошибка разбора
	Message string
	Err     error // исходная ошибка, если была
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// ErrNoCredential — ключ API не задан, запрос не отправляется.
var ErrNoCredential = errors.New("api key is not set")

// Тексты ошибок для пользователя
const (
	msgUnexpectedFormat = "Извините, произошла ошибка при обработке ответа от ИИ."
	msgBadRequest       = "Извините, запрос некорректен. Попробуйте переформулировать вопрос."
	msgForbidden        = "Доступ к API запрещен. Проверьте настройки."
	msgTooManyRequests  = "Слишком много запросов. Подождите немного и попробуйте снова."
	msgNetwork          = "Проблемы с сетевым подключением. Проверьте интернет и попробуйте снова."
	msgTimeout          = "Запрос занял слишком много времени. Попробуйте снова."
)

// fallbackMessage — текст ошибки, когда API не вернул error.message.
func fallbackMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return msgBadRequest
	case http.StatusForbidden:
		return msgForbidden
	case http.StatusTooManyRequests:
		return msgTooManyRequests
	default:
		return fmt.Sprintf("Ошибка сервера (%d). Попробуйте позже.", status)
	}
}

// AsAPIError достаёт *APIError из цепочки ошибок.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
