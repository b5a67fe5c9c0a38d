package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// До 5 МБ JSON в ответе
const maxResponseBytes = 5 << 20

// GeminiClient отправляет запросы в generateContent, ключ передаётся параметром ?key=.
type GeminiClient struct {
	http     *http.Client
	endpoint string
	logger   *zap.SugaredLogger
}

func NewGeminiClient(endpoint string, timeout time.Duration, logger *zap.SugaredLogger) *GeminiClient {
	return &GeminiClient{
		http:     &http.Client{Timeout: timeout},
		endpoint: endpoint,
		logger:   logger,
	}
}

func (c *GeminiClient) SendRequest(ctx context.Context, req *Request, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", ErrNoCredential
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	target, err := withKey(c.endpoint, credential)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Errorw("Ошибка запроса к Gemini", "took", time.Since(started).String(), "error", redact(err, credential))
		return "", transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &APIError{Status: resp.StatusCode, Message: msgNetwork, Err: err}
	}

	c.logger.Infow("Gemini request completed", "status", resp.StatusCode, "took", time.Since(started).String(), "contents", len(req.Contents))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
		if msg == "" {
			msg = fallbackMessage(resp.StatusCode)
		}
		c.logger.Warnw("Gemini вернул ошибку", "status", resp.StatusCode, "message", msg)
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}

	return extractText(raw)
}

// extractText возвращает candidates[0].content.parts[0].text.
func extractText(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &APIError{Message: msgUnexpectedFormat, Err: errors.New("invalid json in response")}
	}
	text := gjson.GetBytes(raw, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.Type != gjson.String {
		return "", &APIError{Message: msgUnexpectedFormat, Err: errors.New("no candidates[0].content.parts[0].text in response")}
	}
	return text.String(), nil
}

func withKey(endpoint, key string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("gemini endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func transportError(err error) *APIError {
	msg := msgNetwork
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		msg = msgTimeout
	}
	return &APIError{Message: msg, Err: err}
}

// redact убирает ключ из текста ошибки (url.Error содержит полный адрес).
func redact(err error, key string) string {
	return strings.ReplaceAll(err.Error(), url.QueryEscape(key), "***")
}
