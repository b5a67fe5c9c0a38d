package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeminiClient(srv.URL+"/v1beta/models/test:generateContent", 5*time.Second, zap.NewNop().Sugar())
}

func TestGeminiClient_Success(t *testing.T) {
	var gotKey, gotPath string
	var gotBody Request
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi there"}]}}]}`))
	})

	req := BuildRequest(nil, "preamble", "Hello", testSettings())
	reply, err := client.SendRequest(context.Background(), req, "secret-key")

	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "/v1beta/models/test:generateContent", gotPath)
	assert.Equal(t, req.Contents, gotBody.Contents)
}

func TestGeminiClient_ErrorMessageFromPayload(t *testing.T) {
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.SendRequest(context.Background(), BuildRequest(nil, "p", "x", testSettings()), "k")

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "quota exceeded", apiErr.Error())
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestGeminiClient_FallbackMessage(t *testing.T) {
	for status, want := range map[int]string{
		http.StatusBadRequest:          msgBadRequest,
		http.StatusForbidden:           msgForbidden,
		http.StatusTooManyRequests:     msgTooManyRequests,
		http.StatusInternalServerError: "Ошибка сервера (500). Попробуйте позже.",
	} {
		client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`upstream is sad`))
		})

		_, err := client.SendRequest(context.Background(), BuildRequest(nil, "p", "x", testSettings()), "k")

		apiErr, ok := AsAPIError(err)
		require.True(t, ok, status)
		assert.Equal(t, want, apiErr.Message, status)
	}
}

func TestGeminiClient_MalformedSuccess(t *testing.T) {
	for _, body := range []string{
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"finishReason":"SAFETY"}]}`,
		`{"candidates":[{"content":{"parts":[{"text":42}]}}]}`,
		`not json`,
	} {
		client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		_, err := client.SendRequest(context.Background(), BuildRequest(nil, "p", "x", testSettings()), "k")

		apiErr, ok := AsAPIError(err)
		require.True(t, ok, body)
		assert.Equal(t, msgUnexpectedFormat, apiErr.Message, body)
	}
}

func TestGeminiClient_NoCredentialNoCall(t *testing.T) {
	called := false
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.SendRequest(context.Background(), BuildRequest(nil, "p", "x", testSettings()), "  ")

	assert.ErrorIs(t, err, ErrNoCredential)
	assert.False(t, called)
}

func TestGeminiClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := NewGeminiClient(endpoint, time.Second, zap.NewNop().Sugar())
	_, err := client.SendRequest(context.Background(), BuildRequest(nil, "p", "x", testSettings()), "k")

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, msgNetwork, apiErr.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestPing(t *testing.T) {
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 3)
		assert.Equal(t, PingPrompt, req.Contents[2].Parts[0].Text)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"pong"}]}}]}`))
	})

	reply, err := Ping(context.Background(), client, "k", "p", testSettings())
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	_, err = Ping(context.Background(), client, "", "p", testSettings())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestStubClient(t *testing.T) {
	reply, err := NewStubClient().SendRequest(context.Background(), BuildRequest(nil, "p", "Hello", testSettings()), "")
	require.NoError(t, err)
	assert.Equal(t, "запрос получен: Hello", reply)
}
