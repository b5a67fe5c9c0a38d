package terminal

import (
	"bytes"
	"testing"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/service/notify"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_PlainText(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{})

	r.RenderTurn(localconversation.RoleUser, "Hello")
	r.RenderTurn(localconversation.RoleModel, "**Hi** there")
	r.ShowNotification("quota exceeded", notify.Error)
	r.UpdateHistoryGauge(2, 20)

	out := buf.String()
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "**Hi** there")
	assert.Contains(t, out, "quota exceeded")
	assert.Contains(t, out, "2/20")
}

func TestRenderer_Markdown(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{Markdown: true, Style: "notty", WordWrap: 60})

	r.RenderTurn(localconversation.RoleModel, "# Заголовок\n\n* пункт")

	out := buf.String()
	assert.Contains(t, out, "Заголовок")
	assert.Contains(t, out, "пункт")
}

func TestRenderer_CredentialRequest(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{})

	assert.False(t, r.TakeCredentialRequest())
	r.RequestCredential()
	assert.True(t, r.TakeCredentialRequest())
	assert.False(t, r.TakeCredentialRequest())
}

var _ notify.Renderer = (*Renderer)(nil)
