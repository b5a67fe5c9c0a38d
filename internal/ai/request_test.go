package ai

import (
	"encoding/json"
	"testing"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/config"
	"GeminiChat/internal/persona"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	return SettingsFromConfig(config.Defaults().Gemini, persona.DefaultAcknowledgment)
}

func TestBuildRequest_FriendHello(t *testing.T) {
	friend := persona.NewCatalog().Resolve("friend")

	req := BuildRequest(nil, friend.Preamble, "Hello", testSettings())

	assert.Equal(t, []Content{
		{Role: "user", Parts: []Part{{Text: friend.Preamble}}},
		{Role: "model", Parts: []Part{{Text: persona.DefaultAcknowledgment}}},
		{Role: "user", Parts: []Part{{Text: "Hello"}}},
	}, req.Contents)
	assert.Equal(t, "Hello", req.LastUserText())
}

func TestBuildRequest_LengthAndPrefix(t *testing.T) {
	catalog := persona.NewCatalog()
	history := []localconversation.Turn{
		localconversation.UserTurn("q1"), localconversation.ModelTurn("a1"),
		localconversation.UserTurn("q2"), localconversation.ModelTurn("a2"),
	}

	for _, p := range catalog.List() {
		for n := 0; n <= len(history); n++ {
			req := BuildRequest(history[:n], p.Preamble, "next", testSettings())

			require.Len(t, req.Contents, 2+n+1)
			assert.Equal(t, "user", req.Contents[0].Role)
			assert.Equal(t, p.Preamble, req.Contents[0].Parts[0].Text)
			assert.Equal(t, "model", req.Contents[1].Role)
			assert.Equal(t, persona.DefaultAcknowledgment, req.Contents[1].Parts[0].Text)
			for i, turn := range history[:n] {
				assert.Equal(t, string(turn.Role), req.Contents[2+i].Role)
				assert.Equal(t, turn.Text, req.Contents[2+i].Parts[0].Text)
			}
			last := req.Contents[len(req.Contents)-1]
			assert.Equal(t, "user", last.Role)
			assert.Equal(t, "next", last.Parts[0].Text)
		}
	}
}

func TestBuildRequest_StaticParameters(t *testing.T) {
	req := BuildRequest(nil, "p", "x", testSettings())

	assert.Equal(t, 0.7, req.GenerationConfig.Temperature)
	assert.Equal(t, 2048, req.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 0.8, req.GenerationConfig.TopP)
	assert.Equal(t, 40, req.GenerationConfig.TopK)
	assert.Equal(t, 1, req.GenerationConfig.CandidateCount)

	require.Len(t, req.SafetySettings, 4)
	for _, s := range req.SafetySettings {
		assert.Equal(t, "BLOCK_MEDIUM_AND_ABOVE", s.Threshold)
	}
	assert.Equal(t, HarmCategoryHarassment, req.SafetySettings[0].Category)
	assert.Equal(t, HarmCategoryDangerousContent, req.SafetySettings[3].Category)
}

func TestBuildRequest_WireFormat(t *testing.T) {
	req := BuildRequest([]localconversation.Turn{localconversation.UserTurn("q"), localconversation.ModelTurn("a")}, "p", "x", testSettings())

	b, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Len(t, decoded, 3)
	assert.Contains(t, decoded, "contents")
	assert.Contains(t, decoded, "generationConfig")
	assert.Contains(t, decoded, "safetySettings")

	var gen map[string]any
	require.NoError(t, json.Unmarshal(decoded["generationConfig"], &gen))
	assert.Equal(t, []any{}, gen["stopSequences"])
	assert.EqualValues(t, 40, gen["topK"])
}

func TestBuildRequest_DoesNotAliasSettings(t *testing.T) {
	s := testSettings()
	req := BuildRequest(nil, "p", "x", s)
	req.SafetySettings[0].Threshold = "BLOCK_NONE"
	assert.Equal(t, "BLOCK_MEDIUM_AND_ABOVE", s.Safety[0].Threshold)
}
