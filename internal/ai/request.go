package ai

import "GeminiChat/internal/adapter/localconversation"

// Part — фрагмент содержимого реплики.
type Part struct {
	Text string `json:"text"`
}

// Content — реплика в формате generateContent.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerationConfig — параметры генерации, одинаковые для всех запросов.
type GenerationConfig struct {
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	TopP            float64  `json:"topP"`
	TopK            int      `json:"topK"`
	CandidateCount  int      `json:"candidateCount"`
	StopSequences   []string `json:"stopSequences"`
}

// SafetySetting — порог блокировки для одной категории контента.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Категории фильтров безопасности
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// SafetySettings возвращает четыре категории с общим порогом.
func SafetySettings(threshold string) []SafetySetting {
	categories := []string{
		HarmCategoryHarassment,
		HarmCategoryHateSpeech,
		HarmCategorySexuallyExplicit,
		HarmCategoryDangerousContent,
	}
	out := make([]SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, SafetySetting{Category: c, Threshold: threshold})
	}
	return out
}

// Settings — статическая часть запроса: генерация, фильтры и текст
// синтетического ответа модели на преамбулу.
type Settings struct {
	Generation     GenerationConfig
	Safety         []SafetySetting
	Acknowledgment string
}

// Request — тело запроса generateContent.
type Request struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings"`
}

// LastUserText возвращает текст последней реплики пользователя.
func (r *Request) LastUserText() string {
	for i := len(r.Contents) - 1; i >= 0; i-- {
		c := r.Contents[i]
		if c.Role == string(localconversation.RoleUser) && len(c.Parts) > 0 {
			return c.Parts[0].Text
		}
	}
	return ""
}

// BuildRequest собирает запрос: преамбула персоны (user), подтверждение (model),
// история по порядку и новое сообщение пользователя. Длина contents всегда
// 2 + len(history) + 1.
func BuildRequest(history []localconversation.Turn, preamble string, text string, s Settings) *Request {
	contents := make([]Content, 0, len(history)+3)
	contents = append(contents,
		textContent(localconversation.RoleUser, preamble),
		textContent(localconversation.RoleModel, s.Acknowledgment),
	)
	for _, t := range history {
		contents = append(contents, textContent(t.Role, t.Text))
	}
	contents = append(contents, textContent(localconversation.RoleUser, text))

	gen := s.Generation
	if gen.StopSequences == nil {
		gen.StopSequences = []string{}
	}
	safety := make([]SafetySetting, len(s.Safety))
	copy(safety, s.Safety)

	return &Request{
		Contents:         contents,
		GenerationConfig: gen,
		SafetySettings:   safety,
	}
}

func textContent(role localconversation.Role, text string) Content {
	return Content{Role: string(role), Parts: []Part{{Text: text}}}
}
