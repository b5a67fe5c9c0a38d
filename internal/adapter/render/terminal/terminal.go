package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"GeminiChat/internal/adapter/localconversation"
	"GeminiChat/internal/service/notify"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	modelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// Options настраивают вывод.
type Options struct {
	// Markdown включает разметку ответов через glamour.
	Markdown bool
	// Style — стиль glamour; пусто — автоопределение по терминалу.
	Style    string
	WordWrap int
}

// Renderer печатает диалог в терминал. Ответы модели рендерятся как markdown.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
	md  *glamour.TermRenderer

	credentialRequested atomic.Bool
}

func New(out io.Writer, opts Options) *Renderer {
	r := &Renderer{out: out}
	if !opts.Markdown {
		return r
	}
	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err == nil {
		r.md = md
	}
	return r
}

func (r *Renderer) RenderTurn(role localconversation.Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch role {
	case localconversation.RoleUser:
		fmt.Fprintf(r.out, "%s %s\n", userStyle.Render("Вы:"), text)
	default:
		fmt.Fprintf(r.out, "%s\n%s\n", modelStyle.Render("Gemini:"), r.markdown(text))
	}
}

func (r *Renderer) markdown(text string) string {
	if r.md == nil {
		return text
	}
	rendered, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func (r *Renderer) ShowNotification(text string, severity notify.Severity) {
	var line string
	switch severity {
	case notify.Success:
		line = successStyle.Render("✓ " + text)
	case notify.Warning:
		line = warningStyle.Render("! " + text)
	case notify.Error:
		line = errorStyle.Render("✗ " + text)
	default:
		line = infoStyle.Render(text)
	}
	r.println(line)
}

// Ввод в REPL синхронный, блокировать нечего.
func (r *Renderer) SetInputEnabled(bool) {}

func (r *Renderer) SetBusyIndicator(busy bool) {
	if busy {
		r.println(dimStyle.Render("Gemini думает..."))
	}
}

func (r *Renderer) UpdateHistoryGauge(count, max int) {
	r.println(dimStyle.Render(fmt.Sprintf("История: %d/%d", count, max)))
}

func (r *Renderer) ClearView() {
	r.mu.Lock()
	defer r.mu.Unlock()
	// ANSI: очистить экран и курсор в начало
	fmt.Fprint(r.out, "\033[H\033[2J")
}

func (r *Renderer) RequestCredential() {
	r.credentialRequested.Store(true)
	r.println(warningStyle.Render("Нужен API ключ Gemini: введите его сейчас или командой /key <ключ>."))
}

// TakeCredentialRequest возвращает true один раз после RequestCredential.
func (r *Renderer) TakeCredentialRequest() bool {
	return r.credentialRequested.Swap(false)
}

// Println печатает произвольную строку (справка, сводки команд).
func (r *Renderer) Println(s string) { r.println(s) }

func (r *Renderer) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, s)
}
