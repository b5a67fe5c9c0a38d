package persona

import (
	"strings"
	"sync"
)

// ID — идентификатор стиля общения. Набор закрыт: см. константы ниже.
type ID string

const (
	Default      ID = "default"
	Poet         ID = "poet"
	Teacher      ID = "teacher"
	Friend       ID = "friend"
	Professional ID = "professional"
)

// DefaultAcknowledgment — ответ модели на преамбулу персоны.
const DefaultAcknowledgment = "Понял! Буду следовать этому стилю."

// Persona описывает стиль: отображаемое имя, описание, иконку и преамбулу,
// которая уходит в запрос первой репликой пользователя.
type Persona struct {
	ID          ID
	Name        string
	Description string
	Icon        string
	Preamble    string
}

// Label — строка для показа пользователю, напр. "🎭 Поэт".
func (p Persona) Label() string {
	if p.Icon == "" {
		return p.Name
	}
	return p.Icon + " " + p.Name
}

var builtin = []Persona{
	{
		ID:          Default,
		Name:        "Стандартный",
		Description: "Дружелюбный и полезный ассистент",
		Icon:        "🤖",
		Preamble:    "Ты — дружелюбный и полезный ИИ-ассистент. Отвечай на русском языке просто и понятно. Будь вежливым и терпеливым. Помогай решать любые вопросы.",
	},
	{
		ID:          Poet,
		Name:        "Поэт",
		Description: "Отвечает в стихотворной форме",
		Icon:        "🎭",
		Preamble:    "Ты — поэт. Отвечай на русском языке в стихотворной форме. Используй красивые метафоры и рифмы. Будь творческим и вдохновляющим.",
	},
	{
		ID:          Teacher,
		Name:        "Учитель",
		Description: "Объясняет сложные вещи пошагово",
		Icon:        "👨‍🏫",
		Preamble:    "Ты — учитель. Отвечай на русском языке просто и понятно, объясняй сложные вещи пошагово. Будь терпеливым и поддерживающим.",
	},
	{
		ID:          Friend,
		Name:        "Друг",
		Description: "Неформальное общение с юмором",
		Icon:        "👫",
		Preamble:    "Ты — лучший друг. Отвечай на русском языке неформально, дружелюбно, с юмором. Используй эмодзи и будь поддерживающим.",
	},
	{
		ID:          Professional,
		Name:        "Профессионал",
		Description: "Формальные и структурированные ответы",
		Icon:        "👔",
		Preamble:    "Ты — профессиональный консультант. Отвечай на русском языке формально, по делу, структурированно. Давай точную и полезную информацию.",
	},
}

// Catalog — потокобезопасный справочник персон.
type Catalog struct {
	mu       sync.RWMutex
	order    []ID
	personas map[ID]Persona
	ack      string
}

// NewCatalog создаёт справочник со встроенными персонами.
func NewCatalog() *Catalog {
	c := &Catalog{
		order:    make([]ID, 0, len(builtin)),
		personas: make(map[ID]Persona, len(builtin)),
		ack:      DefaultAcknowledgment,
	}
	for _, p := range builtin {
		c.order = append(c.order, p.ID)
		c.personas[p.ID] = p
	}
	return c
}

// Known сообщает, входит ли id в набор.
func (c *Catalog) Known(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.personas[normalize(id)]
	return ok
}

// Resolve возвращает персону по id; неизвестный id даёт Default.
func (c *Catalog) Resolve(id string) Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.personas[normalize(id)]; ok {
		return p
	}
	return c.personas[Default]
}

// List возвращает персоны в фиксированном порядке.
func (c *Catalog) List() []Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.personas[id])
	}
	return out
}

// Acknowledgment — текст синтетического ответа модели на преамбулу.
func (c *Catalog) Acknowledgment() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ack
}

func normalize(id string) ID {
	return ID(strings.ToLower(strings.TrimSpace(id)))
}
