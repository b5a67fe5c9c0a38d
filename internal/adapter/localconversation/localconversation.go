package localconversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role — автор реплики в диалоге.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool { return r == RoleUser || r == RoleModel }

// Turn — одна реплика диалога. После создания не изменяется.
type Turn struct {
	Role Role
	Text string
}

// UserTurn и ModelTurn — короткие конструкторы реплик.
func UserTurn(text string) Turn  { return Turn{Role: RoleUser, Text: text} }
func ModelTurn(text string) Turn { return Turn{Role: RoleModel, Text: text} }

// wireTurn — форма реплики в хранилище, совпадает с форматом contents API:
// {"role":"user","parts":[{"text":"..."}]}
type wireTurn struct {
	Role  Role       `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text string `json:"text"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTurn{Role: t.Role, Parts: []wirePart{{Text: t.Text}}})
}

func (t *Turn) UnmarshalJSON(b []byte) error {
	var w wireTurn
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if !w.Role.Valid() {
		return fmt.Errorf("unknown turn role %q", w.Role)
	}
	if len(w.Parts) == 0 {
		return errors.New("turn without parts")
	}
	t.Role = w.Role
	t.Text = w.Parts[0].Text
	return nil
}

// DefaultMaxRecords — размер окна истории, если не задан конфигом.
const DefaultMaxRecords = 20

// LocalConversation хранит историю диалога на стороне приложения
// в виде скользящего окна из последних maxRecords реплик.
type LocalConversation struct {
	turns      []Turn
	maxRecords int
}

// New создаёт локальный диалог с ограничением на размер истории.
func New(maxRecords int) *LocalConversation {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &LocalConversation{turns: make([]Turn, 0, maxRecords), maxRecords: maxRecords}
}

// Append добавляет реплики в конец истории и обрезает самые старые сверх лимита.
func (lc *LocalConversation) Append(turns ...Turn) {
	lc.turns = append(lc.turns, turns...)
	if len(lc.turns) > lc.maxRecords {
		// Оставляем последние maxRecords элементов
		kept := make([]Turn, lc.maxRecords, max(lc.maxRecords, cap(lc.turns)))
		copy(kept, lc.turns[len(lc.turns)-lc.maxRecords:])
		lc.turns = kept
	}
}

// Replace заменяет историю целиком (с учётом лимита).
func (lc *LocalConversation) Replace(turns []Turn) {
	lc.turns = lc.turns[:0]
	lc.Append(turns...)
}

// Reset очищает историю.
func (lc *LocalConversation) Reset() {
	lc.turns = make([]Turn, 0, lc.maxRecords)
}

// Turns возвращает копию истории.
func (lc *LocalConversation) Turns() []Turn {
	out := make([]Turn, len(lc.turns))
	copy(out, lc.turns)
	return out
}

func (lc *LocalConversation) Len() int { return len(lc.turns) }

func (lc *LocalConversation) Max() int { return lc.maxRecords }

// Pairs разбивает историю на пары по два элемента подряд.
// Неполная последняя пара не возвращается.
func (lc *LocalConversation) Pairs() [][2]Turn {
	pairs := make([][2]Turn, 0, len(lc.turns)/2)
	for i := 0; i+1 < len(lc.turns); i += 2 {
		pairs = append(pairs, [2]Turn{lc.turns[i], lc.turns[i+1]})
	}
	return pairs
}

// DropIncompleteTail отбрасывает последнюю реплику без пары.
// Возвращает true, если что-то было удалено.
func (lc *LocalConversation) DropIncompleteTail() bool {
	if len(lc.turns)%2 == 0 {
		return false
	}
	lc.turns = lc.turns[:len(lc.turns)-1]
	return true
}
