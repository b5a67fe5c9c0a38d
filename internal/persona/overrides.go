package persona

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Файл переопределений, пример:
//
//	acknowledgment = "Хорошо, договорились."
//
//	[personas.poet]
//	name = "Бард"
//	preamble = "Ты — бард..."
//
// Менять можно только тексты известных персон; новые id не добавляются.
type overridesFile struct {
	Acknowledgment string              `toml:"acknowledgment"`
	Personas       map[string]override `toml:"personas"`
}

type override struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Icon        string `toml:"icon"`
	Preamble    string `toml:"preamble"`
}

// LoadOverrides применяет TOML-файл к справочнику. Возвращает id из файла,
// которые были проигнорированы как неизвестные.
func (c *Catalog) LoadOverrides(path string) ([]string, error) {
	var f overridesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("persona overrides %s: %w", path, err)
	}
	return c.apply(f), nil
}

func (c *Catalog) apply(f overridesFile) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ack := strings.TrimSpace(f.Acknowledgment); ack != "" {
		c.ack = ack
	}
	var ignored []string
	for rawID, o := range f.Personas {
		id := normalize(rawID)
		p, ok := c.personas[id]
		if !ok {
			ignored = append(ignored, rawID)
			continue
		}
		p.Name = pick(o.Name, p.Name)
		p.Description = pick(o.Description, p.Description)
		p.Icon = pick(o.Icon, p.Icon)
		p.Preamble = pick(o.Preamble, p.Preamble)
		c.personas[id] = p
	}
	return ignored
}

func pick(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
