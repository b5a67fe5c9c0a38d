package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ClosedSet(t *testing.T) {
	c := NewCatalog()

	ids := make([]ID, 0)
	for _, p := range c.List() {
		ids = append(ids, p.ID)
		assert.NotEmpty(t, p.Preamble, p.ID)
		assert.NotEmpty(t, p.Name, p.ID)
	}
	assert.Equal(t, []ID{Default, Poet, Teacher, Friend, Professional}, ids)
}

func TestCatalog_ResolveFallsBackToDefault(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, Friend, c.Resolve("friend").ID)
	assert.Equal(t, Poet, c.Resolve("  POET ").ID)
	assert.Equal(t, Default, c.Resolve("pirate").ID)
	assert.Equal(t, Default, c.Resolve("").ID)

	assert.True(t, c.Known("teacher"))
	assert.False(t, c.Known("pirate"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "🎭 Поэт", NewCatalog().Resolve("poet").Label())
	assert.Equal(t, "X", Persona{Name: "X"}.Label())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
acknowledgment = "Договорились."

[personas.poet]
name = "Бард"
preamble = "Ты — бард."

[personas.pirate]
name = "Пират"
preamble = "Йо-хо-хо"
`), 0o600))

	c := NewCatalog()
	ignored, err := c.LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pirate"}, ignored)

	poet := c.Resolve("poet")
	assert.Equal(t, "Бард", poet.Name)
	assert.Equal(t, "Ты — бард.", poet.Preamble)
	assert.Equal(t, "Отвечает в стихотворной форме", poet.Description)
	assert.Equal(t, "Договорились.", c.Acknowledgment())

	assert.False(t, c.Known("pirate"))
	assert.Len(t, c.List(), 5)
}

func TestLoadOverrides_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("personas = ["), 0o600))

	_, err := NewCatalog().LoadOverrides(path)
	assert.Error(t, err)

	_, err = NewCatalog().LoadOverrides(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
