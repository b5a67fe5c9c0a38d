package localconversation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxRecords, New(0).Max())
	assert.Equal(t, DefaultMaxRecords, New(-3).Max())
	assert.Equal(t, 6, New(6).Max())
}

func TestAppend_KeepsMostRecentWindow(t *testing.T) {
	const bound = 20
	lc := New(bound)

	var all []Turn
	for i := range 15 {
		u := UserTurn(fmt.Sprintf("q%d", i))
		m := ModelTurn(fmt.Sprintf("a%d", i))
		lc.Append(u, m)
		all = append(all, u, m)
	}

	require.Equal(t, bound, lc.Len())
	assert.Equal(t, all[len(all)-bound:], lc.Turns())
	assert.Equal(t, "q5", lc.Turns()[0].Text)
	assert.Equal(t, RoleUser, lc.Turns()[0].Role)
}

func TestAppend_UnderLimitKeepsEverything(t *testing.T) {
	lc := New(4)
	lc.Append(UserTurn("a"), ModelTurn("b"))
	assert.Equal(t, []Turn{UserTurn("a"), ModelTurn("b")}, lc.Turns())
}

func TestAppend_OddLimitDropsSingles(t *testing.T) {
	lc := New(3)
	lc.Append(UserTurn("1"), ModelTurn("2"))
	lc.Append(UserTurn("3"), ModelTurn("4"))
	assert.Equal(t, []Turn{ModelTurn("2"), UserTurn("3"), ModelTurn("4")}, lc.Turns())
}

func TestTurns_ReturnsCopy(t *testing.T) {
	lc := New(4)
	lc.Append(UserTurn("a"))
	got := lc.Turns()
	got[0].Text = "changed"
	assert.Equal(t, "a", lc.Turns()[0].Text)
}

func TestPairs_SkipsIncompleteTail(t *testing.T) {
	lc := New(10)
	lc.Replace([]Turn{UserTurn("q1"), ModelTurn("a1"), UserTurn("q2")})

	pairs := lc.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, [2]Turn{UserTurn("q1"), ModelTurn("a1")}, pairs[0])

	assert.True(t, lc.DropIncompleteTail())
	assert.Equal(t, 2, lc.Len())
	assert.False(t, lc.DropIncompleteTail())
}

func TestReset(t *testing.T) {
	lc := New(4)
	lc.Append(UserTurn("a"), ModelTurn("b"))
	lc.Reset()
	assert.Zero(t, lc.Len())
	assert.Empty(t, lc.Pairs())
}

func TestTurnJSON_WireShape(t *testing.T) {
	b, err := json.Marshal(UserTurn("Hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","parts":[{"text":"Hello"}]}`, string(b))

	var turn Turn
	require.NoError(t, json.Unmarshal([]byte(`{"role":"model","parts":[{"text":"Hi there"},{"text":"ignored"}]}`), &turn))
	assert.Equal(t, ModelTurn("Hi there"), turn)
}

func TestTurnJSON_RejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		`{"role":"system","parts":[{"text":"x"}]}`,
		`{"role":"user","parts":[]}`,
		`{"role":"user"}`,
		`"text"`,
	} {
		var turn Turn
		assert.Error(t, json.Unmarshal([]byte(raw), &turn), raw)
	}
}
