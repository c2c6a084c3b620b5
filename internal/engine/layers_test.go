package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayersTopFirst(t *testing.T) {
	e := newTestEditor(t, Options{})
	a := addZone(e, 0, 0, 10, 10)
	b := addZone(e, 0, 0, 10, 10)

	layers := e.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, b, layers[0].ID)
	assert.True(t, layers[0].Selected)
	assert.Equal(t, a, layers[1].ID)
	assert.False(t, layers[1].Selected)
}

func TestMoveLayer(t *testing.T) {
	e := newTestEditor(t, Options{})
	a := addZone(e, 0, 0, 10, 10)
	b := addZone(e, 0, 0, 10, 10)
	c := addZone(e, 0, 0, 10, 10)

	require.True(t, e.MoveLayer(c, 0))
	assert.Equal(t, []string{c, a, b}, e.Document().ElementOrder)
	assert.Equal(t, 0, e.Document().Elements[c].ZIndex)
	assert.Equal(t, 2, e.Document().Elements[b].ZIndex)

	require.True(t, e.MoveLayer(c, 99))
	assert.Equal(t, []string{a, b, c}, e.Document().ElementOrder)

	assert.False(t, e.MoveLayer(c, 2))
	assert.False(t, e.MoveLayer("ghost", 0))

	require.True(t, e.SendToBack(b))
	assert.Equal(t, []string{b, a, c}, e.Document().ElementOrder)
	assert.Equal(t, "reorder", e.Document().History[e.Document().HistoryIndex].Action)
}

func TestVisibilityAndLockSkipHistory(t *testing.T) {
	e := newTestEditor(t, Options{})
	a := addZone(e, 0, 0, 10, 10)
	historyLen := len(e.Document().History)

	require.True(t, e.SetVisibility(a, false))
	require.True(t, e.SetLocked(a, true))

	el, _ := e.Element(a)
	assert.False(t, el.IsVisible)
	assert.True(t, el.IsLocked)
	assert.Len(t, e.Document().History, historyLen)
	assert.False(t, e.SetVisibility("ghost", true))
}
