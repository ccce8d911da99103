package view

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"

	"github.com/marcin-skalski/review-bridge/internal/board"
)

func TestRenderBoard(t *testing.T) {
	lists := []board.ListSnapshot{
		{Role: board.InProgress, ID: "l1", Name: "In progress", Cards: []board.Card{
			{ID: "c1", Name: "[widgets] Add frobnicator"},
			{ID: "c2", Name: "[widgets] Fix the thing (+1)"},
		}},
		{Role: board.Blocked, ID: "l6", Name: "Blocked", Closed: true},
	}

	out := RenderBoard("board1", lists)

	assert.Contains(t, out, "board board1")
	assert.Contains(t, out, "2 lists")
	assert.Contains(t, out, "2 cards")
	assert.Contains(t, out, "In progress (in_progress) [2]")
	assert.Contains(t, out, "[widgets] Add frobnicator")
	assert.Contains(t, out, "(+1)")
	assert.Contains(t, out, "c2")
	assert.Contains(t, out, "Blocked (blocked) [0] closed")
	assert.NotContains(t, out, "[2] closed")
	assert.Contains(t, out, "(no cards)")
	assert.Less(t, strings.Index(out, "In progress"), strings.Index(out, "Blocked"))
}

func TestRenderBoard_Empty(t *testing.T) {
	out := RenderBoard("board1", nil)
	assert.Contains(t, out, "(board not resolved)")
}

func TestTruncate(t *testing.T) {
	short := "[widgets] Add frobnicator"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("界", 40)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, runewidth.StringWidth(got), maxTitleWidth)
}
