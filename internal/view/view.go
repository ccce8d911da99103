package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/marcin-skalski/review-bridge/internal/board"
)

const maxTitleWidth = 60

// RenderBoard draws the cached lists of a board as a tree, one branch per
// role.
func RenderBoard(boardID string, lists []board.ListSnapshot) string {
	var b strings.Builder

	cardCount := 0
	for _, l := range lists {
		cardCount += len(l.Cards)
	}
	header := fmt.Sprintf("review-bridge │ board %s │ %d lists │ %d cards", boardID, len(lists), cardCount)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if len(lists) == 0 {
		b.WriteString(emptyStyle.Render("  (board not resolved)"))
		b.WriteString("\n")
		return b.String()
	}

	for i, l := range lists {
		isLast := i == len(lists)-1
		prefix, childPrefix := "├─", "│  "
		if isLast {
			prefix, childPrefix = "└─", "   "
		}

		line := fmt.Sprintf("%s %s %s (%s) [%d]", prefix, roleIcon(l.Role), l.Name, l.Role, len(l.Cards))
		if l.Closed {
			line += " closed"
		}
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(roleColor(l.Role)).Render(line))
		b.WriteString("\n")

		if len(l.Cards) == 0 {
			b.WriteString(emptyStyle.Render(childPrefix + "  (no cards)"))
			b.WriteString("\n")
			continue
		}

		for j, c := range l.Cards {
			cardPrefix := "├─"
			if j == len(l.Cards)-1 {
				cardPrefix = "└─"
			}
			b.WriteString(cardStyle.Render(fmt.Sprintf("%s%s %s", childPrefix, cardPrefix, truncate(c.Name))))
			b.WriteString(" ")
			b.WriteString(idStyle.Render(c.ID))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func truncate(title string) string {
	if runewidth.StringWidth(title) > maxTitleWidth {
		return runewidth.Truncate(title, maxTitleWidth-3, "...")
	}
	return title
}
