package view

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcin-skalski/review-bridge/internal/board"
)

var (
	// Role colors
	colorInProgress  = lipgloss.Color("33")  // blue
	colorUnderReview = lipgloss.Color("214") // orange
	colorReviewed    = lipgloss.Color("46")  // green
	colorMerged      = lipgloss.Color("135") // purple
	colorCancelled   = lipgloss.Color("240") // gray
	colorBlocked     = lipgloss.Color("196") // red

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingLeft(1).
			PaddingRight(1)

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func roleIcon(role board.Role) string {
	switch role {
	case board.InProgress:
		return "🚧"
	case board.UnderReview:
		return "👀"
	case board.Reviewed:
		return "✅"
	case board.Merged:
		return "🔀"
	case board.Cancelled:
		return "🗑️"
	case board.Blocked:
		return "⛔"
	default:
		return "❓"
	}
}

func roleColor(role board.Role) lipgloss.Color {
	switch role {
	case board.InProgress:
		return colorInProgress
	case board.UnderReview:
		return colorUnderReview
	case board.Reviewed:
		return colorReviewed
	case board.Merged:
		return colorMerged
	case board.Cancelled:
		return colorCancelled
	case board.Blocked:
		return colorBlocked
	default:
		return lipgloss.Color("252")
	}
}
