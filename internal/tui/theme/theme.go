// Package theme provides the Lip Gloss color palette and reusable styles
// for the StockDeck TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Role colors.
var (
	ColorAdmin    = lipgloss.Color("#a855f7")
	ColorOperator = lipgloss.Color("#3b82f6")
	ColorViewer   = lipgloss.Color("#22c55e")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// Audit action colors.
var (
	ColorCreate = lipgloss.Color("#16a34a")
	ColorUpdate = lipgloss.Color("#d97706")
	ColorDelete = lipgloss.Color("#dc2626")
)

// Stock level thresholds.
var (
	ColorStockOK  = lipgloss.Color("#22c55e")
	ColorStockLow = lipgloss.Color("#d97706") // <10
	ColorStockOut = lipgloss.Color("#dc2626") // 0
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// RoleColor returns the Lip Gloss color for a role name.
func RoleColor(role string) lipgloss.Color {
	switch role {
	case "admin":
		return ColorAdmin
	case "operator":
		return ColorOperator
	case "viewer":
		return ColorViewer
	default:
		return ColorDefault
	}
}

// ActionColor returns the Lip Gloss color for an audit action.
func ActionColor(action string) lipgloss.Color {
	switch action {
	case "create":
		return ColorCreate
	case "update":
		return ColorUpdate
	case "delete":
		return ColorDelete
	default:
		return ColorDefault
	}
}

// StockColor returns the color for a stock count.
func StockColor(stock int) lipgloss.Color {
	switch {
	case stock == 0:
		return ColorStockOut
	case stock < 10:
		return ColorStockLow
	default:
		return ColorStockOK
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)
)
