package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/VoidMesh/terrain/internal/chunk"
)

// Color definitions
var (
	// Primary colors
	PrimaryColor   = lipgloss.Color("#7D56F4")
	SecondaryColor = lipgloss.Color("#04B575")
	AccentColor    = lipgloss.Color("#FFD700")
	DangerColor    = lipgloss.Color("#F25D94")

	// Grayscale
	LightGray = lipgloss.Color("#D9D9D9")
	Gray      = lipgloss.Color("#8B8B8B")
	DarkGray  = lipgloss.Color("#383838")
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(0, 2)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Gray).
			Padding(0, 1)

	InfoPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor).
			Padding(0, 1).
			Width(34)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(DarkGray).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(DangerColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Gray).
			Italic(true)

	// Grid styles (one cell per chunk)
	GridCellStyle = lipgloss.NewStyle().
			Width(2).
			Height(1).
			Align(lipgloss.Center)

	GridViewerCellStyle = lipgloss.NewStyle().
				Width(2).
				Height(1).
				Align(lipgloss.Center).
				Background(PrimaryColor).
				Foreground(lipgloss.Color("#FAFAFA")).
				Bold(true)
)

// Grid symbols
const (
	EmptySymbol  = "··"
	ViewerSymbol = "@@"
)

var (
	finestLODColor = colorful.Color{R: 0.02, G: 0.71, B: 0.46}
	coarseLODColor = colorful.Color{R: 0.25, G: 0.2, B: 0.45}
)

// LODColor shades LOD 1 bright green through to a dim violet at MaxLOD.
func LODColor(lod int) lipgloss.Color {
	if lod < chunk.FinestLOD {
		return DarkGray
	}
	t := float64(lod-chunk.FinestLOD) / float64(chunk.MaxLOD-chunk.FinestLOD)
	return lipgloss.Color(finestLODColor.BlendHcl(coarseLODColor, t).Clamped().Hex())
}

// BiomeColor spreads count biomes evenly around the hue circle.
func BiomeColor(index, count int) lipgloss.Color {
	if count < 1 {
		return Gray
	}
	hue := 360 * float64(index) / float64(count)
	return lipgloss.Color(colorful.Hsv(hue, 0.55, 0.8).Hex())
}
