package models

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/VoidMesh/terrain/cmd/debug/components"
	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/viewer"
)

// MapMode selects what the chunk grid shows.
type MapMode int

const (
	LODMode MapMode = iota
	BiomeMode
)

func (m MapMode) String() string {
	if m == BiomeMode {
		return "biomes"
	}
	return "lod"
}

// BiomeSampler returns the biome a chunk would be generated with.
type BiomeSampler interface {
	BiomeAt(coord grid.ChunkCoord) int
}

// Explorer drives the scheduler from the bubbletea event loop: every tick
// drains finished chunks, and arrow keys move the viewer.
type Explorer struct {
	manager *chunk.Manager
	viewer  *viewer.Viewer
	biomes  BiomeSampler
	tick    time.Duration

	pos    viewer.Position
	mode   MapMode
	width  int
	height int

	ticks        int
	materialized int
	lastErr      error
	showHelp     bool
}

// NewExplorer maps the area around the origin and returns the model.
func NewExplorer(m *chunk.Manager, v *viewer.Viewer, biomes BiomeSampler, tick time.Duration, mode MapMode) *Explorer {
	e := &Explorer{
		manager: m,
		viewer:  v,
		biomes:  biomes,
		tick:    tick,
		mode:    mode,
	}
	_, e.lastErr = v.Update(e.pos)
	return e
}

// Init starts the drain ticker.
func (e *Explorer) Init() tea.Cmd {
	return e.tickCmd()
}

// Update handles key presses, resizes and drain ticks.
func (e *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = msg.Width
		e.height = msg.Height

	case tea.KeyMsg:
		if e.handleKey(msg.String()) {
			return e, tea.Quit
		}

	case tickMsg:
		e.onTick()
		return e, e.tickCmd()
	}

	return e, nil
}

// handleKey applies one key and reports whether the program should quit.
func (e *Explorer) handleKey(key string) bool {
	step := float64(e.viewer.Policy().ChunkSize) / 2

	switch key {
	case "q", "ctrl+c", "esc":
		return true
	case "up", "k":
		e.move(0, step)
	case "down", "j":
		e.move(0, -step)
	case "left", "h":
		e.move(-step, 0)
	case "right", "l":
		e.move(step, 0)
	case "m":
		if e.mode == LODMode {
			e.mode = BiomeMode
		} else {
			e.mode = LODMode
		}
	case "r":
		e.lastErr = e.viewer.Refresh(e.pos)
	case "?":
		e.showHelp = !e.showHelp
	}
	return false
}

func (e *Explorer) move(dx, dz float64) {
	e.pos = viewer.Position{e.pos.X() + dx, e.pos.Y() + dz}
	_, e.lastErr = e.viewer.Update(e.pos)
}

// onTick drains the scheduler once and retries a rejected mapping.
func (e *Explorer) onTick() {
	e.ticks++
	e.materialized += e.manager.Drain()
	if e.lastErr != nil {
		e.lastErr = e.viewer.Refresh(e.pos)
	}
}

func (e *Explorer) tickCmd() tea.Cmd {
	return tea.Tick(e.tick, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// View renders the grid, the info panel and the status bar.
func (e *Explorer) View() string {
	var s strings.Builder

	center := e.viewer.Policy().CenterChunk(e.pos)
	title := components.TitleStyle.Render(fmt.Sprintf("Terrain Explorer - %s map around %s", e.mode, center))
	s.WriteString(title + "\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, e.renderGrid(), e.renderInfoPanel()) + "\n")
	s.WriteString(e.renderStatusBar())

	return s.String()
}

// renderGrid draws one cell per chunk within view distance, north up.
func (e *Explorer) renderGrid() string {
	policy := e.viewer.Policy()
	center := policy.CenterChunk(e.pos)
	n := policy.MaxViewDistance
	count := len(e.manager.Table())

	rows := make([]string, 0, 2*n+1)
	for dz := n; dz >= -n; dz-- {
		cells := make([]string, 0, 2*n+1)
		for dx := -n; dx <= n; dx++ {
			c := center.Add(grid.ChunkCoord{X: dx, Z: dz})
			cells = append(cells, e.renderCell(c, c == center, count))
		}
		rows = append(rows, strings.Join(cells, ""))
	}

	return components.BorderStyle.Render(strings.Join(rows, "\n"))
}

func (e *Explorer) renderCell(c grid.ChunkCoord, isCenter bool, biomeCount int) string {
	if isCenter {
		return components.GridViewerCellStyle.Render(components.ViewerSymbol)
	}

	rec, ok := e.manager.Record(c)
	switch e.mode {
	case BiomeMode:
		idx := e.biomes.BiomeAt(c)
		symbol := "  "
		if ok {
			symbol = fmt.Sprintf("%2d", idx)
		}
		return components.GridCellStyle.
			Background(components.BiomeColor(idx, biomeCount)).
			Foreground(lipgloss.Color("#101010")).
			Render(symbol)
	default:
		if !ok {
			return components.GridCellStyle.Foreground(components.Gray).Render(components.EmptySymbol)
		}
		return components.GridCellStyle.
			Background(components.LODColor(rec.LOD)).
			Foreground(lipgloss.Color("#FAFAFA")).
			Render(fmt.Sprintf("%2d", rec.LOD))
	}
}

func (e *Explorer) renderInfoPanel() string {
	var info strings.Builder
	policy := e.viewer.Policy()
	center := policy.CenterChunk(e.pos)

	info.WriteString(components.SubtitleStyle.Render("Viewer") + "\n")
	info.WriteString(fmt.Sprintf("World: (%.0f, %.0f)\n", e.pos.X(), e.pos.Y()))
	info.WriteString(fmt.Sprintf("Chunk: %s\n", center))
	info.WriteString(fmt.Sprintf("View distance: %d\n\n", policy.MaxViewDistance))

	info.WriteString(components.SubtitleStyle.Render("Scheduler") + "\n")
	info.WriteString(fmt.Sprintf("Records: %d\n", e.manager.Len()))
	info.WriteString(fmt.Sprintf("Pending: %d\n", e.manager.Pending()))
	info.WriteString(fmt.Sprintf("Materialized: %d\n", e.materialized))
	info.WriteString(fmt.Sprintf("Ticks: %d\n\n", e.ticks))

	if rec, ok := e.manager.Record(center); ok {
		info.WriteString(components.SubtitleStyle.Render("Center chunk") + "\n")
		info.WriteString(fmt.Sprintf("LOD: %d  Seq: %d\n", rec.LOD, rec.Seq))
		info.WriteString(fmt.Sprintf("Biome: %s\n\n", biomeName(e.manager.Table(), rec.BiomeIndex)))
	}

	info.WriteString(components.SubtitleStyle.Render("Biomes") + "\n")
	table := e.manager.Table()
	for i, d := range table {
		swatch := lipgloss.NewStyle().Background(components.BiomeColor(i, len(table))).Render("  ")
		info.WriteString(fmt.Sprintf("%s %d %s (%.2f)\n", swatch, i, d.Name, d.Commonness))
	}

	if e.showHelp {
		info.WriteString("\n" + components.SubtitleStyle.Render("Controls") + "\n")
		info.WriteString(components.HelpStyle.Render("Arrows/hjkl: move viewer\nm: toggle lod/biome map\nr: remap now\nq: quit"))
	}

	return components.InfoPanelStyle.Render(info.String())
}

func (e *Explorer) renderStatusBar() string {
	status := []string{
		fmt.Sprintf("Mode: %s", e.mode),
		fmt.Sprintf("Tick: %s", e.tick),
		"?: help",
	}
	if e.lastErr != nil {
		status = append(status, components.ErrorStyle.Render("Mapping rejected, retrying"))
	}

	bar := components.StatusBarStyle
	if e.width > 0 {
		bar = bar.Width(e.width)
	}
	return bar.Render(strings.Join(status, " • "))
}

func biomeName(table biome.Table, index int) string {
	if index < 0 || index >= len(table) || table[index] == nil {
		return "unknown"
	}
	return table[index].Name
}

// Messages
type tickMsg struct{}
