package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/VoidMesh/terrain/cmd/debug/models"
	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/config"
	"github.com/VoidMesh/terrain/internal/logging"
	"github.com/VoidMesh/terrain/internal/noise"
	"github.com/VoidMesh/terrain/internal/render"
	"github.com/VoidMesh/terrain/internal/viewer"
)

func main() {
	cfg := config.Load()

	biomesPath := flag.String("biomes", cfg.Generation.BiomesPath, "Path to the biome table")
	chunkSize := flag.Int("size", 65, "Samples along one chunk edge")
	view := flag.Int("view", 8, "View distance in chunks")
	mode := flag.String("mode", "lod", "Starting map (lod, biomes)")
	logFile := flag.String("logfile", "", "Write logs to this file instead of discarding them")
	flag.Parse()

	cfg.Generation.ChunkSize = *chunkSize
	cfg.Viewer.ViewDistance = *view
	cfg.Normalize()

	// The TUI owns the terminal, so logs go to a file or nowhere
	logging.Setup(cfg.Logging)
	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logging.Logger.SetOutput(out)
	log := logging.GetLogger()

	table, err := biome.Load(*biomesPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	gen := chunk.NewGenerator(noise.NewSampler(noise.Params{
		Seed:        cfg.Generation.Seed,
		Scale:       cfg.Generation.NoiseScale,
		Octaves:     cfg.Generation.Octaves,
		Persistence: cfg.Generation.Persistence,
		Lacunarity:  cfg.Generation.Lacunarity,
	}), cfg.Generation.ChunkSize, cfg.Generation.BiomeBlend, cfg.Scheduler.NeighborCache)

	manager := chunk.NewManager(gen, render.NewStore(nil), chunk.Options{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	})
	manager.Initialize(table)
	defer manager.Close()

	policy := viewer.DefaultPolicy(cfg.Generation.ChunkSize)
	policy.MaxViewDistance = cfg.Viewer.ViewDistance
	policy.UpdateThreshold = cfg.Viewer.UpdateThreshold

	start := models.LODMode
	if *mode == "biomes" {
		start = models.BiomeMode
	}
	explorer := models.NewExplorer(manager, viewer.New(policy, manager), gen, cfg.Scheduler.TickInterval, start)

	program := tea.NewProgram(explorer, tea.WithAltScreen())

	log.Info("Starting terrain explorer", "biomes", *biomesPath, "chunk_size", cfg.Generation.ChunkSize, "view", cfg.Viewer.ViewDistance)

	if _, err := program.Run(); err != nil {
		log.Error("Error running explorer", "error", err)
		fmt.Println("error:", err)
	}
}
