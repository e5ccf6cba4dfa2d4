package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/VoidMesh/terrain/internal/api"
	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/config"
	"github.com/VoidMesh/terrain/internal/driver"
	"github.com/VoidMesh/terrain/internal/logging"
	"github.com/VoidMesh/terrain/internal/noise"
	"github.com/VoidMesh/terrain/internal/render"
	"github.com/VoidMesh/terrain/internal/viewer"
)

const eventBuffer = 256

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logging
	logging.Setup(cfg.Logging)
	log := logging.GetLogger()
	log.Debug("Configuration loaded", "server_port", cfg.Server.Port, "seed", cfg.Generation.Seed, "chunk_size", cfg.Generation.ChunkSize, "workers", cfg.Scheduler.Workers)

	// Load biome table
	log.Debug("Loading biome table", "path", cfg.Generation.BiomesPath)
	table, err := biome.Load(cfg.Generation.BiomesPath)
	if err != nil {
		log.Fatal("Failed to load biome table", "error", err, "path", cfg.Generation.BiomesPath)
	}
	log.Info("Biome table loaded", "biomes", len(table))

	// Initialize chunk scheduler
	gen := chunk.NewGenerator(noise.NewSampler(noise.Params{
		Seed:        cfg.Generation.Seed,
		Scale:       cfg.Generation.NoiseScale,
		Octaves:     cfg.Generation.Octaves,
		Persistence: cfg.Generation.Persistence,
		Lacunarity:  cfg.Generation.Lacunarity,
	}), cfg.Generation.ChunkSize, cfg.Generation.BiomeBlend, cfg.Scheduler.NeighborCache)

	hub := render.NewHub(eventBuffer)
	store := render.NewStore(hub)

	manager := chunk.NewManager(gen, store, chunk.Options{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	})
	manager.Initialize(table)
	defer manager.Close()

	policy := viewer.DefaultPolicy(cfg.Generation.ChunkSize)
	policy.MaxViewDistance = cfg.Viewer.ViewDistance
	policy.UpdateThreshold = cfg.Viewer.UpdateThreshold
	loop := driver.New(manager, viewer.New(policy, manager), cfg.Scheduler.TickInterval)

	// Initialize API handlers
	handler := api.NewHandler(loop, store, gen, hub)
	router := api.SetupRoutes(handler, api.NewEventStream(hub))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		<-loop.Running()
		// Map the area around the origin so the first client finds terrain
		if _, err := loop.MoveViewer(gctx, viewer.Position{0, 0}); err != nil {
			log.Warn("Initial viewer mapping incomplete, retrying in background", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Starting VoidMesh terrain server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", "error", err)
		manager.Close()
		os.Exit(1)
	}

	log.Info("Server exited")
}
