package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultChunkSize is the sample count along one chunk edge. Adjacent
	// chunks share their outer row, so the size is odd.
	DefaultChunkSize = 241

	minNoiseScale = 1.5
	maxOctaves    = 10
)

type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Generation GenerationConfig
	Scheduler  SchedulerConfig
	Viewer     ViewerConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level      string
	Format     string
	Structured bool
}

// GenerationConfig holds the process-wide terrain parameters. They are read
// once at startup and never re-read while the server runs.
type GenerationConfig struct {
	Seed        int64
	NoiseScale  float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	ChunkSize   int
	BiomeBlend  int
	BiomesPath  string
}

type SchedulerConfig struct {
	Workers       int
	QueueSize     int
	TickInterval  time.Duration
	NeighborCache int
}

type ViewerConfig struct {
	ViewDistance    int
	UpdateThreshold float64
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvStr("PORT", "8080"),
			ReadTimeout:     getEnvDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnvStr("LOG_LEVEL", "info"),
			Format:     getEnvStr("LOG_FORMAT", "text"),
			Structured: getEnvBool("LOG_STRUCTURED", true),
		},
		Generation: GenerationConfig{
			Seed:        getEnvInt64("SEED", 0),
			NoiseScale:  getEnvFloat("NOISE_SCALE", 5),
			Octaves:     getEnvInt("OCTAVES", 3),
			Persistence: getEnvFloat("PERSISTENCE", 0.5),
			Lacunarity:  getEnvFloat("LACUNARITY", 2),
			ChunkSize:   getEnvInt("CHUNK_SIZE", DefaultChunkSize),
			BiomeBlend:  getEnvInt("BIOME_BLEND", 10),
			BiomesPath:  getEnvStr("BIOMES_PATH", "./configs/biomes.yaml"),
		},
		Scheduler: SchedulerConfig{
			Workers:       getEnvInt("WORKERS", 4),
			QueueSize:     getEnvInt("QUEUE_SIZE", 256),
			TickInterval:  getEnvDuration("TICK_INTERVAL", 50*time.Millisecond),
			NeighborCache: getEnvInt("NEIGHBOR_CACHE", 64),
		},
		Viewer: ViewerConfig{
			ViewDistance:    getEnvInt("VIEW_DISTANCE", 5),
			UpdateThreshold: getEnvFloat("UPDATE_THRESHOLD", 100),
		},
	}
	cfg.Normalize()
	return cfg
}

// Normalize clamps generation and scheduling parameters into their usable
// ranges instead of rejecting them.
func (c *Config) Normalize() {
	g := &c.Generation
	if g.NoiseScale < minNoiseScale {
		g.NoiseScale = minNoiseScale
	}
	if g.Lacunarity < 1 {
		g.Lacunarity = 1
	}
	g.Octaves = clampInt(g.Octaves, 1, maxOctaves)
	if g.Persistence < 0 {
		g.Persistence = 0
	}
	if g.Persistence > 1 {
		g.Persistence = 1
	}
	if g.ChunkSize < 3 {
		g.ChunkSize = DefaultChunkSize
	}
	if g.ChunkSize%2 == 0 {
		g.ChunkSize++
	}
	g.BiomeBlend = clampInt(g.BiomeBlend, 1, g.ChunkSize/2)

	s := &c.Scheduler
	if s.Workers < 1 {
		s.Workers = 1
	}
	if s.QueueSize < 1 {
		s.QueueSize = 1
	}
	if s.TickInterval <= 0 {
		s.TickInterval = 50 * time.Millisecond
	}
	if s.NeighborCache < 0 {
		s.NeighborCache = 0
	}

	if c.Viewer.ViewDistance < 1 {
		c.Viewer.ViewDistance = 1
	}
	if c.Viewer.UpdateThreshold < 0 {
		c.Viewer.UpdateThreshold = 0
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
