package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a YAML-friendly wrapper around time.Duration that accepts human
// readable strings such as "50ms" while still allowing integer nanoseconds.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalYAML encodes the duration using the canonical string representation.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML decodes a duration from either a string (e.g. "250ms") or an
// integer number of nanoseconds. Empty strings and null values decode to zero.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", value.Kind)
	}
	switch value.Tag {
	case "!!null":
		*d = 0
		return nil
	case "!!int":
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode integer: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	s := strings.TrimSpace(value.Value)
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of the chunk pipeline.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Stream    StreamConfig    `yaml:"stream"`
}

type WorldConfig struct {
	ChunkSize int   `yaml:"chunkSize"` // interior width on x and z
	Height    int   `yaml:"height"`
	Seed      int64 `yaml:"seed"`
}

type SchedulerConfig struct {
	TickRate      Duration `yaml:"tickRate"`      // e.g. "50ms"
	BuildInterval int      `yaml:"buildInterval"` // ticks between pending queue drains
	UpdateDelay   int      `yaml:"updateDelay"`   // ticks before a block update fires
	MeshWorkers   int      `yaml:"meshWorkers"`   // 0 uses GOMAXPROCS
}

type MeshConfig struct {
	Strict          bool `yaml:"strict"`
	SolidCapacity   int  `yaml:"solidCapacity"`
	LiquidCapacity  int  `yaml:"liquidCapacity"`
	FoliageCapacity int  `yaml:"foliageCapacity"`
}

type TerrainConfig struct {
	Frequency      float64 `yaml:"frequency"`
	Amplitude      float64 `yaml:"amplitude"`
	Octaves        int     `yaml:"octaves"`
	Persistence    float64 `yaml:"persistence"`
	Lacunarity     float64 `yaml:"lacunarity"`
	SeaLevel       int     `yaml:"seaLevel"`
	FoliageDensity float64 `yaml:"foliageDensity"`
	OreAttempts    int     `yaml:"oreAttempts"`
}

type StorageConfig struct {
	Backend          string `yaml:"backend"` // memory, disk or leveldb
	Path             string `yaml:"path"`
	CompressionLevel int    `yaml:"compressionLevel"` // zstd speed level 1..4
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type StreamConfig struct {
	Radius int `yaml:"radius"` // chunks around the origin loaded at start
}

// Load reads configuration from a YAML file if provided. Values missing from
// the file keep their defaults. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.World.ChunkSize <= 0 || c.World.Height <= 0 {
		return errors.New("world dimensions must be positive")
	}
	if c.Scheduler.TickRate <= 0 {
		return errors.New("scheduler.tickRate must be positive")
	}
	if c.Scheduler.BuildInterval <= 0 {
		return errors.New("scheduler.buildInterval must be positive")
	}
	if c.Scheduler.UpdateDelay < 0 {
		return errors.New("scheduler.updateDelay cannot be negative")
	}
	if c.Scheduler.MeshWorkers < 0 {
		return errors.New("scheduler.meshWorkers cannot be negative")
	}
	if c.Mesh.SolidCapacity < 0 || c.Mesh.LiquidCapacity < 0 || c.Mesh.FoliageCapacity < 0 {
		return errors.New("mesh capacities cannot be negative")
	}
	if c.Terrain.Octaves <= 0 {
		return errors.New("terrain.octaves must be positive")
	}
	if c.Terrain.SeaLevel < 0 || c.Terrain.SeaLevel >= c.World.Height {
		return errors.New("terrain.seaLevel must lie within the world height")
	}
	if c.Terrain.FoliageDensity < 0 || c.Terrain.FoliageDensity > 1 {
		return errors.New("terrain.foliageDensity must be within [0,1]")
	}
	if c.Terrain.OreAttempts < 0 {
		return errors.New("terrain.oreAttempts cannot be negative")
	}
	switch c.Storage.Backend {
	case "memory":
	case "disk", "leveldb":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path must be set for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend %q must be one of memory, disk, leveldb", c.Storage.Backend)
	}
	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return errors.New("storage.compressionLevel must be within [1,4]")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	if c.Stream.Radius < 0 {
		return errors.New("stream.radius cannot be negative")
	}
	return nil
}
