package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns a configuration that runs an in-memory world without any
// configuration file.
func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkSize: 16,
			Height:    128,
			Seed:      1337,
		},
		Scheduler: SchedulerConfig{
			TickRate:      Duration(50 * time.Millisecond),
			BuildInterval: 1,
			UpdateDelay:   10,
		},
		Mesh: MeshConfig{
			SolidCapacity:   16384,
			LiquidCapacity:  8192,
			FoliageCapacity: 4096,
		},
		Terrain: TerrainConfig{
			Frequency:      0.01,
			Amplitude:      24,
			Octaves:        4,
			Persistence:    0.5,
			Lacunarity:     2.0,
			SeaLevel:       40,
			FoliageDensity: 0.08,
			OreAttempts:    12,
		},
		Storage: StorageConfig{
			Backend:          "memory",
			CompressionLevel: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Stream: StreamConfig{
			Radius: 2,
		},
	}
}

// WriteDefault writes the default configuration to the provided path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
