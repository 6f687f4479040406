package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"voxelterrain/internal/config"
	"voxelterrain/internal/terrain"
	"voxelterrain/internal/world"
)

func main() {
	var (
		cfgPath   string
		writePath string
		demo      bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to terrain configuration file")
	flag.StringVar(&writePath, "write-config", "", "write the default configuration to this path and exit")
	flag.BoolVar(&demo, "demo", false, "walk east and edit blocks while running")
	flag.Parse()

	if writePath != "" {
		if err := config.WriteDefault(writePath); err != nil {
			logrus.Fatalf("write config: %v", err)
		}
		color.Green("wrote default configuration to %s", writePath)
		return
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("configure logging: %v", err)
	}

	store, err := world.OpenStore(cfg.Storage)
	if err != nil {
		logger.Fatalf("open %s store: %v", cfg.Storage.Backend, err)
	}
	opts := world.OptionsFromConfig(cfg)
	gen, err := terrain.New(cfg.Terrain, opts.Dims, cfg.World.Seed)
	if err != nil {
		logger.Fatalf("initialise terrain: %v", err)
	}
	opts.Generator = gen
	opts.Store = store
	opts.Log = logger
	opts.Listener = eventLogger{log: logger}
	opts.Dropper = dropLogger{log: logger}
	opts.Sink = &meshCounter{log: logger}

	w := world.New(opts)
	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := run(ctx, w, cfg, logger, demo); err != nil {
		logger.Errorf("terrain exited with error: %v", err)
	}
	if err := w.Close(); err != nil {
		logger.Fatalf("close world: %v", err)
	}
}

func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func run(ctx context.Context, w *world.World, cfg *config.Config, log logrus.FieldLogger, demo bool) error {
	center := world.ChunkPos{}
	if err := w.StreamAround(center, cfg.Stream.Radius); err != nil {
		return err
	}
	log.Infof("streamed %d chunks around %v", len(w.Loaded()), center)

	ticker := time.NewTicker(cfg.Scheduler.TickRate.Duration())
	defer ticker.Stop()

	walker := newDemoWalker(w, cfg)
	for {
		select {
		case <-ctx.Done():
			printStatus(w.Stats())
			return nil
		case <-ticker.C:
		}

		if err := w.Tick(); err != nil {
			log.Warnf("tick %d: %v", w.CurrentTick(), err)
		}
		tick := w.CurrentTick()
		if demo {
			if err := walker.step(tick); err != nil {
				log.Warnf("demo step at tick %d: %v", tick, err)
			}
		}
		if tick%100 == 0 {
			printStatus(w.Stats())
		}
	}
}

func printStatus(s world.Stats) {
	status := color.New(color.FgCyan)
	if s.Failures > 0 {
		status = color.New(color.FgYellow)
	}
	status.Printf("tick %d: %d chunks, %d batches, %d meshes published, %d failed, %d edits and %d updates pending\n",
		s.Tick, s.Loaded, s.Batches, s.Publishes, s.Failures, s.PendingEdits, s.PendingUpdates)
}

func signalContext(log logrus.FieldLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Errorf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
