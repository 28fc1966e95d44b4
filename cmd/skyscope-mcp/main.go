package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/skyscope-mcp/internal/config"
	"github.com/ironsheep/skyscope-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type args struct {
	Config    string `arg:"-c,--config,env:SKYSCOPE_CONFIG" help:"config file (default ~/.config/skyscope/config.json when present)"`
	LogLevel  string `arg:"--log-level,env:SKYSCOPE_LOG_LEVEL" help:"debug, info, warn or error"`
	Seed      int64  `arg:"--seed,env:SKYSCOPE_SEED" help:"fixed detection seed; 0 seeds from the clock"`
	LatencyMS *int   `arg:"--latency-ms" help:"simulated detection latency in milliseconds"`
}

func (args) Version() string {
	return fmt.Sprintf("skyscope-mcp %s (built %s, commit %s)", Version, BuildTime, GitCommit)
}

func (args) Description() string {
	return "skyscope-mcp - MCP server for pixel-precise sky image viewing with a detection overlay.\n" +
		"It communicates via MCP protocol over stdin/stdout; configure it in your MCP client."
}

func loadConfig(a args) (*config.Config, error) {
	path := a.Config
	explicit := path != ""
	if !explicit {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}

	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	if a.Seed != 0 {
		cfg.Detection.Seed = a.Seed
	}
	if a.LatencyMS != nil {
		cfg.Detection.LatencyMS = *a.LatencyMS
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	// stdout is for MCP protocol
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg, err := loadConfig(a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skyscope-mcp: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("Skyscope MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewWithConfig(cfg, logger)
	if err := srv.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}
