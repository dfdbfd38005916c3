// Package main is the entry point for the Midgard VR player.
package main

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/app"
	"github.com/Faultbox/midgard-vr/internal/config"
	"github.com/Faultbox/midgard-vr/internal/logger"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if config.SaveRequested() {
		path, err := cfg.Save()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", path)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard VR Player ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Media.Clip == "" {
		cfg.Media.Clip = app.PickClip(logger.Log)
	}

	// Create and run player
	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to create player", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	// Run the main loop
	if err := a.Run(); err != nil {
		logger.Error("player error", zap.Error(err))
		a.Close()
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("player closed normally")
}
