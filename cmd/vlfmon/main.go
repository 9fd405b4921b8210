package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/roman-kulish/vlf-monitor/cmd/vlfmon/app"
	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

func main() {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "vlfmon",
	})
	logger := slog.New(handler)

	var (
		configPath string
		logLevel   string
		simulate   bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	pflag.StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	pflag.BoolVar(&simulate, "simulate", false, "Use a simulated GPS pulse train")
	pflag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		pflag.Usage()
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	if simulate {
		config.GPS.Mode = recording.GPSSimulated
	}
	if logLevel != "" {
		config.Settings.LogLevel = logLevel
	}

	level, err := log.ParseLevel(config.Settings.LogLevel)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	handler.SetLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
