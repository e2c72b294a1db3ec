// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/ptr"

	"github.com/capbench/capbench/internal/agent"
	"github.com/capbench/capbench/internal/config"
	"github.com/capbench/capbench/internal/device"
	"github.com/capbench/capbench/internal/exporter/prometheus"
	"github.com/capbench/capbench/internal/exporter/prometheus/collector"
	"github.com/capbench/capbench/internal/firestarter"
	"github.com/capbench/capbench/internal/logger"
	"github.com/capbench/capbench/internal/monitor"
	"github.com/capbench/capbench/internal/server"
	"github.com/capbench/capbench/internal/service"
	"github.com/capbench/capbench/internal/version"
)

const appName = "capbench-agent"

// the agent never talks to the BMC
var skips = []config.SkipValidation{config.SkipBMCValidation}

func main() {
	cfg, err := parseArgsAndConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	version.Log(logger, appName)
	printConfigInfo(logger, cfg)

	services, err := createServices(logger, cfg)
	if err != nil {
		logger.Error("failed to create services", "error", err)
		os.Exit(1)
	}

	if err := service.Init(logger, services); err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	logger.Info("starting capbench agent")
	if err := service.Run(context.Background(), logger, services); err != nil && !errors.Is(err, service.ErrInterrupted) {
		logger.Error("capbench agent terminated with an error", "error", err)
		os.Exit(1)
	}
	logger.Info("graceful shutdown completed")
}

func parseArgsAndConfig() (*config.Config, error) {
	app := kingpin.New(appName, "Runs the load generator and samples RAPL energy counters for capbench.")
	app.Version(version.Info().Version)

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app, skips...)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logger.New("info", "text", os.Stdout)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		logger.Info("Loading configuration file", "path", *configFile)
		loadedCfg, err := config.FromFile(*configFile, skips...)
		if err != nil {
			logger.Error("Error loading config file", "error", err.Error())
			return nil, err
		}
		cfg = loadedCfg
	}

	if err := updateConfig(cfg); err != nil {
		logger.Error("Error applying command line flags", "error", err.Error())
		return nil, err
	}
	return cfg, nil
}

func printConfigInfo(logger *slog.Logger, cfg *config.Config) {
	if !logger.Enabled(context.Background(), slog.LevelInfo) || cfg.Log.Format == "json" {
		return
	}

	fmt.Printf(`
Configuration
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
%s
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
`, cfg)
}

func createEnergyReader(logger *slog.Logger, cfg *config.Config) (device.EnergyReader, error) {
	if ptr.Deref(cfg.Dev.FakeRapl.Enabled, false) {
		return device.NewFakeRaplReader(logger)
	}
	return device.NewRaplReader(cfg.Host.SysFS, device.WithLogger(logger))
}

func createServices(logger *slog.Logger, cfg *config.Config) ([]service.Service, error) {
	logger.Debug("Creating all services")

	reader, err := createEnergyReader(logger, cfg)
	if err != nil {
		return nil, err
	}
	inventory, err := agent.NewInventory(cfg.Host.ProcFS)
	if err != nil {
		return nil, err
	}

	apiServer := server.NewAPIServer(
		server.WithLogger(logger),
		server.WithListen(cfg.Web.ListenAddresses, cfg.Web.Config),
	)
	services := []service.Service{apiServer}

	agentOpts := []agent.OptionFn{
		agent.WithLogger(logger),
		agent.WithEndDelay(cfg.Agent.EndDelay),
		agent.WithMonitorOptions(
			monitor.WithInterval(cfg.Monitor.EnergyInterval),
			monitor.WithEndDelay(cfg.Agent.EndDelay),
		),
	}

	if ptr.Deref(cfg.Exporter.Prometheus.Enabled, false) {
		cpuInfo, err := collector.NewCPUInfoCollector(cfg.Host.ProcFS, logger)
		if err != nil {
			return nil, err
		}
		raplCollector := collector.NewRAPLCollector()
		agentOpts = append(agentOpts, agent.WithPowerObserver(raplCollector.Observe))

		services = append(services, prometheus.NewExporter(apiServer,
			prometheus.WithLogger(logger),
			prometheus.WithDebugCollectors(cfg.Exporter.Prometheus.DebugCollectors),
			prometheus.WithCollectors(map[string]prom.Collector{
				"build_info": collector.NewBuildInfoCollector(),
				"cpu_info":   cpuInfo,
				"rapl":       raplCollector,
			}),
		))
	}
	if ptr.Deref(cfg.Debug.Pprof.Enabled, false) {
		services = append(services, server.NewPprof(apiServer))
	}

	launcher := firestarter.NewLauncher(cfg.Agent.Firestarter, logger)
	return append(services,
		agent.NewService(apiServer, launcher, reader, inventory, agentOpts...),
		service.NewSignalHandler(logger, os.Interrupt, syscall.SIGTERM),
	), nil
}
