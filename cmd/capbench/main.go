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
	"github.com/capbench/capbench/internal/bmc"
	"github.com/capbench/capbench/internal/config"
	"github.com/capbench/capbench/internal/coordinator"
	"github.com/capbench/capbench/internal/exporter/prometheus"
	"github.com/capbench/capbench/internal/exporter/prometheus/collector"
	"github.com/capbench/capbench/internal/exporter/stdout"
	"github.com/capbench/capbench/internal/logger"
	"github.com/capbench/capbench/internal/monitor"
	"github.com/capbench/capbench/internal/server"
	"github.com/capbench/capbench/internal/service"
	"github.com/capbench/capbench/internal/version"
)

const appName = "capbench"

// the controller never reads the local sysfs or procfs
var skips = []config.SkipValidation{config.SkipHostValidation}

func main() {
	cfg, err := parseArgsAndConfig()
	if err != nil {
		os.Exit(1)
	}

	// stdout carries the report
	logger := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	version.Log(logger, appName)
	printConfigInfo(logger, cfg)

	ctx := context.Background()
	services, err := createServices(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create services", "error", err)
		os.Exit(1)
	}

	if err := service.Init(logger, services); err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	logger.Info("starting capbench")
	if err := service.Run(ctx, logger, services); err != nil {
		if errors.Is(err, service.ErrInterrupted) {
			logger.Warn("suite interrupted", "reason", err)
		} else {
			logger.Error("capbench terminated with an error", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("suite completed")
}

func parseArgsAndConfig() (*config.Config, error) {
	app := kingpin.New(appName, "Runs power capping experiments against a BMC and a capbench agent.")
	app.Version(version.Info().Version)

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app, skips...)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logger.New("info", "text", os.Stderr)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		logger.Info("Loading configuration file", "path", *configFile)
		loadedCfg, err := config.FromFile(*configFile, append(skips, config.SkipBMCValidation)...)
		if err != nil {
			logger.Error("Error loading config file", "error", err.Error())
			return nil, err
		}
		cfg = loadedCfg
	}

	// flags override the file; the BMC host may come from either
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

	fmt.Fprintf(os.Stderr, `
Configuration
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
%s
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
`, cfg)
}

func createServices(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]service.Service, error) {
	logger.Debug("Creating all services")
	dryRun := ptr.Deref(cfg.Suite.DryRun, false)

	client := agent.NewClient(cfg.Agent.Endpoint,
		agent.WithClientLogger(logger),
		agent.WithRequestTimeout(cfg.Agent.RequestTimeout),
	)
	testSuite, err := coordinator.NewSuite(ctx, cfg.Suite, client)
	if err != nil {
		return nil, err
	}

	var (
		services []service.Service
		sinks    []coordinator.ResultSink
	)
	monitorOpts := []monitor.OptionFn{
		monitor.WithInterval(cfg.Monitor.BMCInterval),
		monitor.WithInterCommandDelay(cfg.Monitor.BMCInterCommandDelay),
		monitor.WithCommandTimeout(cfg.Monitor.BMCCommandTimeout),
	}

	if ptr.Deref(cfg.Exporter.Stdout.Enabled, false) {
		sinks = append(sinks, stdout.NewExporter(stdout.WithLogger(logger)))
	}

	promEnabled := ptr.Deref(cfg.Exporter.Prometheus.Enabled, false)
	pprofEnabled := ptr.Deref(cfg.Debug.Pprof.Enabled, false)
	if promEnabled || pprofEnabled {
		apiServer := server.NewAPIServer(
			server.WithLogger(logger),
			server.WithListen(cfg.Web.ListenAddresses, cfg.Web.Config),
		)
		services = append(services, apiServer)

		if promEnabled {
			bmcCollector := collector.NewBMCCollector()
			runCollector := collector.NewTestRunCollector()
			monitorOpts = append(monitorOpts, monitor.WithObserver(bmcCollector.Observe))
			sinks = append(sinks, runCollector)

			services = append(services, prometheus.NewExporter(apiServer,
				prometheus.WithLogger(logger),
				prometheus.WithDebugCollectors(cfg.Exporter.Prometheus.DebugCollectors),
				prometheus.WithCollectors(map[string]prom.Collector{
					"build_info": collector.NewBuildInfoCollector(),
					"bmc":        bmcCollector,
					"test_runs":  runCollector,
				}),
			))
		}
		if pprofEnabled {
			services = append(services, server.NewPprof(apiServer))
		}
	}

	ipmi := bmc.NewIPMI(cfg.BMC, bmc.WithLogger(logger))
	coordOpts := []coordinator.OptionFn{
		coordinator.WithLogger(logger),
		coordinator.WithSettle(cfg.BMC.Settle),
		coordinator.WithTiming(cfg.Suite.Warmup, cfg.Suite.TestTime),
		coordinator.WithStep(cfg.Suite.StepSize, cfg.Suite.StepInterval),
		coordinator.WithMonitorOptions(monitorOpts...),
	}
	// a dry run never talks to the BMC
	if ptr.Deref(cfg.BMC.Redfish.Enabled, false) && !dryRun {
		redfish := bmc.NewRedfish(cfg.BMC, bmc.WithRedfishLogger(logger))
		services = append(services, redfish)
		coordOpts = append(coordOpts, coordinator.WithMonitorReader(redfish))
	}
	logger.Info("BMC", "ipmi", ipmi.String(), "redfish", ptr.Deref(cfg.BMC.Redfish.Enabled, false))

	runner := coordinator.NewRunner(
		coordinator.New(ipmi, client, coordOpts...),
		testSuite,
		coordinator.WithRunnerLogger(logger),
		coordinator.WithMaxTests(cfg.Suite.MaxTests),
		coordinator.WithDryRun(dryRun),
		coordinator.WithSinks(sinks...),
	)

	return append(services,
		runner,
		service.NewSignalHandler(logger, os.Interrupt, syscall.SIGTERM),
	), nil
}
