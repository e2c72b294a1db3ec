// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"
)

// Config represents the complete application configuration shared by the
// controller and the agent
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	Host struct {
		SysFS  string `yaml:"sysfs"`
		ProcFS string `yaml:"procfs"`
	}

	Redfish struct {
		Enabled     *bool         `yaml:"enabled"`
		Endpoint    string        `yaml:"endpoint"`
		Insecure    bool          `yaml:"insecure"`
		HTTPTimeout time.Duration `yaml:"httpTimeout"`
	}

	BMC struct {
		Ipmitool  string        `yaml:"ipmitool"`
		Interface string        `yaml:"interface"`
		Host      string        `yaml:"host"`
		Username  string        `yaml:"username"`
		Password  string        `yaml:"password"`
		Settle    time.Duration `yaml:"settle"` // pause after every cap write

		// Redfish, when enabled, serves the power and cap reads of the BMC
		// monitor; cap writes always go through ipmitool
		Redfish Redfish `yaml:"redfish"`
	}

	Agent struct {
		Endpoint       string        `yaml:"endpoint"`       // used by the controller
		RequestTimeout time.Duration `yaml:"requestTimeout"` // 0 derives it from the test runtime
		Firestarter    string        `yaml:"firestarter"`    // used by the agent
		EndDelay       time.Duration `yaml:"endDelay"`
	}

	Suite struct {
		Kind         string        `yaml:"kind"` // load or thread
		PowerLevels  []uint64      `yaml:"powerLevels"`
		Loads        []uint64      `yaml:"loads"`
		LoadPeriods  []uint64      `yaml:"loadPeriods"`
		Warmup       time.Duration `yaml:"warmup"`
		TestTime     time.Duration `yaml:"testTime"`
		StepSize     uint64        `yaml:"stepSize"`
		StepInterval time.Duration `yaml:"stepInterval"`
		MaxTests     int           `yaml:"maxTests"` // 0 runs the whole suite
		DryRun       *bool         `yaml:"dryRun"`
	}

	Monitor struct {
		BMCInterval          time.Duration `yaml:"bmcInterval"`
		BMCInterCommandDelay time.Duration `yaml:"bmcInterCommandDelay"`
		BMCCommandTimeout    time.Duration `yaml:"bmcCommandTimeout"` // 0 disables the bound
		EnergyInterval       time.Duration `yaml:"energyInterval"`
	}

	Web struct {
		Config          string   `yaml:"configFile"`
		ListenAddresses []string `yaml:"listenAddresses"`
	}

	StdoutExporter struct {
		Enabled *bool `yaml:"enabled"`
	}

	PrometheusExporter struct {
		Enabled         *bool    `yaml:"enabled"`
		DebugCollectors []string `yaml:"debugCollectors"`
	}

	Exporter struct {
		Stdout     StdoutExporter     `yaml:"stdout"`
		Prometheus PrometheusExporter `yaml:"prometheus"`
	}

	PprofDebug struct {
		Enabled *bool `yaml:"enabled"`
	}

	Debug struct {
		Pprof PprofDebug `yaml:"pprof"`
	}

	Dev struct {
		FakeRapl struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"fake-rapl"`
	}

	Config struct {
		Log      Log      `yaml:"log"`
		Host     Host     `yaml:"host"`
		BMC      BMC      `yaml:"bmc"`
		Agent    Agent    `yaml:"agent"`
		Suite    Suite    `yaml:"suite"`
		Monitor  Monitor  `yaml:"monitor"`
		Web      Web      `yaml:"web"`
		Exporter Exporter `yaml:"exporter"`
		Debug    Debug    `yaml:"debug"`
		Dev      Dev      `yaml:"dev"` // WARN: do not expose dev settings as flags
	}
)

type SkipValidation int

const (
	// SkipHostValidation skips checks on sysfs/procfs; the controller does not read them
	SkipHostValidation SkipValidation = 1
	// SkipBMCValidation skips the BMC and agent endpoint checks; the agent never talks to the BMC
	SkipBMCValidation SkipValidation = 2
)

const (
	SuiteLoad   = "load"
	SuiteThread = "thread"
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"

	HostSysFSFlag  = "host.sysfs"
	HostProcFSFlag = "host.procfs"

	BMCHostFlag     = "bmc.host"
	BMCUsernameFlag = "bmc.username"
	BMCPasswordFlag = "bmc.password"
	BMCIpmitoolFlag = "bmc.ipmitool"
	BMCSettle       = "bmc.settle" // not a flag

	AgentEndpointFlag    = "agent.endpoint"
	AgentFirestarterFlag = "agent.firestarter"

	SuiteKindFlag     = "suite.kind"
	SuiteWarmupFlag   = "suite.warmup"
	SuiteTestTimeFlag = "suite.test-time"
	SuiteMaxTestsFlag = "suite.max-tests"
	SuiteDryRunFlag   = "suite.dry-run"
	SuiteStepSize     = "suite.step-size" // not a flag

	pprofEnabledFlag = "debug.pprof"

	WebConfigFlag        = "web.config-file"
	WebListenAddressFlag = "web.listen-address"

	ExporterStdoutEnabledFlag     = "exporter.stdout"
	ExporterPrometheusEnabledFlag = "exporter.prometheus"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	cfg := &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Host: Host{
			SysFS:  "/sys",
			ProcFS: "/proc",
		},
		BMC: BMC{
			Ipmitool:  "ipmitool",
			Interface: "lanplus",
			Settle:    2 * time.Second,
			Redfish: Redfish{
				Enabled:     ptr.To(false),
				HTTPTimeout: 5 * time.Second,
			},
		},
		Agent: Agent{
			Endpoint:    "http://localhost:8000",
			Firestarter: "firestarter",
			EndDelay:    2 * time.Second,
		},
		Suite: Suite{
			Kind:         SuiteLoad,
			PowerLevels:  []uint64{200, 580},
			Loads:        []uint64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90},
			LoadPeriods:  []uint64{10_000, 1_000_000},
			Warmup:       30 * time.Second,
			TestTime:     60 * time.Second,
			StepSize:     100,
			StepInterval: 5 * time.Second,
			DryRun:       ptr.To(false),
		},
		Monitor: Monitor{
			BMCInterval:          500 * time.Millisecond,
			BMCInterCommandDelay: 500 * time.Millisecond,
			BMCCommandTimeout:    30 * time.Second,
			EnergyInterval:       500 * time.Millisecond,
		},
		Web: Web{
			ListenAddresses: []string{":8000"},
		},
		Exporter: Exporter{
			Stdout: StdoutExporter{
				Enabled: ptr.To(true),
			},
			Prometheus: PrometheusExporter{
				Enabled:         ptr.To(false),
				DebugCollectors: []string{"go"},
			},
		},
		Debug: Debug{
			Pprof: PprofDebug{
				Enabled: ptr.To(false),
			},
		},
	}

	cfg.Dev.FakeRapl.Enabled = ptr.To(false)
	return cfg
}

// Load loads configuration from an io.Reader on top of the defaults
func Load(r io.Reader, skips ...SkipValidation) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(skips...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file
func FromFile(filePath string, skips ...SkipValidation) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		// read-only; close error carries no information
		_ = file.Close()
	}()

	return Load(file, skips...)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application, skips ...SkipValidation) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")

	// host
	hostSysFS := app.Flag(HostSysFSFlag, "Host sysfs path").Default("/sys").String()
	hostProcFS := app.Flag(HostProcFSFlag, "Host procfs path").Default("/proc").String()

	// bmc
	bmcHost := app.Flag(BMCHostFlag, "BMC hostname or address").String()
	bmcUsername := app.Flag(BMCUsernameFlag, "BMC username").String()
	bmcPassword := app.Flag(BMCPasswordFlag, "BMC password").Envar("CAPBENCH_BMC_PASSWORD").String()
	bmcIpmitool := app.Flag(BMCIpmitoolFlag, "Path to the ipmitool binary").Default("ipmitool").String()

	// agent
	agentEndpoint := app.Flag(AgentEndpointFlag, "Base URL of the agent, eg: http://node01:8000").Default("http://localhost:8000").String()
	agentFirestarter := app.Flag(AgentFirestarterFlag, "Path to the firestarter load generator").Default("firestarter").String()

	// suite
	suiteKind := app.Flag(SuiteKindFlag, "Test suite: load or thread").Default(SuiteLoad).Enum(SuiteLoad, SuiteThread)
	suiteWarmup := app.Flag(SuiteWarmupFlag, "Load duration before the cap is applied").Default("30s").Duration()
	suiteTestTime := app.Flag(SuiteTestTimeFlag, "Load duration after the cap is applied").Default("60s").Duration()
	suiteMaxTests := app.Flag(SuiteMaxTestsFlag, "Stop after this many tests; 0 runs the whole suite").Default("0").Int()
	suiteDryRun := app.Flag(SuiteDryRunFlag, "List the tests of the suite without running them").Default("false").Bool()

	enablePprof := app.Flag(pprofEnabledFlag, "Enable pprof debug endpoints").Default("false").Bool()
	webConfig := app.Flag(WebConfigFlag, "Web config file path").Default("").String()
	webListenAddresses := app.Flag(WebListenAddressFlag, "Web server listen addresses").Default(":8000").Strings()

	// exporters
	stdoutExporterEnabled := app.Flag(ExporterStdoutEnabledFlag, "Enable stdout run report").Default("true").Bool()
	prometheusExporterEnabled := app.Flag(ExporterPrometheusEnabledFlag, "Enable Prometheus exporter").Default("false").Bool()

	return func(cfg *Config) error {
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}
		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[HostSysFSFlag] {
			cfg.Host.SysFS = *hostSysFS
		}
		if flagsSet[HostProcFSFlag] {
			cfg.Host.ProcFS = *hostProcFS
		}

		if flagsSet[BMCHostFlag] {
			cfg.BMC.Host = *bmcHost
		}
		if flagsSet[BMCUsernameFlag] {
			cfg.BMC.Username = *bmcUsername
		}
		// the env var fallback does not mark the flag as set, so check the value too
		if flagsSet[BMCPasswordFlag] || *bmcPassword != "" {
			cfg.BMC.Password = *bmcPassword
		}
		if flagsSet[BMCIpmitoolFlag] {
			cfg.BMC.Ipmitool = *bmcIpmitool
		}

		if flagsSet[AgentEndpointFlag] {
			cfg.Agent.Endpoint = *agentEndpoint
		}
		if flagsSet[AgentFirestarterFlag] {
			cfg.Agent.Firestarter = *agentFirestarter
		}

		if flagsSet[SuiteKindFlag] {
			cfg.Suite.Kind = *suiteKind
		}
		if flagsSet[SuiteWarmupFlag] {
			cfg.Suite.Warmup = *suiteWarmup
		}
		if flagsSet[SuiteTestTimeFlag] {
			cfg.Suite.TestTime = *suiteTestTime
		}
		if flagsSet[SuiteMaxTestsFlag] {
			cfg.Suite.MaxTests = *suiteMaxTests
		}
		if flagsSet[SuiteDryRunFlag] {
			cfg.Suite.DryRun = suiteDryRun
		}

		if flagsSet[pprofEnabledFlag] {
			cfg.Debug.Pprof.Enabled = enablePprof
		}
		if flagsSet[WebConfigFlag] {
			cfg.Web.Config = *webConfig
		}
		if flagsSet[WebListenAddressFlag] {
			cfg.Web.ListenAddresses = *webListenAddresses
		}

		if flagsSet[ExporterStdoutEnabledFlag] {
			cfg.Exporter.Stdout.Enabled = stdoutExporterEnabled
		}
		if flagsSet[ExporterPrometheusEnabledFlag] {
			cfg.Exporter.Prometheus.Enabled = prometheusExporterEnabled
		}

		cfg.sanitize()
		return cfg.Validate(skips...)
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.Host.SysFS = strings.TrimSpace(c.Host.SysFS)
	c.Host.ProcFS = strings.TrimSpace(c.Host.ProcFS)
	c.BMC.Host = strings.TrimSpace(c.BMC.Host)
	c.BMC.Username = strings.TrimSpace(c.BMC.Username)
	c.BMC.Ipmitool = strings.TrimSpace(c.BMC.Ipmitool)
	c.BMC.Interface = strings.TrimSpace(c.BMC.Interface)
	c.BMC.Redfish.Endpoint = strings.TrimSpace(c.BMC.Redfish.Endpoint)
	c.Agent.Endpoint = strings.TrimRight(strings.TrimSpace(c.Agent.Endpoint), "/")
	c.Agent.Firestarter = strings.TrimSpace(c.Agent.Firestarter)
	c.Suite.Kind = strings.TrimSpace(c.Suite.Kind)
	c.Web.Config = strings.TrimSpace(c.Web.Config)
	for i := range c.Web.ListenAddresses {
		c.Web.ListenAddresses[i] = strings.TrimSpace(c.Web.ListenAddresses[i])
	}
	for i := range c.Exporter.Prometheus.DebugCollectors {
		c.Exporter.Prometheus.DebugCollectors[i] = strings.TrimSpace(c.Exporter.Prometheus.DebugCollectors[i])
	}
}

// Validate checks for configuration errors
func (c *Config) Validate(skips ...SkipValidation) error {
	validationSkipped := make(map[SkipValidation]bool, len(skips))
	for _, v := range skips {
		validationSkipped[v] = true
	}

	var errs []string
	{ // log level
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLogLevels[c.Log.Level] {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		if c.Log.Format != "text" && c.Log.Format != "json" {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}
	{ // host
		if !validationSkipped[SkipHostValidation] {
			if err := canReadDir(c.Host.SysFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid sysfs path: %s: %s ", c.Host.SysFS, err.Error()))
			}
			if err := canReadDir(c.Host.ProcFS); err != nil {
				errs = append(errs, fmt.Sprintf("invalid procfs path: %s: %s ", c.Host.ProcFS, err.Error()))
			}
		}
	}
	{ // bmc and agent endpoint; only the controller needs them
		if !validationSkipped[SkipBMCValidation] {
			if c.BMC.Host == "" {
				errs = append(errs, fmt.Sprintf("%s is required", BMCHostFlag))
			}
			if c.BMC.Ipmitool == "" {
				errs = append(errs, fmt.Sprintf("%s cannot be empty", BMCIpmitoolFlag))
			}
			if ptr.Deref(c.BMC.Redfish.Enabled, false) {
				if _, err := url.ParseRequestURI(c.BMC.Redfish.Endpoint); err != nil {
					errs = append(errs, fmt.Sprintf("invalid redfish endpoint %q: %s", c.BMC.Redfish.Endpoint, err.Error()))
				}
			}
			if _, err := url.ParseRequestURI(c.Agent.Endpoint); err != nil {
				errs = append(errs, fmt.Sprintf("invalid agent endpoint %q: %s", c.Agent.Endpoint, err.Error()))
			}
		}
		if c.BMC.Settle < 0 {
			errs = append(errs, fmt.Sprintf("invalid %s: %s can't be negative", BMCSettle, c.BMC.Settle))
		}
	}
	{ // suite
		if c.Suite.Kind != SuiteLoad && c.Suite.Kind != SuiteThread {
			errs = append(errs, fmt.Sprintf("invalid suite kind: %s", c.Suite.Kind))
		}
		errs = append(errs, validatePowerLevels(c.Suite.PowerLevels)...)
		errs = append(errs, validateLoads(c.Suite.Loads, c.Suite.LoadPeriods)...)
		if c.Suite.Warmup <= 0 {
			errs = append(errs, fmt.Sprintf("invalid suite warmup: %s must be positive", c.Suite.Warmup))
		}
		if c.Suite.TestTime <= 0 {
			errs = append(errs, fmt.Sprintf("invalid suite test time: %s must be positive", c.Suite.TestTime))
		}
		if c.Suite.StepSize == 0 {
			errs = append(errs, fmt.Sprintf("invalid %s: must be positive", SuiteStepSize))
		}
		if c.Suite.StepInterval < 0 {
			errs = append(errs, fmt.Sprintf("invalid suite step interval: %s can't be negative", c.Suite.StepInterval))
		}
		if c.Suite.MaxTests < 0 {
			errs = append(errs, fmt.Sprintf("invalid suite max tests: %d can't be negative", c.Suite.MaxTests))
		}
	}
	{ // monitor
		if c.Monitor.BMCInterval <= 0 {
			errs = append(errs, fmt.Sprintf("invalid bmc monitor interval: %s must be positive", c.Monitor.BMCInterval))
		}
		if c.Monitor.BMCInterCommandDelay < 0 {
			errs = append(errs, fmt.Sprintf("invalid bmc inter-command delay: %s can't be negative", c.Monitor.BMCInterCommandDelay))
		}
		if c.Monitor.BMCCommandTimeout < 0 {
			errs = append(errs, fmt.Sprintf("invalid bmc command timeout: %s can't be negative", c.Monitor.BMCCommandTimeout))
		}
		if c.Monitor.EnergyInterval <= 0 {
			errs = append(errs, fmt.Sprintf("invalid energy monitor interval: %s must be positive", c.Monitor.EnergyInterval))
		}
		if c.Agent.EndDelay < 0 {
			errs = append(errs, fmt.Sprintf("invalid agent end delay: %s can't be negative", c.Agent.EndDelay))
		}
	}
	{ // web
		if c.Web.Config != "" {
			if err := canReadFile(c.Web.Config); err != nil {
				errs = append(errs, fmt.Sprintf("invalid web config file. path: %q: %s", c.Web.Config, err.Error()))
			}
		}
		if len(c.Web.ListenAddresses) == 0 {
			errs = append(errs, "at least one web listen address must be specified")
		}
		for _, addr := range c.Web.ListenAddresses {
			if err := validateListenAddress(addr); err != nil {
				errs = append(errs, fmt.Sprintf("invalid web listen address %q: %s", addr, err.Error()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func validatePowerLevels(levels []uint64) []string {
	if len(levels) < 2 {
		return []string{fmt.Sprintf("at least two power levels are required, got %d", len(levels))}
	}
	seen := make(map[uint64]bool, len(levels))
	var errs []string
	for _, l := range levels {
		if l == 0 {
			errs = append(errs, "power level cannot be 0")
		}
		if seen[l] {
			errs = append(errs, fmt.Sprintf("duplicate power level: %d", l))
		}
		seen[l] = true
	}
	return errs
}

func validateLoads(loads, periods []uint64) []string {
	var errs []string
	if len(loads) == 0 {
		errs = append(errs, "at least one load percentage is required")
	}
	var maxLoad uint64
	for _, l := range loads {
		if l < 1 || l > 100 {
			errs = append(errs, fmt.Sprintf("invalid load percentage %d: must be within 1..100", l))
		}
		maxLoad = max(maxLoad, l)
	}
	if len(periods) == 0 {
		errs = append(errs, "at least one load period is required")
	}
	for _, p := range periods {
		if p != 0 && p < maxLoad {
			errs = append(errs, fmt.Sprintf("invalid load period %d: must be 0 or >= %d", p, maxLoad))
		}
	}
	return errs
}

func canReadDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()

	_, err = f.ReadDir(1)
	return err
}

func canReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		// ignored on purpose
		_ = f.Close()
	}()
	buf := make([]byte, 8)
	_, err = f.Read(buf)
	return err
}

func validateListenAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric, got %s", port)
	}
	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", portNum)
	}
	return nil
}

// String renders the configuration as YAML with the BMC password masked
func (c *Config) String() string {
	masked := *c
	if masked.BMC.Password != "" {
		masked.BMC.Password = "****"
	}
	bytes, err := yaml.Marshal(&masked)
	if err == nil {
		return string(bytes)
	}
	// NOTE:  this code path should not happen but if it does (i.e if yaml marshal) fails
	// for some reason, manually build the string
	return masked.manualString()
}

func (c *Config) manualString() string {
	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
		{HostSysFSFlag, c.Host.SysFS},
		{HostProcFSFlag, c.Host.ProcFS},
		{BMCHostFlag, c.BMC.Host},
		{BMCUsernameFlag, c.BMC.Username},
		{BMCIpmitoolFlag, c.BMC.Ipmitool},
		{BMCSettle, c.BMC.Settle.String()},
		{AgentEndpointFlag, c.Agent.Endpoint},
		{AgentFirestarterFlag, c.Agent.Firestarter},
		{SuiteKindFlag, c.Suite.Kind},
		{SuiteWarmupFlag, c.Suite.Warmup.String()},
		{SuiteTestTimeFlag, c.Suite.TestTime.String()},
		{SuiteMaxTestsFlag, strconv.Itoa(c.Suite.MaxTests)},
		{SuiteStepSize, strconv.FormatUint(c.Suite.StepSize, 10)},
		{WebListenAddressFlag, strings.Join(c.Web.ListenAddresses, ", ")},
		{ExporterStdoutEnabledFlag, fmt.Sprintf("%v", ptr.Deref(c.Exporter.Stdout.Enabled, false))},
		{ExporterPrometheusEnabledFlag, fmt.Sprintf("%v", ptr.Deref(c.Exporter.Prometheus.Enabled, false))},
		{pprofEnabledFlag, fmt.Sprintf("%v", ptr.Deref(c.Debug.Pprof.Enabled, false))},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
