// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/capbench/capbench/internal/coordinator"
	"github.com/capbench/capbench/internal/device"
	"github.com/capbench/capbench/internal/monitor"
)

// Exporter prints a table per test run and a summary of the suite
type Exporter struct {
	logger *slog.Logger
	out    io.Writer

	mu      sync.Mutex
	suiteID string
	rows    [][]string
}

var _ coordinator.ResultSink = (*Exporter)(nil)

type Opts struct {
	logger *slog.Logger
	out    io.Writer
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		out:    os.Stdout,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Exporter
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

func WithOutput(out io.Writer) OptionFn {
	return func(o *Opts) {
		o.out = out
	}
}

func NewExporter(applyOpts ...OptionFn) *Exporter {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Exporter{
		logger: opts.logger.With("service", "stdout"),
		out:    opts.out,
	}
}

// Name implements service.Name
func (e *Exporter) Name() string {
	return "stdout"
}

// Record prints the average power of every source measured during the run
func (e *Exporter) Record(r coordinator.Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.suiteID = r.SuiteID
	run := r.Run
	n := len(e.rows) + 1

	fmt.Fprintf(e.out, "\n#%d %s\n", n, run.Test)
	if err := writeRun(e.out, r); err != nil {
		return fmt.Errorf("failed to write run %d: %w", n, err)
	}

	e.rows = append(e.rows, []string{
		strconv.Itoa(n),
		run.Order.String(),
		run.Operation.String(),
		run.Step.String(),
		fmt.Sprintf("%d->%d", run.CapFrom, run.CapTo),
		strconv.FormatUint(run.LoadPct, 10),
		strconv.FormatUint(run.NThreads, 10),
		run.End.Sub(run.Start).Round(time.Second).String(),
		bmcAverage(r.BMC),
		packageAverage(r.Energy),
	})
	return nil
}

// Flush prints the summary of every recorded run
func (e *Exporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rows) == 0 {
		e.logger.Info("no test run to report")
		return nil
	}

	fmt.Fprintf(e.out, "\nsuite %s\n", e.suiteID)
	table := tablewriter.NewWriter(e.out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"#", "Order", "Operation", "Step", "Cap(W)", "Load(%)", "Threads", "Duration", "BMC(W)", "Packages(W)"})
	if err := table.Bulk(e.rows); err != nil {
		return err
	}
	return table.Render()
}

func writeRun(out io.Writer, r coordinator.Result) error {
	rows := [][]string{{"bmc", "power", strconv.Itoa(len(r.BMC)), bmcAverage(r.BMC)}}
	for i, domain := range domains(r.Energy) {
		var sum uint64
		for _, s := range r.Energy {
			sum += s.Data[i].Watts
		}
		rows = append(rows, []string{"rapl", domain, strconv.Itoa(len(r.Energy)),
			strconv.FormatUint(sum/uint64(len(r.Energy)), 10)})
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Source", "Domain", "Samples", "Average(W)"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func domains(samples []device.PowerSample) []string {
	if len(samples) == 0 {
		return nil
	}
	return samples[0].Domains()
}

func bmcAverage(samples []monitor.BMCSample) string {
	if len(samples) == 0 {
		return "-"
	}
	var sum uint64
	for _, s := range samples {
		sum += s.Power
	}
	return strconv.FormatUint(sum/uint64(len(samples)), 10)
}

// packageAverage is the mean over the run of the summed pkg domains
func packageAverage(samples []device.PowerSample) string {
	if len(samples) == 0 {
		return "-"
	}
	var sum uint64
	for _, s := range samples {
		for _, d := range s.Data {
			if strings.HasPrefix(d.Domain, "pkg") {
				sum += d.Watts
			}
		}
	}
	return strconv.FormatUint(sum/uint64(len(samples)), 10)
}
