// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package bmc

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/capbench/capbench/internal/config"
)

// CommandRunner runs name with args and returns what it wrote to stdout and stderr
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// IPMI implements Controller by running ipmitool DCMI commands against a remote BMC
type IPMI struct {
	logger *slog.Logger
	run    CommandRunner

	ipmitool string
	iface    string
	host     string
	username string
	password string
}

var _ Controller = (*IPMI)(nil)

type IPMIOptionFn func(*IPMI)

// WithLogger sets the logger for IPMI
func WithLogger(logger *slog.Logger) IPMIOptionFn {
	return func(i *IPMI) {
		i.logger = logger.With("service", "ipmi")
	}
}

// WithCommandRunner replaces the exec based runner, eg: with a recording fake
func WithCommandRunner(r CommandRunner) IPMIOptionFn {
	return func(i *IPMI) {
		i.run = r
	}
}

// NewIPMI returns an ipmitool backed Controller for the BMC in cfg
func NewIPMI(cfg config.BMC, opts ...IPMIOptionFn) *IPMI {
	i := &IPMI{
		logger:   slog.Default().With("service", "ipmi"),
		run:      execRunner,
		ipmitool: cfg.Ipmitool,
		iface:    cfg.Interface,
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// String renders the connection arguments with the password masked
func (i *IPMI) String() string {
	return fmt.Sprintf("-H %s -U %s -P ****", i.host, i.username)
}

func (i *IPMI) Power(ctx context.Context) (PowerReading, error) {
	out, err := i.dcmi(ctx, "power", "reading")
	if err != nil {
		return PowerReading{}, err
	}
	return ParsePowerReading(out)
}

func (i *IPMI) CapSettings(ctx context.Context) (CapSetting, error) {
	out, err := i.dcmi(ctx, "power", "get_limit")
	if err != nil {
		return CapSetting{}, err
	}
	return ParseCapSettings(out)
}

func (i *IPMI) SetCapLevel(ctx context.Context, watts uint64) error {
	_, err := i.dcmi(ctx, "power", "set_limit", "limit", strconv.FormatUint(watts, 10))
	return err
}

func (i *IPMI) Activate(ctx context.Context) error {
	_, err := i.dcmi(ctx, "power", "activate")
	return err
}

func (i *IPMI) Deactivate(ctx context.Context) error {
	_, err := i.dcmi(ctx, "power", "deactivate")
	return err
}

func (i *IPMI) dcmi(ctx context.Context, args ...string) (string, error) {
	full := append([]string{
		"-I", i.iface,
		"-H", i.host,
		"-U", i.username,
		"-P", i.password,
		"dcmi",
	}, args...)
	cmd := "dcmi " + strings.Join(args, " ")

	i.logger.Debug("running ipmitool", "bmc", i.String(), "command", cmd)
	stdout, stderr, err := i.run(ctx, i.ipmitool, full...)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w: %s", ErrCommand, cmd, err, strings.TrimSpace(string(stderr)))
	}
	// ipmitool exits 0 on some DCMI failures, stderr is the only signal
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return "", fmt.Errorf("%w: %s: %s", ErrCommand, cmd, msg)
	}
	return string(stdout), nil
}
