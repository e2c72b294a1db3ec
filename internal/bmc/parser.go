// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package bmc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ipmitool prints timestamps as asctime, eg: Tue May  9 14:24:36 2023
const timestampLayout = "Mon Jan _2 15:04:05 2006"

// ParsePowerReading parses the output of `ipmitool dcmi power reading`.
// Lines are split on the first ": " since the timestamp holds colons.
// Unknown keys are ignored.
func ParsePowerReading(output string) (PowerReading, error) {
	var r PowerReading
	for line := range strings.Lines(output) {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ": ")
		if !ok {
			continue
		}
		fields := strings.Fields(key)
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "Instantaneous":
			r.Instantaneous, err = parseWatts(value)
		case "Minimum":
			r.Minimum, err = parseWatts(value)
		case "Maximum":
			r.Maximum, err = parseWatts(value)
		case "Average":
			r.Average, err = parseWatts(value)
		case "IPMI":
			r.Timestamp, err = parseTimestamp(value)
		}
		if err != nil {
			return PowerReading{}, err
		}
	}
	return r, nil
}

// ParseCapSettings parses the output of `ipmitool dcmi power get_limit`
func ParseCapSettings(output string) (CapSetting, error) {
	var c CapSetting
	for line := range strings.Lines(output) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		switch strings.TrimSpace(key) {
		case "Current Limit State":
			c.IsActive = strings.TrimSpace(value) == "Power Limit Active"
		case "Power Limit":
			limit, err := parseWatts(value)
			if err != nil {
				return CapSetting{}, err
			}
			c.PowerLimit = limit
		}
	}
	return c, nil
}

// parseWatts parses the first word of value, eg: "220 Watts"
func parseWatts(value string) (uint64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty value", ErrParse)
	}
	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number: %w", ErrParse, fields[0], err)
	}
	return n, nil
}

func parseTimestamp(value string) (time.Time, error) {
	collapsed := strings.Join(strings.Fields(value), " ")
	ts, err := time.Parse(timestampLayout, collapsed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q: %w", ErrParse, value, err)
	}
	return ts, nil
}
