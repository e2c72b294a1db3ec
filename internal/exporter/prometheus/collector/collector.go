// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector holds the Prometheus collectors of the controller and the agent
package collector

const namespace = "capbench"
