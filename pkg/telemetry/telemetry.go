// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry metrics for the saturation
// environments.
//
// The package exposes counters through the OTel metric API only; wiring a
// reader or exporter (Prometheus, OTLP, stdout) is the embedding
// application's concern. Libraries that do not configure telemetry get
// no-op counters and pay nothing.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics contains pre-defined metrics for the saturation environments.
//
// All metrics use the "saturation_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// EpisodesTotal counts episodes started via Reset.
	EpisodesTotal metric.Int64Counter

	// StepsTotal counts completed given-clause steps.
	StepsTotal metric.Int64Counter

	// ProofsFoundTotal counts episodes that terminated with a proof.
	ProofsFoundTotal metric.Int64Counter

	// TruncationsTotal counts episodes that hit the clause bound.
	TruncationsTotal metric.Int64Counter

	// ProtocolViolationsTotal counts unrecognized prover output events.
	ProtocolViolationsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all counters registered on
// the given meter.
//
// Outputs:
//
//	*Metrics - The metrics instance with all counters initialized.
//	error - Non-nil if any counter registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.EpisodesTotal, err = meter.Int64Counter(
		"saturation_episodes_total",
		metric.WithDescription("Total episodes started"),
	); err != nil {
		return nil, fmt.Errorf("create episodes counter: %w", err)
	}
	if m.StepsTotal, err = meter.Int64Counter(
		"saturation_steps_total",
		metric.WithDescription("Total given-clause steps"),
	); err != nil {
		return nil, fmt.Errorf("create steps counter: %w", err)
	}
	if m.ProofsFoundTotal, err = meter.Int64Counter(
		"saturation_proofs_found_total",
		metric.WithDescription("Episodes terminated with a refutation proof"),
	); err != nil {
		return nil, fmt.Errorf("create proofs counter: %w", err)
	}
	if m.TruncationsTotal, err = meter.Int64Counter(
		"saturation_truncations_total",
		metric.WithDescription("Episodes truncated at the clause bound"),
	); err != nil {
		return nil, fmt.Errorf("create truncations counter: %w", err)
	}
	if m.ProtocolViolationsTotal, err = meter.Int64Counter(
		"saturation_protocol_violations_total",
		metric.WithDescription("Unrecognized prover protocol events"),
	); err != nil {
		return nil, fmt.Errorf("create violations counter: %w", err)
	}
	return m, nil
}

// NewNopMetrics returns a Metrics instance whose counters discard all
// measurements. Registration on the no-op meter cannot fail.
func NewNopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("saturation"))
	if err != nil {
		// The noop meter never returns an error; reaching this line
		// means the OTel API broke its contract.
		panic(err)
	}
	return m
}
