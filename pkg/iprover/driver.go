// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package iprover drives an iProver subprocess through its external
// agent socket protocol.
//
// iProver does not read selections from stdin; it opens a TCP client
// connection back to this process and exchanges NUL-framed JSON messages
// over it. The RelayBridge accepts that connection in a background
// goroutine and turns it into two blocking queues, so the synchronous
// Driver contract of pkg/prover holds: every Start/Advance call blocks
// exactly until the prover finishes emitting one batch of requests.
package iprover

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/saturation/pkg/logging"
	"github.com/AleutianAI/saturation/pkg/prover"
)

// szsPattern extracts the verdict word from an SZS status line.
var szsPattern = regexp.MustCompile(`SZS status (\w+)`)

// labelNumberPattern extracts the numeric suffix iProver uses as the
// wire identity of a clause label such as "c_57".
var labelNumberPattern = regexp.MustCompile(`(\d+)$`)

// terminateWait bounds the post-kill wait for the subprocess.
const terminateWait = 5 * time.Second

// =============================================================================
// DRIVER
// =============================================================================

// Driver owns one iProver subprocess and its relay session.
//
// Thread Safety:
//
//	NOT safe for concurrent use by multiple callers. Internally the
//	relay goroutine and the calling thread communicate only through the
//	relay's two queues.
type Driver struct {
	binaryPath string
	logger     *logging.Logger

	relay *RelayServer
	cmd   *exec.Cmd
	known map[string]struct{}
}

// NewDriver creates a driver for the given iProver binary.
//
// Nothing is launched; each Start call spawns a fresh relay and process.
// A nil logger selects the default stderr logger.
func NewDriver(binaryPath string, logger *logging.Logger) *Driver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Driver{
		binaryPath: binaryPath,
		logger:     logger,
	}
}

// Start launches iProver on the given problem file and returns the
// clauses from its first request batch.
//
// Description:
//
//	Binds a fresh relay listener on an ephemeral port, then launches the
//	prover with the external-agent passive queue selected and the relay
//	host/port on its command line, so the subprocess connects back to
//	us. Blocks until the prover's first batch of requests arrives.
//
//	The include root is resolved two directory levels above the problem
//	file, the TPTP library layout.
func (d *Driver) Start(ctx context.Context, problem string) ([]prover.Clause, error) {
	if err := d.Terminate(); err != nil {
		return nil, fmt.Errorf("terminate previous session: %w", err)
	}

	relay, err := StartRelay(d.logger)
	if err != nil {
		return nil, err
	}

	args := proverArgs(problem, relay.Port())
	cmd := exec.Command(d.binaryPath, args...)
	// All conversation happens on the socket; the prover's own stdout
	// is noise here.
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		relay.Stop()
		return nil, fmt.Errorf("start %s: %w", d.binaryPath, err)
	}

	d.relay = relay
	d.cmd = cmd
	d.known = make(map[string]struct{})

	d.logger.Info("iprover started",
		"binary", d.binaryPath,
		"problem", problem,
		"relay_port", relay.Port(),
		"pid", cmd.Process.Pid,
	)

	batch, err := d.collectBatch(ctx)
	if err != nil {
		return nil, err
	}
	return d.parseBatch(batch)
}

// Advance nominates the clause with the given label and returns the
// clauses from the prover's next request batch.
//
// A label the driver has never seen is a stale action: Advance returns
// no clauses and writes nothing to the socket.
func (d *Driver) Advance(ctx context.Context, label string) ([]prover.Clause, error) {
	if d.relay == nil {
		return nil, prover.ErrNotStarted
	}
	if _, ok := d.known[label]; !ok {
		d.logger.Debug("stale action ignored", "label", label)
		return nil, nil
	}
	number, err := labelNumber(label)
	if err != nil {
		return nil, err
	}
	frame, err := encodeDecision(number)
	if err != nil {
		return nil, err
	}
	if err := d.relay.Send(frame); err != nil {
		return nil, fmt.Errorf("%w: %v", prover.ErrProtocol, err)
	}
	batch, err := d.collectBatch(ctx)
	if err != nil {
		return nil, err
	}
	return d.parseBatch(batch)
}

// Terminate tears the session down: stop accepting, join the relay
// goroutine, then terminate the subprocess — in that order. Idempotent;
// tolerates a subprocess that already exited.
func (d *Driver) Terminate() error {
	if d.relay != nil {
		d.relay.Stop()
		d.relay = nil
	}
	if d.cmd != nil {
		if d.cmd.Process != nil {
			_ = d.cmd.Process.Kill()

			done := make(chan struct{})
			go func() {
				_ = d.cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(terminateWait):
				d.logger.Warn("iprover did not exit after kill", "pid", d.cmd.Process.Pid)
			}
		}
		d.cmd = nil
	}
	d.known = nil
	return nil
}

// collectBatch dequeues inbound messages until a control tag arrives and
// returns everything accumulated, control message included.
//
// This is the synchronization point that gives step-level synchrony over
// the socket: the caller blocks exactly until the prover has finished
// one batch of requests. A session that ends before any queries-start
// tag still returns (the session-end tag is a batch boundary too), so an
// early proof cannot deadlock the caller.
func (d *Driver) collectBatch(ctx context.Context) ([]Message, error) {
	var batch []Message
	for {
		select {
		case msg, ok := <-d.relay.Inbound():
			if !ok {
				return nil, fmt.Errorf(
					"%w: relay session ended before a batch boundary", prover.ErrProtocol)
			}
			batch = append(batch, msg)
			if msg.Tag == TagQueriesStart || msg.Tag == TagSessionEnd {
				return batch, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// parseBatch extracts clause records from one batch of messages.
func (d *Driver) parseBatch(batch []Message) ([]prover.Clause, error) {
	var clauses []prover.Clause
	for _, msg := range batch {
		for _, bc := range msg.Clauses {
			birth := prover.BirthStepUnset
			if bc.Features.Born > 0 {
				birth = bc.Features.Born - 1
			}
			clause, err := ParseClause(bc.Clause, birth)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
		if msg.SZSStatus != "" {
			clause, err := parseSZSStatus(msg.SZSStatus)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
		}
	}
	for _, c := range clauses {
		d.known[c.Label] = struct{}{}
	}
	return clauses, nil
}

// parseSZSStatus turns the prover's final verdict into a clause.
//
// Unsatisfiable means the refutation succeeded: a synthetic falsehood
// clause terminates the episode. Any other verdict is unexpected in
// manual selection mode and fails the episode.
func parseSZSStatus(status string) (prover.Clause, error) {
	m := szsPattern.FindStringSubmatch(status)
	if m == nil {
		return prover.Clause{}, fmt.Errorf("%w: unparsable SZS status %q", prover.ErrProtocol, status)
	}
	if m[1] != "Unsatisfiable" {
		return prover.Clause{}, fmt.Errorf("%w: unexpected SZS status %q", prover.ErrProtocol, m[1])
	}
	return prover.Clause{
		Label:         "szs_" + uuid.NewString(),
		Role:          prover.RolePlain,
		Literals:      prover.FalsehoodSymbol,
		InferenceRule: "dummy",
		BirthStep:     prover.BirthStepUnset,
	}, nil
}

// labelNumber extracts the numeric wire identity from a clause label.
func labelNumber(label string) (int, error) {
	m := labelNumberPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, fmt.Errorf("%w: clause label %q has no numeric id", prover.ErrProtocol, label)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: clause label %q: %v", prover.ErrProtocol, label, err)
	}
	return n, nil
}

// includePath resolves the TPTP include root, two directory levels
// above the problem file.
func includePath(problem string) string {
	return filepath.Join(filepath.Dir(problem), "..", "..")
}

// proverArgs builds the iProver command line for one episode.
func proverArgs(problem string, port int) []string {
	includeDir := includePath(problem)
	return []string{
		"--interactive_mode", "true",
		"--enigma_ip_address", "127.0.0.1",
		"--enigma_port", strconv.Itoa(port),
		"--schedule", "none",
		"--resolution_flag", "false",
		"--instantiation_flag", "false",
		"--superposition_flag", "true",
		"--sup_iter_deepening", "0",
		"--sup_passive_queue_type", "external_agent",
		"--preprocessing_flag", "false",
		"--include_path", includeDir,
		problem,
	}
}
